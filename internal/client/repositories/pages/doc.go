// Package pages provides the local-store persistence layer for pages.
//
// The Repository interface covers the primary-key, owner and parent lookups
// the services need. SQLiteRepository implements it over a dbx.DBTX, so the
// same code runs against *sql.DB or inside a transaction.
//
// Typical Usage
//
//	repo := pages.NewSQLiteRepository(db)
//	_ = repo.Put(ctx, &page)
//	list, _ := repo.ListByOwner(ctx, ownerID)
//	n, _ := repo.CountChildren(ctx, page.ID)
package pages
