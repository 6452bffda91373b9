// Package todos provides the local-store persistence layer for todo items,
// indexed by their owning page.
package todos
