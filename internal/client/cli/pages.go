package cli

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/common"
)

func (a *App) resolvePage(ctx context.Context, arg string) (string, error) {
	list, err := a.pages.Cached(ctx)
	if err != nil {
		return "", err
	}
	ids := make([]string, len(list))
	for i, p := range list {
		ids[i] = p.ID
	}
	return resolveID(ids, arg)
}

// warnStale reports a read that fell back to the local cache.
func (a *App) warnStale(err error) {
	if errors.Is(err, common.ErrRemoteUnavailable) {
		a.println("(offline: showing local data)")
		return
	}
	a.println("(refresh failed, showing local data:", err.Error()+")")
}

func (a *App) List(ctx context.Context, _ []string) error {
	list, err := a.pages.FetchAll(ctx)
	if err != nil {
		if list == nil {
			return err
		}
		a.warnStale(err)
	}
	if len(list) == 0 {
		a.println("No pages yet. Try: newnote <title>")
		return nil
	}

	known := make(map[string]bool, len(list))
	for _, p := range list {
		known[p.ID] = true
	}
	children := make(map[string][]models.Page)
	var roots []models.Page
	for _, p := range list {
		if p.ParentID != nil && known[*p.ParentID] {
			children[*p.ParentID] = append(children[*p.ParentID], p)
			continue
		}
		roots = append(roots, p)
	}

	var walk func(p models.Page, depth int)
	walk = func(p models.Page, depth int) {
		mark := " "
		if p.Pinned {
			mark = "*"
		}
		a.printf("%s%s %s %-4s %s\n", strings.Repeat("  ", depth), mark, short(p.ID), p.Type, p.Title)
		for _, c := range children[p.ID] {
			walk(c, depth+1)
		}
	}
	for _, p := range roots {
		walk(p, 0)
	}
	return nil
}

func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("show")
	}
	id, err := a.resolvePage(ctx, args[0])
	if err != nil {
		return err
	}
	p, err := a.pages.FetchByID(ctx, id)
	if err != nil {
		if p == nil {
			return err
		}
		a.warnStale(err)
	}

	a.printf("%s  %s  (%s", p.ID, p.Title, p.Type)
	if p.Pinned {
		a.printf(", pinned")
	}
	a.printf(", updated %s)\n", p.UpdatedAt.Local().Format("2006-01-02 15:04"))

	if p.Type == models.PageTypeTodo {
		return a.printTodos(ctx, p.ID)
	}
	if text := noteText(p.Content); text != "" {
		a.println(text)
	}
	return nil
}

// noteText renders page content: JSON strings as text, anything else raw.
func noteText(content json.RawMessage) string {
	if len(content) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(content, &s); err == nil {
		return s
	}
	return string(content)
}

// parseCreate splits "[-p <parent>] <title words>".
func (a *App) parseCreate(ctx context.Context, args []string) (string, *string, bool, error) {
	var parent *string
	if len(args) >= 2 && args[0] == "-p" {
		id, err := a.resolvePage(ctx, args[1])
		if err != nil {
			return "", nil, false, err
		}
		parent = &id
		args = args[2:]
	}
	if len(args) == 0 {
		return "", nil, false, nil
	}
	return strings.Join(args, " "), parent, true, nil
}

func (a *App) create(ctx context.Context, name string, typ models.PageType, args []string) error {
	title, parent, ok, err := a.parseCreate(ctx, args)
	if err != nil {
		return err
	}
	if !ok {
		return a.usage(name)
	}
	p, err := a.pages.Create(ctx, title, typ, parent)
	if err != nil {
		return err
	}
	a.printf("created %s %s\n", p.Type, p.ID)
	return nil
}

func (a *App) NewNote(ctx context.Context, args []string) error {
	return a.create(ctx, "newnote", models.PageTypeNote, args)
}

func (a *App) NewTodo(ctx context.Context, args []string) error {
	return a.create(ctx, "newtodo", models.PageTypeTodo, args)
}

func (a *App) Rename(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return a.usage("rename")
	}
	id, err := a.resolvePage(ctx, args[0])
	if err != nil {
		return err
	}
	title := strings.Join(args[1:], " ")
	_, err = a.pages.Update(ctx, id, models.PagePatch{Title: &title})
	return err
}

func (a *App) Write(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("write")
	}
	id, err := a.resolvePage(ctx, args[0])
	if err != nil {
		return err
	}
	text, err := GetMultiline(a.reader, "Note text", a.out)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(text)
	if err != nil {
		return err
	}
	content := json.RawMessage(raw)
	_, err = a.pages.Update(ctx, id, models.PagePatch{Content: &content})
	return err
}

func (a *App) Pin(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("pin")
	}
	id, err := a.resolvePage(ctx, args[0])
	if err != nil {
		return err
	}
	p, err := a.pages.TogglePin(ctx, id)
	if err != nil {
		return err
	}
	if p.Pinned {
		a.println("pinned", p.Title)
	} else {
		a.println("unpinned", p.Title)
	}
	return nil
}

func (a *App) Order(ctx context.Context, _ []string) error {
	order, err := a.pages.FetchPinnedOrder(ctx)
	if err != nil {
		return err
	}
	if len(order) == 0 {
		a.println("No pinned pages.")
		return nil
	}
	cached, err := a.pages.Cached(ctx)
	if err != nil {
		return err
	}
	titles := make(map[string]string, len(cached))
	for _, p := range cached {
		titles[p.ID] = p.Title
	}
	for i, id := range order {
		a.printf("%d. %s %s\n", i+1, short(id), titles[id])
	}
	return nil
}

func (a *App) Reorder(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.usage("reorder")
	}
	ids := make([]string, 0, len(args))
	for _, arg := range args {
		id, err := a.resolvePage(ctx, arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	if _, err := a.pages.ReorderPinnedPages(ctx, ids); err != nil {
		return err
	}
	return a.Order(ctx, nil)
}

func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("delete")
	}
	id, err := a.resolvePage(ctx, args[0])
	if err != nil {
		return err
	}
	if err := a.pages.Delete(ctx, id); err != nil {
		if errors.Is(err, common.ErrHasChildren) {
			return errors.New("page has sub-pages; delete them first")
		}
		return err
	}
	a.println("deleted", short(id))
	return nil
}
