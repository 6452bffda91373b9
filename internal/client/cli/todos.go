package cli

import (
	"context"
	"strings"
)

func (a *App) resolveTodo(arg string) (string, error) {
	ids := make([]string, len(a.lastTodos))
	for i, t := range a.lastTodos {
		ids[i] = t.ID
	}
	return resolveID(ids, arg)
}

func (a *App) printTodos(ctx context.Context, pageID string) error {
	items, err := a.todos.FetchForPage(ctx, pageID)
	if err != nil {
		if items == nil {
			return err
		}
		a.warnStale(err)
	}
	a.lastTodos = items
	if len(items) == 0 {
		a.println("No items.")
		return nil
	}
	for _, t := range items {
		box := "[ ]"
		if t.Completed {
			box = "[x]"
		}
		a.printf("%s %s %s\n", box, short(t.ID), t.Text)
	}
	return nil
}

func (a *App) Todos(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("todos")
	}
	id, err := a.resolvePage(ctx, args[0])
	if err != nil {
		return err
	}
	return a.printTodos(ctx, id)
}

func (a *App) AddTodo(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return a.usage("addtodo")
	}
	pageID, err := a.resolvePage(ctx, args[0])
	if err != nil {
		return err
	}
	item, err := a.todos.Add(ctx, pageID, strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	a.lastTodos = append(a.lastTodos, *item)
	a.printf("added %s\n", short(item.ID))
	return nil
}

func (a *App) Done(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("done")
	}
	id, err := a.resolveTodo(args[0])
	if err != nil {
		return err
	}
	item, err := a.todos.ToggleCompleted(ctx, id)
	if err != nil {
		return err
	}
	for i := range a.lastTodos {
		if a.lastTodos[i].ID == id {
			a.lastTodos[i] = *item
		}
	}
	return nil
}

func (a *App) RemoveTodo(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("rmtodo")
	}
	id, err := a.resolveTodo(args[0])
	if err != nil {
		return err
	}
	return a.todos.Delete(ctx, id)
}
