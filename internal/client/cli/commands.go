package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// minPrefix is the shortest id prefix accepted in place of a full id.
const minPrefix = 4

type command struct {
	name string
	args string
	desc string
	run  func(ctx context.Context, args []string) error
}

func (a *App) commands() []command {
	return []command{
		{"list", "", "list pages as a tree", a.List},
		{"show", "<page>", "show a page", a.Show},
		{"newnote", "[-p <parent>] <title>", "create a note page", a.NewNote},
		{"newtodo", "[-p <parent>] <title>", "create a todo page", a.NewTodo},
		{"rename", "<page> <title>", "rename a page", a.Rename},
		{"write", "<page>", "replace a note's text", a.Write},
		{"pin", "<page>", "pin or unpin a page", a.Pin},
		{"order", "", "show pinned pages in order", a.Order},
		{"reorder", "<page>...", "set the pinned order", a.Reorder},
		{"delete", "<page>", "delete a page without children", a.Delete},
		{"todos", "<page>", "list a todo page's items", a.Todos},
		{"addtodo", "<page> <text>", "add an item to a todo page", a.AddTodo},
		{"done", "<item>", "toggle an item's completion", a.Done},
		{"rmtodo", "<item>", "delete an item", a.RemoveTodo},
		{"secrets", "", "list secrets", a.Secrets},
		{"setpin", "", "set the secrets PIN", a.SetPin},
		{"changepin", "", "change the PIN and re-encrypt secrets", a.ChangePin},
		{"addsecret", "<name>", "store a secret", a.AddSecret},
		{"reveal", "<secret>", "decrypt and print a secret", a.Reveal},
		{"rmsecret", "<secret>", "delete a secret", a.RemoveSecret},
		{"sync", "", "push queued changes now", a.Sync},
		{"backup", "", "take an encrypted backup now", a.Backup},
		{"status", "", "show connection, queue and PIN state", a.Status},
	}
}

func (a *App) lookup(name string) (command, bool) {
	for _, c := range a.commands() {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func (a *App) help() string {
	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, c := range a.commands() {
		fmt.Fprintf(&b, "  %-32s %s\n", strings.TrimSpace(c.name+" "+c.args), c.desc)
	}
	b.WriteString("  exit | quit")
	return b.String()
}

func (a *App) usage(name string) error {
	c, _ := a.lookup(name)
	return usageError{cmd: c}
}

// resolveID expands a unique prefix of one of ids. Anything else is
// returned unchanged so the service reports it as not found.
func resolveID(ids []string, arg string) (string, error) {
	if len(arg) < minPrefix {
		return arg, nil
	}
	var matches []string
	for _, id := range ids {
		if id == arg {
			return id, nil
		}
		if strings.HasPrefix(id, arg) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return arg, nil
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", fmt.Errorf("%q is ambiguous: %s", arg, strings.Join(matches, ", "))
	}
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var errCancelled = errors.New("cancelled")
