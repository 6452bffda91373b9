package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for REPL output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL needs. *App satisfies it;
// tests can provide a lightweight stub.
type execIface interface {
	lookup(name string) (command, bool)
	help() string
}

// usageError asks the REPL to print the command's usage line.
type usageError struct{ cmd command }

func (e usageError) Error() string {
	return "usage: " + strings.TrimSpace(e.cmd.name+" "+e.cmd.args)
}

// runREPL reads a line, dispatches its first word as a command with the
// remaining words as arguments, and prints any error the command returns.
// The loop exits on EOF or when the user types "exit" or "quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("gn %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		name, args := parts[0], parts[1:]
		switch name {
		case "help":
			printlnFn(a.help())
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		cmd, ok := a.lookup(name)
		if !ok {
			printlnFn("Unknown command:", name)
			continue
		}
		if err := cmd.run(ctx, args); err != nil {
			var u usageError
			if errors.As(err, &u) {
				printlnFn(u.Error())
				continue
			}
			printlnFn("error:", err)
		}
	}
}
