package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/t3vo/internal/models"
	"github.com/dmitrijs2005/t3vo/internal/repositories/records"
)

// execIface is the command surface the REPL needs. *App satisfies it.
type execIface interface {
	Unlocked() bool
	Unlock(ctx context.Context) error
	Lock(ctx context.Context) error
	List(ctx context.Context, c models.Collection, order records.Order) error
	Show(ctx context.Context, c models.Collection, id string, reveal bool) error
	Add(ctx context.Context, c models.Collection) error
	Edit(ctx context.Context, c models.Collection, id string) error
	Delete(ctx context.Context, c models.Collection, id string, force bool) error
	Backup(ctx context.Context, target, name string) error
	Restore(ctx context.Context, target, name string) error
	Backups(ctx context.Context, target string) error
	Status(ctx context.Context) error
}

const replHelp = `Available commands:
  unlock | lock
  list <collection> [id|title|updated]
  show <collection> <id> [reveal]
  add <collection>
  edit <collection> <id>
  delete <collection> <id>
  backup [file|s3] [name]
  backups [file|s3]
  restore [file|s3] <name>
  status
  exit | quit
Collections: notes, bookmarks, passwords`

// runREPL reads commands from reader until EOF, "exit" or "quit" and
// dispatches them to a. Prompts, messages and command errors go to out and
// the loop goes on after an error.
//
// Commands that prompt read from the same reader, so it must be the one
// held by the App.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, out io.Writer) {
	for {
		fmt.Fprintf(out, "t3vo %s> ", statusFn())
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		err = nil
		switch cmd {
		case "help", "?":
			fmt.Fprintln(out, replHelp)

		case "unlock":
			err = a.Unlock(ctx)

		case "lock":
			err = a.Lock(ctx)

		case "l", "list":
			err = withCollection(args, 1, func(c models.Collection, rest []string) error {
				order, err := ParseOrder(optional(rest, 0))
				if err != nil {
					return err
				}
				return a.List(ctx, c, order)
			})

		case "show":
			err = withCollection(args, 2, func(c models.Collection, rest []string) error {
				return a.Show(ctx, c, rest[0], optional(rest, 1) == "reveal")
			})

		case "add":
			err = withCollection(args, 1, func(c models.Collection, _ []string) error {
				return a.Add(ctx, c)
			})

		case "edit":
			err = withCollection(args, 2, func(c models.Collection, rest []string) error {
				return a.Edit(ctx, c, rest[0])
			})

		case "delete", "rm":
			err = withCollection(args, 2, func(c models.Collection, rest []string) error {
				return a.Delete(ctx, c, rest[0], false)
			})

		case "backup":
			err = a.Backup(ctx, optional(args, 0), optional(args, 1))

		case "backups":
			err = a.Backups(ctx, optional(args, 0))

		case "restore":
			switch len(args) {
			case 1:
				err = a.Restore(ctx, TargetFile, args[0])
			case 2:
				err = a.Restore(ctx, args[0], args[1])
			default:
				fmt.Fprintln(out, "Usage: restore [file|s3] <name>")
			}

		case "status":
			err = a.Status(ctx)

		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return

		default:
			fmt.Fprintln(out, "Unknown command:", cmd)
		}

		if err != nil {
			fmt.Fprintln(out, "Error:", err)
		}
	}
}

// withCollection parses args[0] as a collection and requires at least n
// arguments in total.
func withCollection(args []string, n int, fn func(c models.Collection, rest []string) error) error {
	if len(args) < n {
		if n == 1 {
			return fmt.Errorf("usage: <command> <collection>")
		}
		return fmt.Errorf("usage: <command> <collection> <id>")
	}
	c, err := models.ParseCollection(args[0])
	if err != nil {
		return err
	}
	return fn(c, args[1:])
}

func optional(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

// status is the REPL prompt decoration.
func (a *App) status() string {
	if !a.Unlocked() {
		return "(locked) "
	}
	return fmt.Sprintf("(%s) ", a.db.Name())
}
