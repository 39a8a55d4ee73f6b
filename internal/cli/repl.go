package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	list(ctx context.Context, filter string)
	add(ctx context.Context)
	edit(ctx context.Context)
	code(ctx context.Context)
	delete(ctx context.Context)
	importURL(ctx context.Context)
	exportURL(ctx context.Context)
	sync(ctx context.Context)
	syncSetup(ctx context.Context)
	syncRemove(ctx context.Context)
	syncLog(ctx context.Context)
}

// runREPL starts a simple read-eval-print loop for the Phoenix CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Commands:
//
//   - help               — show available commands
//   - list [filter]      — list accounts, optionally filtered by name
//   - add                — add an account (interactive)
//   - edit               — edit an account (interactive)
//   - code               — show the current code for an account
//   - delete             — delete an account
//   - import             — add an account from an otpauth URL
//   - export             — print an account as an otpauth URL
//   - sync               — synchronize with the remote server now
//   - syncsetup          — configure the remote server
//   - syncremove         — remove the remote server configuration
//   - synclog            — show recent sync failures
//   - exit | quit        — leave the program
//
// Any errors returned by command handlers are reported by the handlers
// themselves. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, scanner *bufio.Scanner) {
	for {
		printlnFn("phoenix> ")
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			printlnFn("Available commands: (l)ist, add, edit, code, delete, import, export, sync, syncsetup, syncremove, synclog, exit")

		case "l", "list":
			filter := ""
			if len(args) > 0 {
				filter = args[0]
			}
			a.list(ctx, filter)

		case "add":
			a.add(ctx)

		case "edit":
			a.edit(ctx)

		case "code":
			a.code(ctx)

		case "delete":
			a.delete(ctx)

		case "import":
			a.importURL(ctx)

		case "export":
			a.exportURL(ctx)

		case "sync":
			a.sync(ctx)

		case "syncsetup":
			a.syncSetup(ctx)

		case "syncremove":
			a.syncRemove(ctx)

		case "synclog":
			a.syncLog(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
