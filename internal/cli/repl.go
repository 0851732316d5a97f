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
	isUnlocked() bool
	Setup(ctx context.Context) error
	Unlock(ctx context.Context) error
	Lock(ctx context.Context) error
	Status(ctx context.Context) error
	Scans(ctx context.Context) error
	Report(ctx context.Context, scanID string) error
	History(ctx context.Context) error
	ChangePin(ctx context.Context) error
	Reset(ctx context.Context) error
}

// runREPL starts a read-eval-print loop for the StealthDetect CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on a. The loop exits on EOF or when the user types
// "exit" or "quit".
//
//	Locked:
//	  - help              show available commands
//	  - setup             first-run onboarding
//	  - unlock            enter the PIN
//	  - reset             wipe the profile and start over
//	  - exit | quit       leave the program
//
//	Unlocked:
//	  - help              show available commands
//	  - status            session status
//	  - scans             list scans
//	  - report <scan-id>  show one scan report
//	  - history           unlock history
//	  - change-pin        replace the main and duress PINs
//	  - lock              close the session
//	  - exit | quit       leave the program
//
// Errors returned by command handlers are ignored here; handlers report
// their own errors to the user.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("sd %s> ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isUnlocked() {
				printlnFn("Available commands: status, scans, report <scan-id>, history, change-pin, lock, exit")
			} else {
				printlnFn("Available commands: setup, unlock, reset, exit")
			}

		case "setup":
			_ = a.Setup(ctx)

		case "unlock":
			_ = a.Unlock(ctx)

		case "lock":
			_ = a.Lock(ctx)

		case "status":
			_ = a.Status(ctx)

		case "scans":
			_ = a.Scans(ctx)

		case "report":
			if len(args) == 0 {
				printlnFn("Usage: report <scan-id>")
				continue
			}
			_ = a.Report(ctx, args[0])

		case "history":
			_ = a.History(ctx)

		case "change-pin":
			_ = a.ChangePin(ctx)

		case "reset":
			_ = a.Reset(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
