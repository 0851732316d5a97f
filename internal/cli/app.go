package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/stealthdetect/internal/flow"
	"github.com/dmitrijs2005/stealthdetect/internal/logging"
	"github.com/dmitrijs2005/stealthdetect/internal/services"
)

// App is one interactive session over the core for a single profile.
type App struct {
	core    *services.Core
	machine *flow.Machine
	state   flow.State
	logger  logging.Logger
	reader  *bufio.Reader
	out     io.Writer
}

func NewApp(core *services.Core, userID string, l logging.Logger, in io.Reader, out io.Writer) *App {
	return &App{
		core:    core,
		machine: flow.NewMachine(core, userID),
		logger:  l.With("module", "cli"),
		reader:  bufio.NewReader(in),
		out:     out,
	}
}

// Run picks the entry state and serves commands until the user exits. An
// unlocked session is closed on the way out.
func (a *App) Run(ctx context.Context) error {
	state, err := a.machine.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	a.state = state

	fmt.Fprintln(a.out, "Welcome to StealthDetect (type 'help' for commands)")
	if _, ok := a.state.(flow.Welcome); ok {
		fmt.Fprintln(a.out, "No profile yet. Type 'setup' to get started.")
	}

	runREPL(ctx, a, a.getStatus, a.reader)

	if a.isUnlocked() {
		return a.Lock(ctx)
	}
	return nil
}

func (a *App) isUnlocked() bool {
	_, ok := flow.Unlocked(a.state)
	return ok
}

// getStatus labels the prompt. Both unlocked states read the same.
func (a *App) getStatus() string {
	switch a.state.(type) {
	case flow.Dashboard, flow.Decoy:
		return "(unlocked)"
	case flow.EnterPin:
		return "(locked)"
	default:
		return "(setup)"
	}
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}
