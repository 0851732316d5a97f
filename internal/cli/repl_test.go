package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"
)

type fakeExec struct {
	unlocked bool

	calls []string
	arg   string
}

func (f *fakeExec) isUnlocked() bool { return f.unlocked }
func (f *fakeExec) Setup(ctx context.Context) error {
	f.calls = append(f.calls, "setup")
	return nil
}
func (f *fakeExec) Unlock(ctx context.Context) error {
	f.calls = append(f.calls, "unlock")
	f.unlocked = true
	return nil
}
func (f *fakeExec) Lock(ctx context.Context) error {
	f.calls = append(f.calls, "lock")
	f.unlocked = false
	return nil
}
func (f *fakeExec) Status(ctx context.Context) error { f.calls = append(f.calls, "status"); return nil }
func (f *fakeExec) Scans(ctx context.Context) error  { f.calls = append(f.calls, "scans"); return nil }
func (f *fakeExec) Report(ctx context.Context, scanID string) error {
	f.calls = append(f.calls, "report")
	f.arg = scanID
	return nil
}
func (f *fakeExec) History(ctx context.Context) error {
	f.calls = append(f.calls, "history")
	return nil
}
func (f *fakeExec) ChangePin(ctx context.Context) error {
	f.calls = append(f.calls, "change-pin")
	return nil
}
func (f *fakeExec) Reset(ctx context.Context) error { f.calls = append(f.calls, "reset"); return nil }

func TestRunREPL_UnlockFlowAndCommands(t *testing.T) {
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	input := strings.NewReader(strings.Join([]string{
		"help",
		"unlock",
		"help",
		"status",
		"scans",
		"report abc-123",
		"history",
		"change-pin",
		"foobar",
		"lock",
		"reset",
		"exit",
	}, "\n"))

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "status" }, bufio.NewReader(input))

	wantOrder := []string{"unlock", "status", "scans", "report", "history", "change-pin", "lock", "reset"}
	if len(exec.calls) != len(wantOrder) {
		t.Fatalf("calls mismatch: got %v, want %v", exec.calls, wantOrder)
	}
	for i, c := range wantOrder {
		if exec.calls[i] != c {
			t.Fatalf("commands order mismatch: got %v, want %v", exec.calls, wantOrder)
		}
	}
	if exec.arg != "abc-123" {
		t.Fatalf("report arg = %q", exec.arg)
	}
}

func TestRunREPL_UsageAndQuit(t *testing.T) {
	var printed []string
	origPrint := printlnFn
	printlnFn = func(a ...any) (int, error) {
		for _, x := range a {
			if s, ok := x.(string); ok {
				printed = append(printed, s)
			}
		}
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = origPrint })

	exec := &fakeExec{unlocked: true}
	runREPL(context.Background(), exec, func() string { return "s" }, bufio.NewReader(strings.NewReader("report\nquit\n")))

	if len(exec.calls) != 0 {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
	if !strings.Contains(strings.Join(printed, "\n"), "Usage: report <scan-id>") {
		t.Fatalf("usage not printed: %v", printed)
	}
}

func TestRunREPL_StopsOnEOF(t *testing.T) {
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader("setup")))

	if len(exec.calls) != 1 || exec.calls[0] != "setup" {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
}
