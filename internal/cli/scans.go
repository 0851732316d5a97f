package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dmitrijs2005/stealthdetect/internal/common"
	"github.com/dmitrijs2005/stealthdetect/internal/flow"
	"github.com/dmitrijs2005/stealthdetect/internal/services"
)

const timeFormat = "2006-01-02 15:04"

// view opens the reader for the current session. A session closed
// elsewhere drops the app back to the lock screen.
func (a *App) view(ctx context.Context) (services.ScanReader, context.Context, bool) {
	sess, ok := flow.Unlocked(a.state)
	if !ok {
		a.println("Locked. Type 'unlock' first.")
		return nil, ctx, false
	}
	reader, vctx, err := a.core.Scans.View(ctx, sess.ID)
	if err != nil {
		if errors.Is(err, common.ErrSessionClosed) || errors.Is(err, common.ErrSessionNotFound) {
			a.state = flow.EnterPin{}
			a.println("Session ended. Type 'unlock' to continue.")
			return nil, ctx, false
		}
		_ = a.fail(ctx, err)
		return nil, ctx, false
	}
	return reader, vctx, true
}

// Status shows whether the app is unlocked and since when.
func (a *App) Status(ctx context.Context) error {
	sess, ok := flow.Unlocked(a.state)
	if !ok {
		a.println("Locked.")
		return nil
	}
	a.println("Unlocked since", sess.OpenedAt.Local().Format(timeFormat))
	return nil
}

// Scans lists recorded scans, newest first.
func (a *App) Scans(ctx context.Context) error {
	reader, vctx, ok := a.view(ctx)
	if !ok {
		return nil
	}
	list, err := reader.ListScans(vctx)
	if err != nil {
		return a.fail(ctx, err)
	}
	if len(list) == 0 {
		a.println("No scans yet.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tKIND\tSTATUS")
	for _, s := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, s.StartedAt.Local().Format(timeFormat), s.Kind, s.Status)
	}
	return tw.Flush()
}

// Report prints one scan with its findings.
func (a *App) Report(ctx context.Context, scanID string) error {
	reader, vctx, ok := a.view(ctx)
	if !ok {
		return nil
	}
	res, err := reader.GetReport(vctx, scanID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			a.println("Scan not found:", scanID)
			return err
		}
		return a.fail(ctx, err)
	}

	a.println("Scan", res.Scan.ID)
	a.println("  started:", res.Scan.StartedAt.Local().Format(timeFormat))
	if res.Scan.EndedAt != nil {
		a.println("  ended:  ", res.Scan.EndedAt.Local().Format(timeFormat))
	}
	a.println("  kind:   ", res.Scan.Kind)
	a.println("  status: ", res.Scan.Status)
	for _, r := range res.Reports {
		a.println(fmt.Sprintf("Report [%s] %s", r.Severity, r.Summary))
	}
	if len(res.Matches) == 0 {
		a.println("No indicators matched.")
	}
	for _, m := range res.Matches {
		a.println(fmt.Sprintf("  %s %s=%s (source %s, confidence %.0f%%)",
			m.Severity, m.IndicatorType, m.IndicatorValue, m.Source, m.Confidence*100))
	}
	for _, sn := range res.Snapshots {
		a.println(fmt.Sprintf("Device: network %s, ip %s, battery %.0f%%",
			sn.NetworkType, sn.IPAddress, sn.BatteryLevel*100))
	}
	return nil
}

// History lists unlock periods visible to this session.
func (a *App) History(ctx context.Context) error {
	reader, vctx, ok := a.view(ctx)
	if !ok {
		return nil
	}
	list, err := reader.Sessions(vctx)
	if err != nil {
		return a.fail(ctx, err)
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "OPENED\tCLOSED")
	for _, s := range list {
		closed := "active"
		if s.ClosedAt != nil {
			closed = s.ClosedAt.Local().Format(timeFormat)
		}
		fmt.Fprintf(tw, "%s\t%s\n", s.OpenedAt.Local().Format(timeFormat), closed)
	}
	return tw.Flush()
}
