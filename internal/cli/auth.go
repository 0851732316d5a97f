package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/stealthdetect/internal/common"
	"github.com/dmitrijs2005/stealthdetect/internal/flow"
	"github.com/dmitrijs2005/stealthdetect/internal/models"
)

// getPIN and getYesNo are indirections used to facilitate testing. They
// point to interactive input helpers and can be swapped in tests.
var (
	getPIN   = GetPIN
	getYesNo = GetYesNo
)

const (
	msgInvalidPIN = "Invalid PIN, please try again"
	msgGeneric    = "Something went wrong, please try again"
)

// userMessage turns a flow error into what the user sees. Authentication
// failures all read the same.
func userMessage(err error) string {
	switch {
	case errors.Is(err, common.ErrInvalidPIN),
		errors.Is(err, common.ErrRejected),
		errors.Is(err, common.ErrUnknownUser):
		return msgInvalidPIN
	case errors.Is(err, common.ErrInvalidPINFormat),
		errors.Is(err, common.ErrPINMismatch),
		errors.Is(err, common.ErrDuressEqualsReal),
		errors.Is(err, common.ErrPermissionMissing):
		return err.Error()
	}
	return msgGeneric
}

func (a *App) fail(ctx context.Context, err error) error {
	msg := userMessage(err)
	if msg == msgGeneric {
		a.logger.Error(ctx, "command failed", "error", err)
	}
	a.println(msg)
	return err
}

// Setup walks the onboarding screens from wherever the profile is: intro,
// permissions, then PIN enrollment. On success the app is unlocked.
func (a *App) Setup(ctx context.Context) error {
	if _, ok := a.state.(flow.Welcome); ok {
		a.println("StealthDetect checks this device for stalkerware and tracking.")
		next, err := a.machine.Start(ctx, flow.Welcome{})
		if err != nil {
			return a.fail(ctx, err)
		}
		a.state = next
	}

	if cur, ok := a.state.(flow.Permissions); ok {
		if err := a.askPermissions(ctx, cur); err != nil {
			return err
		}
	}

	cur, ok := a.state.(flow.SetupPins)
	if !ok {
		a.println("Setup is already complete.")
		return nil
	}
	return a.askPins(ctx, cur)
}

func (a *App) askPermissions(ctx context.Context, cur flow.Permissions) error {
	usage, err := getYesNo(a.reader, "Allow access to app usage data (required)?", a.out)
	if err != nil {
		return err
	}
	notify, err := getYesNo(a.reader, "Allow notifications?", a.out)
	if err != nil {
		return err
	}

	next, err := a.machine.GrantPermissions(ctx, cur, models.Permissions{SystemUsage: usage, Notifications: notify})
	if err != nil {
		return a.fail(ctx, err)
	}
	a.state = next
	return nil
}

func (a *App) askPins(ctx context.Context, cur flow.SetupPins) error {
	var form flow.PinForm
	defer form.Wipe()

	var err error
	if form.PIN, err = getPIN(a.reader, "Choose a PIN (4-8 digits)", a.out); err != nil {
		return err
	}
	if form.ConfirmPIN, err = getPIN(a.reader, "Confirm PIN", a.out); err != nil {
		return err
	}
	a.println("A duress PIN opens a clean-looking app if someone forces you to unlock it.")
	if form.DuressPIN, err = getPIN(a.reader, "Choose a duress PIN (empty to skip)", a.out); err != nil {
		return err
	}
	if len(form.DuressPIN) > 0 {
		if form.ConfirmDuressPIN, err = getPIN(a.reader, "Confirm duress PIN", a.out); err != nil {
			return err
		}
	}

	next, err := a.machine.SavePins(ctx, cur, form)
	a.state = next
	if err != nil {
		return a.fail(ctx, err)
	}
	a.println("Setup complete. Unlocked.")
	return nil
}

// Unlock prompts for the PIN on the lock screen.
func (a *App) Unlock(ctx context.Context) error {
	cur, ok := a.state.(flow.EnterPin)
	if !ok {
		if a.isUnlocked() {
			a.println("Already unlocked.")
		} else {
			a.println("Run 'setup' first.")
		}
		return nil
	}

	pin, err := getPIN(a.reader, "Enter PIN", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pin)

	next, err := a.machine.Unlock(ctx, cur, pin)
	a.state = next
	if err != nil {
		return a.fail(ctx, err)
	}
	a.println("Unlocked.")
	return nil
}

// Lock closes the current session.
func (a *App) Lock(ctx context.Context) error {
	if !a.isUnlocked() {
		a.println("Already locked.")
		return nil
	}
	next, err := a.machine.Lock(ctx, a.state)
	if err != nil {
		return a.fail(ctx, err)
	}
	a.state = next
	a.println("Locked.")
	return nil
}

// ChangePin replaces both PINs from an unlocked session. The prompts and
// the result read the same in either mode.
func (a *App) ChangePin(ctx context.Context) error {
	if !a.isUnlocked() {
		a.println("Locked. Type 'unlock' first.")
		return nil
	}

	var form flow.ChangePinForm
	defer form.Wipe()

	var err error
	if form.CurrentPIN, err = getPIN(a.reader, "Current PIN", a.out); err != nil {
		return err
	}
	if form.PIN, err = getPIN(a.reader, "New PIN (4-8 digits)", a.out); err != nil {
		return err
	}
	if form.ConfirmPIN, err = getPIN(a.reader, "Confirm new PIN", a.out); err != nil {
		return err
	}
	if form.DuressPIN, err = getPIN(a.reader, "New duress PIN (empty for none)", a.out); err != nil {
		return err
	}
	if len(form.DuressPIN) > 0 {
		if form.ConfirmDuressPIN, err = getPIN(a.reader, "Confirm duress PIN", a.out); err != nil {
			return err
		}
	}

	next, err := a.machine.ChangePins(ctx, a.state, form)
	a.state = next
	if err != nil {
		if errors.Is(err, common.ErrSessionClosed) || errors.Is(err, common.ErrSessionNotFound) {
			a.println("Session ended. Type 'unlock' to continue.")
			return err
		}
		return a.fail(ctx, err)
	}
	a.println("PINs updated.")
	return nil
}

// Reset wipes the profile after confirmation. It is offered on the lock
// screen, where a forgotten PIN leaves no other way forward.
func (a *App) Reset(ctx context.Context) error {
	cur, ok := a.state.(flow.EnterPin)
	if !ok {
		if a.isUnlocked() {
			a.println("Lock the app first.")
		} else {
			a.println("Nothing to reset.")
		}
		return nil
	}

	yes, err := getYesNo(a.reader, "This deletes your PINs and all scan history. Continue?", a.out)
	if err != nil {
		return err
	}
	if !yes {
		a.println("Cancelled.")
		return nil
	}

	next, err := a.machine.Reset(ctx, cur)
	if err != nil {
		return a.fail(ctx, err)
	}
	a.state = next
	a.println("Profile deleted. Type 'setup' to start again.")
	return nil
}
