package flow

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/stealthdetect/internal/common"
	"github.com/dmitrijs2005/stealthdetect/internal/cryptox"
	"github.com/dmitrijs2005/stealthdetect/internal/logging"
	"github.com/dmitrijs2005/stealthdetect/internal/models"
	"github.com/dmitrijs2005/stealthdetect/internal/repositories/repomanager"
	"github.com/dmitrijs2005/stealthdetect/internal/services"
	"github.com/dmitrijs2005/stealthdetect/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMachine(t *testing.T) (*Machine, *services.Core) {
	t.Helper()
	rm := repomanager.NewSQLiteRepositoryManager()
	db, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "flow.db"), rm)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	core := services.NewCore(db, rm, cryptox.HashParams{Time: 1, MemoryKiB: 1024, Threads: 1, KeyLen: 32}, logging.Discard())
	return NewMachine(core, "u1"), core
}

func form(pin, duress string) PinForm {
	f := PinForm{PIN: []byte(pin), ConfirmPIN: []byte(pin)}
	if duress != "" {
		f.DuressPIN = []byte(duress)
		f.ConfirmDuressPIN = []byte(duress)
	}
	return f
}

// onboard runs the first-run flow through to the dashboard.
func onboard(t *testing.T, m *Machine, pin, duress string) State {
	t.Helper()
	ctx := context.Background()

	st, err := m.Begin(ctx)
	require.NoError(t, err)
	require.IsType(t, Welcome{}, st)

	st, err = m.Start(ctx, st.(Welcome))
	require.NoError(t, err)
	require.IsType(t, Permissions{}, st)

	st, err = m.GrantPermissions(ctx, st.(Permissions), models.Permissions{SystemUsage: true})
	require.NoError(t, err)
	require.IsType(t, SetupPins{}, st)

	st, err = m.SavePins(ctx, st.(SetupPins), form(pin, duress))
	require.NoError(t, err)
	require.IsType(t, Dashboard{}, st)
	return st
}

func TestOnboardingThenUnlockBothModes(t *testing.T) {
	m, core := newMachine(t)
	ctx := context.Background()

	st := onboard(t, m, "1234", "0000")

	st, err := m.Lock(ctx, st)
	require.NoError(t, err)
	require.IsType(t, EnterPin{}, st)

	st, err = m.Begin(ctx)
	require.NoError(t, err)
	require.IsType(t, EnterPin{}, st)

	next, err := m.Unlock(ctx, st.(EnterPin), []byte("0000"))
	require.NoError(t, err)
	decoy, ok := next.(Decoy)
	require.True(t, ok)
	assert.True(t, decoy.Session.IsDuress())

	st, err = m.Lock(ctx, decoy)
	require.NoError(t, err)
	next, err = m.Unlock(ctx, st.(EnterPin), []byte("1234"))
	require.NoError(t, err)
	dash, ok := next.(Dashboard)
	require.True(t, ok)

	active, err := core.Sessions.GetActive(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, dash.Session.ID, active.ID)
}

func TestUnlock_WrongPinStaysLocked(t *testing.T) {
	m, _ := newMachine(t)
	ctx := context.Background()
	onboard(t, m, "1234", "")

	st, err := m.Unlock(ctx, EnterPin{}, []byte("9999"))
	require.ErrorIs(t, err, common.ErrInvalidPIN)
	assert.Equal(t, EnterPin{}, st)
}

func TestUnlock_UnknownProfileLooksLikeWrongPin(t *testing.T) {
	m, _ := newMachine(t)

	st, err := m.Unlock(context.Background(), EnterPin{}, []byte("1234"))
	require.ErrorIs(t, err, common.ErrInvalidPIN)
	assert.Equal(t, EnterPin{}, st)
}

func TestGrantPermissions_RequiresSystemUsage(t *testing.T) {
	m, _ := newMachine(t)
	cur := Permissions{}

	st, err := m.GrantPermissions(context.Background(), cur, models.Permissions{Notifications: true})
	require.ErrorIs(t, err, common.ErrPermissionMissing)
	assert.Equal(t, cur, st)
}

func TestStart_SkipsPermissionsWhenGranted(t *testing.T) {
	m, core := newMachine(t)
	ctx := context.Background()
	require.NoError(t, core.State.SavePermissions(ctx, models.Permissions{SystemUsage: true}))

	st, err := m.Start(ctx, Welcome{})
	require.NoError(t, err)
	assert.IsType(t, SetupPins{}, st)
}

func TestSavePins_Validation(t *testing.T) {
	m, core := newMachine(t)
	ctx := context.Background()

	tests := []struct {
		name string
		form PinForm
		want error
	}{
		{"main mismatch", PinForm{PIN: []byte("1234"), ConfirmPIN: []byte("1235")}, common.ErrPINMismatch},
		{"duress mismatch", PinForm{PIN: []byte("1234"), ConfirmPIN: []byte("1234"), DuressPIN: []byte("0000"), ConfirmDuressPIN: []byte("0001")}, common.ErrPINMismatch},
		{"duress equals main", form("1234", "1234"), common.ErrDuressEqualsReal},
		{"too short", form("12", ""), common.ErrInvalidPINFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := m.SavePins(ctx, SetupPins{}, tt.form)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, SetupPins{}, st)
		})
	}

	done, err := core.State.SetupComplete(ctx)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestSavePins_WipesForm(t *testing.T) {
	m, _ := newMachine(t)
	f := form("1234", "0000")

	_, err := m.SavePins(context.Background(), SetupPins{}, f)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, f.PIN)
	assert.Equal(t, []byte{0, 0, 0, 0}, f.DuressPIN)
}

func TestLock_RequiresUnlockedState(t *testing.T) {
	m, _ := newMachine(t)
	st, err := m.Lock(context.Background(), EnterPin{})
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, EnterPin{}, st)
}

func TestReset_ReturnsToWelcome(t *testing.T) {
	m, _ := newMachine(t)
	ctx := context.Background()
	onboard(t, m, "1234", "0000")

	st, err := m.Reset(ctx, EnterPin{})
	require.NoError(t, err)
	assert.Equal(t, Welcome{}, st)

	st, err = m.Begin(ctx)
	require.NoError(t, err)
	assert.Equal(t, Welcome{}, st)
}

func changeForm(current, pin, duress string) ChangePinForm {
	return ChangePinForm{CurrentPIN: []byte(current), PinForm: form(pin, duress)}
}

func TestChangePins_FromDashboard(t *testing.T) {
	m, _ := newMachine(t)
	ctx := context.Background()
	st := onboard(t, m, "1234", "0000")

	next, err := m.ChangePins(ctx, st, changeForm("1234", "5678", "1111"))
	require.NoError(t, err)
	assert.Equal(t, st, next)

	st, err = m.Lock(ctx, next)
	require.NoError(t, err)
	st, err = m.Unlock(ctx, st.(EnterPin), []byte("1234"))
	require.ErrorIs(t, err, common.ErrInvalidPIN)
	st, err = m.Unlock(ctx, st.(EnterPin), []byte("5678"))
	require.NoError(t, err)
	assert.IsType(t, Dashboard{}, st)
}

func TestChangePins_FromDecoyKeepsStoredPins(t *testing.T) {
	m, _ := newMachine(t)
	ctx := context.Background()
	st := onboard(t, m, "1234", "0000")
	st, err := m.Lock(ctx, st)
	require.NoError(t, err)
	st, err = m.Unlock(ctx, st.(EnterPin), []byte("0000"))
	require.NoError(t, err)
	require.IsType(t, Decoy{}, st)

	next, err := m.ChangePins(ctx, st, changeForm("0000", "5678", ""))
	require.NoError(t, err, "the decoy accepts the change like the dashboard does")
	assert.Equal(t, st, next)

	st, err = m.Lock(ctx, next)
	require.NoError(t, err)
	_, err = m.Unlock(ctx, st.(EnterPin), []byte("5678"))
	require.ErrorIs(t, err, common.ErrInvalidPIN)
	st, err = m.Unlock(ctx, EnterPin{}, []byte("1234"))
	require.NoError(t, err)
	assert.IsType(t, Dashboard{}, st)
}

func TestChangePins_Refusals(t *testing.T) {
	m, core := newMachine(t)
	ctx := context.Background()
	st := onboard(t, m, "1234", "0000")

	next, err := m.ChangePins(ctx, st, changeForm("9999", "5678", ""))
	require.ErrorIs(t, err, common.ErrInvalidPIN)
	assert.Equal(t, st, next)

	bad := changeForm("1234", "5678", "")
	bad.ConfirmPIN = []byte("5679")
	_, err = m.ChangePins(ctx, st, bad)
	require.ErrorIs(t, err, common.ErrPINMismatch)

	_, err = m.ChangePins(ctx, EnterPin{}, changeForm("1234", "5678", ""))
	require.ErrorIs(t, err, ErrInvalidTransition)

	sess, _ := Unlocked(st)
	require.NoError(t, core.Sessions.Close(ctx, sess.ID))
	next, err = m.ChangePins(ctx, st, changeForm("1234", "5678", ""))
	require.ErrorIs(t, err, common.ErrSessionClosed)
	assert.Equal(t, EnterPin{}, next)
}

func TestChangePins_WipesForm(t *testing.T) {
	m, _ := newMachine(t)
	st := onboard(t, m, "1234", "0000")
	f := changeForm("1234", "5678", "1111")

	_, err := m.ChangePins(context.Background(), st, f)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, f.CurrentPIN)
	assert.Equal(t, []byte{0, 0, 0, 0}, f.PIN)
	assert.Equal(t, []byte{0, 0, 0, 0}, f.DuressPIN)
}
