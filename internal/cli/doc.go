// Package cli provides the interactive StealthDetect command-line client.
//
// It drives the onboarding and unlock flow over the shared core and renders
// scan history for the unlocked session. A duress unlock is rendered with
// the same commands and the same wording as a real one; only the data
// behind it differs.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See runREPL for the command set.
package cli
