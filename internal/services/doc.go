// Package services is the StealthDetect core shared by every presentation
// layer: PIN enrollment, the duress-aware AuthGate, the session lifecycle,
// device auth state and mode-aware access to scan history.
//
// All collaborators are injected at construction time. Nothing here reads
// ambient storage.
package services
