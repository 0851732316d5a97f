// Package models defines the records persisted by StealthDetect: PIN
// credentials, authenticated sessions, scan results and the auth-state
// flags that replace the old ambient browser storage.
package models
