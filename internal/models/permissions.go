package models

// Permissions are the OS grants collected during onboarding.
type Permissions struct {
	SystemUsage   bool `json:"system_usage"`
	Notifications bool `json:"notifications"`
}
