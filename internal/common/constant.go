package common

// SessionTokenHeaderName is the gRPC metadata key carrying the session token.
const SessionTokenHeaderName = "session_token"

// Metadata keys of the persisted auth state.
const (
	MetaSetupComplete = "setup_complete"
	MetaPermissions   = "permissions"
)

// AuthStateKeys lists every metadata key an account reset removes.
var AuthStateKeys = []string{MetaSetupComplete, MetaPermissions}

// DefaultUserID is the profile id used by single-user device installs.
const DefaultUserID = "local"
