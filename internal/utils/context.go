package utils

// CtxKey is the dedicated type for context values set by this application,
// preventing collisions with keys from other packages.
type CtxKey string

const (
	// DeviceIDCtxKey stores the authenticated device's identifier, set by
	// the auth middleware after token validation.
	DeviceIDCtxKey CtxKey = "device_id"

	// TraceIDCtxKey stores the per-request trace identifier.
	TraceIDCtxKey CtxKey = "trace_id"
)
