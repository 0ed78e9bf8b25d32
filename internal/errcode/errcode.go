package errcode

// Code is a stable error identifier surfaced in status snapshots.
// It is a string newtype, comparable, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes.
const (
	OK Code = "ok"

	// Validation failures: rejected before any state change, never retried.
	InvalidSSID       Code = "invalid_ssid"
	InvalidPassword   Code = "invalid_password"
	InvalidDeviceName Code = "invalid_device_name"
	InvalidParam      Code = "invalid_param"

	// Transient link failures: degrade to access-point mode, never fatal.
	LinkTimeout Code = "link_timeout"
	LinkLost    Code = "link_lost"
	APStart     Code = "ap_start_failed"

	// Reconnection policy exceeded: degrades to access-point mode.
	RetriesExhausted Code = "retries_exhausted"

	ConnectPending Code = "connect_pending"

	Error Code = "error" // generic fallback
)

// E keeps an operation and cause alongside a code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}

// IsValidation reports whether the code is a pre-state-change rejection.
func IsValidation(c Code) bool {
	switch c {
	case InvalidSSID, InvalidPassword, InvalidDeviceName, InvalidParam:
		return true
	}
	return false
}
