package settings

import "errors"

var (
	// ErrInvalidInput indicates invalid input for settings operations.
	ErrInvalidInput = errors.New("invalid settings input")
	// ErrPINNotSet indicates verification was attempted before a PIN exists.
	ErrPINNotSet = errors.New("pin not set")
	// ErrPINMismatch indicates the supplied PIN did not match.
	ErrPINMismatch = errors.New("pin mismatch")
	// ErrInvalidPINHash indicates a stored hash that cannot be parsed.
	ErrInvalidPINHash = errors.New("invalid pin hash format")
	// ErrIncompatiblePINVersion indicates a hash from another argon2 version.
	ErrIncompatiblePINVersion = errors.New("incompatible pin hash version")
)
