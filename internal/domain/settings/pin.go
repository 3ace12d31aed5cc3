package settings

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2idParams tunes PIN hashing.
type Argon2idParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2idParams are the production PIN hashing costs.
var DefaultArgon2idParams = Argon2idParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// Upper bounds for parameters read back from a stored hash.
const (
	maxPINMemory     = 256 * 1024
	maxPINIterations = 16
	maxPINKeyLength  = 64
)

const pinHashFormat = "$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s"

// HashPIN returns an encoded argon2id hash of pin.
func HashPIN(pin string, params Argon2idParams) (string, error) {
	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("reading salt: %w", err)
	}
	key := argon2.IDKey([]byte(pin), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)
	enc := base64.RawStdEncoding
	return fmt.Sprintf(pinHashFormat, argon2.Version, params.Memory, params.Iterations, params.Parallelism,
		enc.EncodeToString(salt), enc.EncodeToString(key)), nil
}

// VerifyPINHash checks pin against an encoded hash.
func VerifyPINHash(encoded, pin string) error {
	params, salt, key, err := parsePINHash(encoded)
	if err != nil {
		return err
	}
	candidate := argon2.IDKey([]byte(pin), salt, params.Iterations, params.Memory, params.Parallelism, uint32(len(key)))
	if subtle.ConstantTimeCompare(key, candidate) != 1 {
		return ErrPINMismatch
	}
	return nil
}

// parsePINHash splits an encoded hash and refuses costs outside the bounds
// above, so a tampered row cannot make verification allocate without limit.
func parsePINHash(encoded string) (Argon2idParams, []byte, []byte, error) {
	var params Argon2idParams
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return params, nil, nil, ErrInvalidPINHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return params, nil, nil, ErrInvalidPINHash
	}
	if version != argon2.Version {
		return params, nil, nil, ErrIncompatiblePINVersion
	}
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return params, nil, nil, ErrInvalidPINHash
	}
	if params.Memory == 0 || params.Memory > maxPINMemory ||
		params.Iterations == 0 || params.Iterations > maxPINIterations ||
		params.Parallelism == 0 {
		return params, nil, nil, ErrInvalidPINHash
	}

	enc := base64.RawStdEncoding
	salt, err := enc.DecodeString(fields[4])
	if err != nil || len(salt) == 0 {
		return params, nil, nil, ErrInvalidPINHash
	}
	key, err := enc.DecodeString(fields[5])
	if err != nil || len(key) == 0 || len(key) > maxPINKeyLength {
		return params, nil, nil, ErrInvalidPINHash
	}
	params.SaltLength = uint32(len(salt))
	params.KeyLength = uint32(len(key))
	return params, salt, key, nil
}

// ValidatePIN accepts 4 to 8 digits.
func ValidatePIN(pin string) error {
	if len(pin) < 4 || len(pin) > 8 {
		return fmt.Errorf("%w: pin must be 4 to 8 digits", ErrInvalidInput)
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: pin must be 4 to 8 digits", ErrInvalidInput)
		}
	}
	return nil
}
