// Package common defines shared constants and sentinel errors used across
// the GophNotes client layers. Callers should use errors.Is to match these
// values and errors.As for the typed errors.
package common

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Local cache errors.
	ErrNotFound        = errors.New("not found")
	ErrHasChildren     = errors.New("page has child pages")
	ErrInvalidPageType = errors.New("invalid page type")

	// Envelope crypto errors.
	ErrDecryption = errors.New("decryption failed")
	ErrEncryption = errors.New("encryption failed")

	// Sync errors.
	ErrRemoteUnavailable = errors.New("remote unavailable")

	// PIN / KMS errors.
	ErrPinTooShort   = errors.New("pin is too short")
	ErrInvalidPin    = errors.New("invalid pin")
	ErrPinNotSet     = errors.New("pin is not set")
	ErrPinAlreadySet = errors.New("pin is already set")
	ErrPartialReKey  = errors.New("pin change stopped partway")

	// Session errors.
	ErrInvalidToken = errors.New("invalid token")
)

// PartialReKeyError reports a PIN change that stopped before every secret
// was re-encrypted. Rekeyed lists the secrets already written under the new
// PIN; FailedID is the secret the batch stopped on.
type PartialReKeyError struct {
	Rekeyed  []string
	FailedID string
	Err      error
}

func (e *PartialReKeyError) Error() string {
	return fmt.Sprintf("%s: secret %s failed after %d re-keyed [%s]: %v",
		ErrPartialReKey, e.FailedID, len(e.Rekeyed), strings.Join(e.Rekeyed, ","), e.Err)
}

// Is lets errors.Is match both ErrPartialReKey and the underlying cause.
func (e *PartialReKeyError) Is(target error) bool {
	return target == ErrPartialReKey
}

func (e *PartialReKeyError) Unwrap() error {
	return e.Err
}
