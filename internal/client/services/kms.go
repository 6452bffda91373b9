package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/cryptox"
	"github.com/google/uuid"
)

// KMSState is the PIN gate of the secrets store.
type KMSState int

const (
	// StateNoPin: no pin record exists yet.
	StateNoPin KMSState = iota
	// StateLocked: a pin exists and no action is in progress.
	StateLocked
	// StateVerified: a pin was just verified for the action in progress.
	StateVerified
)

func (s KMSState) String() string {
	switch s {
	case StateNoPin:
		return "no-pin"
	case StateLocked:
		return "locked"
	case StateVerified:
		return "verified"
	default:
		return fmt.Sprintf("KMSState(%d)", int(s))
	}
}

// KMSService manages PIN-protected secrets. Secret values are encrypted on
// the client; the backend only ever sees envelopes and the PIN hash.
type KMSService struct {
	Deps
	owner string

	mu     sync.Mutex
	active int
}

func NewKMSService(owner string, d Deps) *KMSService {
	return &KMSService{Deps: d, owner: owner}
}

func checkPin(pin string) error {
	if utf8.RuneCountInString(pin) < common.MinPinLength {
		return fmt.Errorf("%w: need at least %d characters", common.ErrPinTooShort, common.MinPinLength)
	}
	return nil
}

// FetchSecrets lists the owner's secrets (envelopes only), newest first.
func (s *KMSService) FetchSecrets(ctx context.Context) ([]models.Secret, error) {
	return s.API.ListSecrets(ctx, s.owner)
}

// AddSecret encrypts value under pin and stores the envelope remotely.
func (s *KMSService) AddSecret(ctx context.Context, name string, value []byte, pin string) (*models.Secret, error) {
	if err := checkPin(pin); err != nil {
		return nil, err
	}
	pinBytes := []byte(pin)
	defer common.WipeByteArray(pinBytes)

	envelope, err := cryptox.Encrypt(value, pinBytes)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sec := &models.Secret{
		ID:        uuid.NewString(),
		OwnerID:   s.owner,
		Name:      name,
		Envelope:  envelope,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.API.InsertSecret(ctx, sec); err != nil {
		return nil, fmt.Errorf("store secret: %w", err)
	}
	return sec, nil
}

// GetSecret fetches and decrypts a secret. A wrong pin surfaces as
// common.ErrDecryption. The caller owns the returned plaintext and should
// wipe it when done.
func (s *KMSService) GetSecret(ctx context.Context, id, pin string) ([]byte, error) {
	if err := checkPin(pin); err != nil {
		return nil, err
	}
	sec, err := s.API.GetSecret(ctx, s.owner, id)
	if err != nil {
		return nil, err
	}

	pinBytes := []byte(pin)
	defer common.WipeByteArray(pinBytes)
	return cryptox.Decrypt(sec.Envelope, pinBytes)
}

func (s *KMSService) DeleteSecret(ctx context.Context, id string) error {
	return s.API.DeleteSecret(ctx, s.owner, id)
}

func (s *KMSService) CheckHasPin(ctx context.Context) (bool, error) {
	_, err := s.API.GetPin(ctx, s.owner)
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// VerifyPin compares pin with the stored hash.
func (s *KMSService) VerifyPin(ctx context.Context, pin string) (bool, error) {
	if err := checkPin(pin); err != nil {
		return false, err
	}
	rec, err := s.API.GetPin(ctx, s.owner)
	if errors.Is(err, common.ErrNotFound) {
		return false, common.ErrPinNotSet
	}
	if err != nil {
		return false, err
	}
	return cryptox.VerifyPin([]byte(pin), rec.Hash), nil
}

// CreatePin sets the first pin. Changing an existing pin goes through
// UpdatePin so that secrets are re-encrypted.
func (s *KMSService) CreatePin(ctx context.Context, pin string) error {
	if err := checkPin(pin); err != nil {
		return err
	}
	has, err := s.CheckHasPin(ctx)
	if err != nil {
		return err
	}
	if has {
		return common.ErrPinAlreadySet
	}

	now := s.now()
	return s.API.UpsertPin(ctx, &models.PinRecord{
		OwnerID:   s.owner,
		Hash:      cryptox.HashPin([]byte(pin)),
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// UpdatePin re-encrypts every secret from oldPin to newPin and then stores the
// new pin hash. The batch stops at the first secret that fails and returns a
// *common.PartialReKeyError; the hash is only replaced after every secret made
// it, so the old pin keeps working for the verification step of a retry.
// Secrets that already open under newPin (from an earlier partial run) are
// counted as re-keyed.
func (s *KMSService) UpdatePin(ctx context.Context, oldPin, newPin string) error {
	if err := checkPin(oldPin); err != nil {
		return err
	}
	if err := checkPin(newPin); err != nil {
		return err
	}
	ok, err := s.VerifyPin(ctx, oldPin)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrInvalidPin
	}

	secrets, err := s.API.ListSecrets(ctx, s.owner)
	if err != nil {
		return fmt.Errorf("list secrets: %w", err)
	}

	oldBytes, newBytes := []byte(oldPin), []byte(newPin)
	defer common.WipeByteArray(oldBytes)
	defer common.WipeByteArray(newBytes)

	oldKey, err := cryptox.DeriveKey(oldBytes)
	if err != nil {
		return err
	}
	newKey, err := cryptox.DeriveKey(newBytes)
	if err != nil {
		return err
	}

	rekeyed := make([]string, 0, len(secrets))
	for _, sec := range secrets {
		if err := s.rekey(ctx, sec, oldKey, newKey); err != nil {
			s.Logger.Error(ctx, "pin change stopped", "secret_id", sec.ID, "rekeyed", len(rekeyed), "err", err)
			return &common.PartialReKeyError{Rekeyed: rekeyed, FailedID: sec.ID, Err: err}
		}
		rekeyed = append(rekeyed, sec.ID)
	}

	now := s.now()
	if err := s.API.UpsertPin(ctx, &models.PinRecord{
		OwnerID:   s.owner,
		Hash:      cryptox.HashPin(newBytes),
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return fmt.Errorf("secrets re-keyed but pin hash not stored: %w", err)
	}
	return nil
}

func (s *KMSService) rekey(ctx context.Context, sec models.Secret, oldKey, newKey *cryptox.Key) error {
	plain, err := oldKey.Open(sec.Envelope)
	if err != nil {
		if _, again := newKey.Open(sec.Envelope); again == nil {
			return nil
		}
		return err
	}
	defer common.WipeByteArray(plain)

	envelope, err := newKey.Seal(plain)
	if err != nil {
		return err
	}
	return s.API.UpdateSecretEnvelope(ctx, s.owner, sec.ID, envelope, s.now())
}

// State reports the current gate state.
func (s *KMSService) State(ctx context.Context) (KMSState, error) {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if active > 0 {
		return StateVerified, nil
	}

	has, err := s.CheckHasPin(ctx)
	if err != nil {
		return StateNoPin, err
	}
	if !has {
		return StateNoPin, nil
	}
	return StateLocked, nil
}

// WithVerifiedPin runs action only if pin matches the stored hash. The
// verified state lasts exactly as long as action; there is no unlocked session.
func (s *KMSService) WithVerifiedPin(ctx context.Context, pin string, action func(ctx context.Context) error) error {
	ok, err := s.VerifyPin(ctx, pin)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrInvalidPin
	}

	s.mu.Lock()
	s.active++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
	}()

	return action(ctx)
}
