package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"filippo.io/age"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
)

// Snapshotter writes a consistent copy of a database to a new file.
type Snapshotter interface {
	Snapshot(ctx context.Context, dst string) error
}

// ErrNoPassphrase is returned when a backup is attempted without a passphrase.
var ErrNoPassphrase = errors.New("backup passphrase is not configured")

const timestampLayout = "20060102T150405Z"

// Service takes encrypted snapshots and restores them.
type Service struct {
	store      Snapshotter
	target     Target
	passphrase string
	prefix     string
	owner      string
	logger     logging.Logger

	// workFactor is the scrypt log2 cost; zero keeps age's default.
	workFactor int
	now        func() time.Time
}

// Option adjusts a Service.
type Option func(*Service)

// WithWorkFactor sets the scrypt cost (log2) used for new backups.
func WithWorkFactor(logN int) Option {
	return func(s *Service) { s.workFactor = logN }
}

// WithClock overrides time.Now for object keys.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Snapshotter, target Target, passphrase, prefix, owner string, logger logging.Logger, opts ...Option) *Service {
	s := &Service{
		store:      store,
		target:     target,
		passphrase: passphrase,
		prefix:     prefix,
		owner:      owner,
		logger:     logger,
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Key is the object key of a backup taken at t.
func (s *Service) Key(t time.Time) string {
	return path.Join(s.prefix, s.owner, t.UTC().Format(timestampLayout)+".db.age")
}

// Run snapshots the local store, encrypts the snapshot and uploads it.
// It returns the object key.
func (s *Service) Run(ctx context.Context) (string, error) {
	if s.passphrase == "" {
		return "", ErrNoPassphrase
	}
	started := s.now()

	dir, err := os.MkdirTemp("", "gophnotes-backup-")
	if err != nil {
		return "", fmt.Errorf("backup temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	plain := filepath.Join(dir, "snapshot.db")
	if err := s.store.Snapshot(ctx, plain); err != nil {
		return "", err
	}

	sealed, size, err := s.encrypt(plain, filepath.Join(dir, "snapshot.db.age"))
	if err != nil {
		return "", err
	}
	defer sealed.Close()

	key := s.Key(started)
	if err := s.target.Put(ctx, key, sealed, size); err != nil {
		s.logger.Error(ctx, "backup upload failed", "key", key, "err", err)
		return "", err
	}

	s.logger.Info(ctx, "backup stored", "key", key, "bytes", size, "took", s.now().Sub(started))
	return key, nil
}

// encrypt writes an age file for src and returns it rewound for reading.
func (s *Service) encrypt(src, dst string) (*os.File, int64, error) {
	recipient, err := age.NewScryptRecipient(s.passphrase)
	if err != nil {
		return nil, 0, fmt.Errorf("scrypt recipient: %w", err)
	}
	if s.workFactor > 0 {
		recipient.SetWorkFactor(s.workFactor)
	}

	in, err := os.Open(src)
	if err != nil {
		return nil, 0, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, 0, err
	}

	w, err := age.Encrypt(out, recipient)
	if err != nil {
		out.Close()
		return nil, 0, fmt.Errorf("age encrypt: %w", err)
	}
	if _, err := io.Copy(w, in); err != nil {
		out.Close()
		return nil, 0, fmt.Errorf("encrypt snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		out.Close()
		return nil, 0, fmt.Errorf("finalize snapshot: %w", err)
	}

	size, err := out.Seek(0, io.SeekCurrent)
	if err == nil {
		_, err = out.Seek(0, io.SeekStart)
	}
	if err != nil {
		out.Close()
		return nil, 0, err
	}
	return out, size, nil
}

// Restore downloads the backup stored under key, decrypts it and writes the
// database to dst. dst is replaced only after the whole file decrypted.
func (s *Service) Restore(ctx context.Context, key, dst string) error {
	if s.passphrase == "" {
		return ErrNoPassphrase
	}
	identity, err := age.NewScryptIdentity(s.passphrase)
	if err != nil {
		return fmt.Errorf("scrypt identity: %w", err)
	}

	body, err := s.target.Get(ctx, key)
	if err != nil {
		return err
	}
	defer body.Close()

	r, err := age.Decrypt(body, identity)
	if err != nil {
		return fmt.Errorf("decrypt backup %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".restore-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("decrypt backup %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("install restored db: %w", err)
	}

	s.logger.Info(ctx, "backup restored", "key", key, "dst", dst)
	return nil
}
