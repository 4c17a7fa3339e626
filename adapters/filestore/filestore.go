// Package filestore persists portal session state as one file per key under
// a private directory, the desktop analogue of a browser's local storage.
// Values can optionally be sealed at rest with a passphrase-derived key.
package filestore

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	defaultDirMode  = os.FileMode(0o700)
	defaultFileMode = os.FileMode(0o600)
	saltSize        = 16
)

// Store keeps each key in its own file inside dir. Writes go through a temp
// file plus rename so readers never observe a half written value.
type Store struct {
	dir      string
	fileMode os.FileMode
	sealKey  []byte
}

type Option func(*Store)

// WithFileMode overrides the permission bits used for value files.
func WithFileMode(mode os.FileMode) Option {
	return func(s *Store) {
		if mode != 0 {
			s.fileMode = mode
		}
	}
}

// WithSealingKey enables at rest sealing. The passphrase is stretched with
// scrypt per value; an empty passphrase leaves values in the clear.
func WithSealingKey(passphrase string) Option {
	return func(s *Store) {
		if passphrase != "" {
			s.sealKey = []byte(passphrase)
		}
	}
}

// New creates the backing directory if needed and returns a ready Store.
func New(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, goerrors.New("filestore: directory is required", goerrors.CategoryBadInput)
	}

	s := &Store{
		dir:      dir,
		fileMode: defaultFileMode,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if err := os.MkdirAll(dir, defaultDirMode); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "filestore: could not create directory").
			WithMetadata(map[string]any{"dir": dir})
	}

	return s, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, goerrors.Wrap(err, goerrors.CategoryOperation, "filestore: context done")
	}

	raw, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, goerrors.Wrap(err, goerrors.CategoryOperation, "filestore: read failed").
			WithMetadata(map[string]any{"key": key})
	}

	value, err := s.open(raw)
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "filestore: context done")
	}

	payload, err := s.seal(value)
	if err != nil {
		return err
	}

	target := s.path(key)
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "filestore: could not create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return goerrors.Wrap(err, goerrors.CategoryOperation, "filestore: write failed").
			WithMetadata(map[string]any{"key": key})
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return goerrors.Wrap(err, goerrors.CategoryOperation, "filestore: close failed")
	}
	if err := os.Chmod(tmpName, s.fileMode); err != nil {
		os.Remove(tmpName)
		return goerrors.Wrap(err, goerrors.CategoryOperation, "filestore: chmod failed")
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return goerrors.Wrap(err, goerrors.CategoryOperation, "filestore: rename failed").
			WithMetadata(map[string]any{"key": key})
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "filestore: context done")
	}

	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "filestore: delete failed").
			WithMetadata(map[string]any{"key": key})
	}
	return nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, sanitizeKey(key))
}

// sanitizeKey keeps keys inside the store directory regardless of input.
func sanitizeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

func (s *Store) seal(value string) ([]byte, error) {
	if s.sealKey == nil {
		return []byte(value), nil
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "filestore: could not generate salt")
	}

	key, err := scrypt.Key(s.sealKey, salt, 1<<15, 8, 1, chacha20poly1305.KeySize)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "filestore: key derivation failed")
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "filestore: cipher init failed")
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "filestore: could not generate nonce")
	}

	sealed := aead.Seal(nil, nonce, []byte(value), nil)

	blob := make([]byte, 0, len(salt)+len(nonce)+len(sealed))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, sealed...)

	out := "v1:" + base64.StdEncoding.EncodeToString(blob)
	return []byte(out), nil
}

func (s *Store) open(raw []byte) (string, error) {
	if s.sealKey == nil {
		return string(raw), nil
	}

	text := strings.TrimPrefix(string(raw), "v1:")
	if text == string(raw) {
		return "", goerrors.New("filestore: value is not sealed", goerrors.CategoryOperation)
	}

	blob, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryOperation, "filestore: corrupt sealed value")
	}

	nonceSize := chacha20poly1305.NonceSizeX
	if len(blob) < saltSize+nonceSize {
		return "", goerrors.New("filestore: sealed value too short", goerrors.CategoryOperation)
	}

	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+nonceSize]
	sealed := blob[saltSize+nonceSize:]

	key, err := scrypt.Key(s.sealKey, salt, 1<<15, 8, 1, chacha20poly1305.KeySize)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "filestore: key derivation failed")
	}

	cipher, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "filestore: cipher init failed")
	}

	plain, err := cipher.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryOperation, "filestore: could not unseal value")
	}
	return string(plain), nil
}
