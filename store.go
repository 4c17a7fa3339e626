package vitalband

import (
	"context"
	"encoding/json"

	"github.com/goliatone/go-errors"
)

const (
	// StorageKeyToken holds the raw bearer token string.
	StorageKeyToken = "token"
	// StorageKeyUser holds the serialized User record.
	StorageKeyUser = "user"
)

// SessionStore persists the current session across process restarts under two
// well-known keys. It enforces the ordering invariant that makes the pair
// fully-present-or-absent without a cross-key transaction: writes land token
// first then user, clears remove user first then token, so no reader ever
// observes a user record without its token.
type SessionStore struct {
	storage Storage
	logger  Logger
}

// SessionStoreOption customizes store construction.
type SessionStoreOption func(*SessionStore)

// WithStoreLogger overrides the logger used for corruption warnings.
func WithStoreLogger(logger Logger) SessionStoreOption {
	return func(s *SessionStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSessionStore wraps a Storage substrate. A nil substrate falls back to an
// in-process MemoryStorage.
func NewSessionStore(storage Storage, opts ...SessionStoreOption) *SessionStore {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	s := &SessionStore{storage: storage, logger: defLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Read returns the persisted session, or nil when absent. Any partial or
// unparsable state is treated as corruption: both keys are purged and the
// store reads as absent. Substrate failures are the only errors surfaced.
func (s *SessionStore) Read(ctx context.Context) (*Session, error) {
	token, hasToken, err := s.storage.Get(ctx, StorageKeyToken)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "session storage read failed")
	}
	rawUser, hasUser, err := s.storage.Get(ctx, StorageKeyUser)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "session storage read failed")
	}

	if !hasToken && !hasUser {
		return nil, nil
	}

	if !hasToken || !hasUser || token == "" {
		s.logger.Warn("session store holds a partial session, purging")
		return nil, s.purge(ctx)
	}

	user := &User{}
	if err := json.Unmarshal([]byte(rawUser), user); err != nil {
		s.logger.Warn("stored user record is unparsable, purging: %v", err)
		return nil, s.purge(ctx)
	}
	if !user.Valid() {
		s.logger.Warn("stored user record is incomplete, purging")
		return nil, s.purge(ctx)
	}

	return &Session{Token: token, User: user}, nil
}

// Write persists a complete session, token first. A partial session is
// rejected before anything touches the substrate.
func (s *SessionStore) Write(ctx context.Context, sess *Session) error {
	if !sess.Complete() {
		return ErrPartialSession
	}

	rawUser, err := json.Marshal(sess.User)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "could not serialize user record")
	}

	if err := s.storage.Set(ctx, StorageKeyToken, sess.Token); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "session storage write failed")
	}
	if err := s.storage.Set(ctx, StorageKeyUser, string(rawUser)); err != nil {
		// Do not leave a token without a user behind.
		if delErr := s.storage.Delete(ctx, StorageKeyToken); delErr != nil {
			s.logger.Error("could not roll back token after failed user write: %v", delErr)
		}
		return errors.Wrap(err, errors.CategoryOperation, "session storage write failed")
	}
	return nil
}

// Clear removes the session, user first. Clearing an absent session is a
// no-op.
func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.storage.Delete(ctx, StorageKeyUser); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "session storage clear failed")
	}
	if err := s.storage.Delete(ctx, StorageKeyToken); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "session storage clear failed")
	}
	return nil
}

func (s *SessionStore) purge(ctx context.Context) error {
	if err := s.Clear(ctx); err != nil {
		s.logger.Error("could not purge corrupted session: %v", err)
		return err
	}
	return nil
}
