package vitalband_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/keneth-urbizagastegui/vitalband"
)

// recordingStorage remembers the order of substrate operations so ordering
// invariants can be asserted.
type recordingStorage struct {
	mu   sync.Mutex
	data map[string]string
	ops  []string
}

func newRecordingStorage() *recordingStorage {
	return &recordingStorage{data: map[string]string{}}
}

func (s *recordingStorage) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "get "+key)
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *recordingStorage) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "set "+key)
	s.data[key] = value
	return nil
}

func (s *recordingStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "delete "+key)
	delete(s.data, key)
	return nil
}

func (s *recordingStorage) operations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.ops))
	copy(out, s.ops)
	return out
}

func (s *recordingStorage) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

func (s *recordingStorage) put(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// failingStorage fails selected operations to exercise error paths.
type failingStorage struct {
	inner   *recordingStorage
	failSet map[string]bool
	failGet map[string]bool
}

func newFailingStorage() *failingStorage {
	return &failingStorage{
		inner:   newRecordingStorage(),
		failSet: map[string]bool{},
		failGet: map[string]bool{},
	}
}

func (s *failingStorage) Get(ctx context.Context, key string) (string, bool, error) {
	if s.failGet[key] {
		return "", false, fmt.Errorf("substrate get failure on %s", key)
	}
	return s.inner.Get(ctx, key)
}

func (s *failingStorage) Set(ctx context.Context, key, value string) error {
	if s.failSet[key] {
		return fmt.Errorf("substrate set failure on %s", key)
	}
	return s.inner.Set(ctx, key, value)
}

func (s *failingStorage) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

// recordingNavigator captures forced redirects.
type recordingNavigator struct {
	mu       sync.Mutex
	location string
	history  []string
}

func (n *recordingNavigator) CurrentLocation() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.location
}

func (n *recordingNavigator) Navigate(to string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.location = to
	n.history = append(n.history, to)
}

func (n *recordingNavigator) visited() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.history))
	copy(out, n.history)
	return out
}

// collectingSink gathers activity events.
type collectingSink struct {
	mu     sync.Mutex
	events []vitalband.ActivityEvent
}

func (s *collectingSink) Record(ctx context.Context, event vitalband.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *collectingSink) byType(t vitalband.ActivityEventType) []vitalband.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []vitalband.ActivityEvent
	for _, e := range s.events {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}

var testSigningKey = []byte("test-signing-key")

// signToken issues an HS256 token with the API's claim shape: numeric
// subject, role and csrf strings.
func signToken(sub int64, role, csrf string, expiresIn time.Duration) string {
	claims := jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(expiresIn).Unix(),
	}
	if csrf != "" {
		claims["csrf"] = csrf
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)
	if err != nil {
		panic(err)
	}
	return token
}

func testUser() *vitalband.User {
	return &vitalband.User{
		ID:    7,
		Email: "pat@example.com",
		Role:  vitalband.RoleClient,
		Name:  "Pat",
	}
}

func adminUser() *vitalband.User {
	return &vitalband.User{
		ID:    1,
		Email: "admin@example.com",
		Role:  vitalband.RoleAdmin,
	}
}
