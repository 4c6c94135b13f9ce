package auth

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultSecretID is the id of the secret created at start up
	DefaultSecretID = "sec0"

	secretIDPrefix = "sec"
)

type secretEntry struct {
	secret    Secret
	createdAt time.Time
	// retiredAt is zero while the entry is current
	retiredAt time.Time
}

// secretSnapshot is never mutated once published
type secretSnapshot struct {
	currentID string
	entries   map[string]secretEntry
}

func (s *secretSnapshot) clone() *secretSnapshot {
	entries := make(map[string]secretEntry, len(s.entries)+1)
	for id, e := range s.entries {
		entries[id] = e
	}
	return &secretSnapshot{currentID: s.currentID, entries: entries}
}

// SecretStore holds the signing secrets by id. Readers load an immutable
// snapshot, writers publish a modified copy, so a reader sees either the
// old or the new set of secrets and never a partial rotation.
type SecretStore struct {
	snapshot atomic.Pointer[secretSnapshot]

	// mu serializes writers
	mu        sync.Mutex
	seq       int
	pruned    map[string]struct{}
	generate  func() (Secret, error)
	now       func() time.Time
	retention time.Duration
	logger    Logger
	sink      ActivitySink

	initialID     string
	initialSecret Secret
}

// SecretStoreOption customizes a SecretStore
type SecretStoreOption func(*SecretStore)

// WithSecretStoreClock injects a custom clock (useful for tests).
func WithSecretStoreClock(clock func() time.Time) SecretStoreOption {
	return func(s *SecretStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithSecretRetention sets how long a retired secret stays available for
// verification. It must be at least the token TTL.
func WithSecretRetention(d time.Duration) SecretStoreOption {
	return func(s *SecretStore) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithSecretGenerator replaces GenerateSecret.
func WithSecretGenerator(gen func() (Secret, error)) SecretStoreOption {
	return func(s *SecretStore) {
		if gen != nil {
			s.generate = gen
		}
	}
}

// WithInitialSecret starts the store with a known secret instead of a
// generated one. Services that verify each other's tokens share it.
// Rotation is local to a store: secrets it generates are not shared, so
// services relying on a shared secret should not rotate.
func WithInitialSecret(id string, secret Secret) SecretStoreOption {
	return func(s *SecretStore) {
		s.initialID = id
		s.initialSecret = secret
	}
}

// WithSecretStoreLogger sets the logger
func WithSecretStoreLogger(logger Logger) SecretStoreOption {
	return func(s *SecretStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSecretStoreActivitySink sets the ActivitySink for rotation events.
func WithSecretStoreActivitySink(sink ActivitySink) SecretStoreOption {
	return func(s *SecretStore) {
		s.sink = normalizeActivitySink(sink)
	}
}

// NewSecretStore returns a store with exactly one current secret, either
// the configured initial secret or a freshly generated one under
// DefaultSecretID.
func NewSecretStore(opts ...SecretStoreOption) (*SecretStore, error) {
	s := &SecretStore{
		generate:  GenerateSecret,
		now:       time.Now,
		retention: DefaultTokenTTL,
		logger:    defLogger{},
		sink:      noopActivitySink{},
		initialID: DefaultSecretID,
		pruned:    map[string]struct{}{},
	}

	for _, opt := range opts {
		opt(s)
	}

	s.snapshot.Store(&secretSnapshot{entries: map[string]secretEntry{}})

	secret := s.initialSecret
	if secret == "" {
		var err error
		if secret, err = s.generate(); err != nil {
			return nil, err
		}
	}

	if err := s.Install(s.initialID, secret); err != nil {
		return nil, err
	}

	return s, nil
}

// Current returns the id and secret used to sign new tokens
func (s *SecretStore) Current() (string, Secret) {
	snap := s.snapshot.Load()
	if snap == nil {
		return "", ""
	}
	return snap.currentID, snap.entries[snap.currentID].secret
}

// ByID returns the secret registered under id. Unknown ids return false.
func (s *SecretStore) ByID(id string) (Secret, bool) {
	snap := s.snapshot.Load()
	if snap == nil {
		return "", false
	}
	e, ok := snap.entries[id]
	if !ok {
		return "", false
	}
	return e.secret, true
}

// IDs lists the known secret ids in order
func (s *SecretStore) IDs() []string {
	snap := s.snapshot.Load()
	if snap == nil {
		return nil
	}
	ids := make([]string, 0, len(snap.entries))
	for id := range snap.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Retention returns how long retired secrets are kept
func (s *SecretStore) Retention() time.Duration {
	return s.retention
}

// Generate returns a new secret from the store's generator
func (s *SecretStore) Generate() (Secret, error) {
	return s.generate()
}

// Rotate generates a secret and installs it as current under a new id.
// Previous secrets are retired, not removed.
func (s *SecretStore) Rotate() (string, error) {
	secret, err := s.generate()
	if err != nil {
		s.logger.Error("secret rotation failed to generate secret: %v", err)
		return "", err
	}

	s.mu.Lock()
	id := s.nextIDLocked()
	err = s.installLocked(id, secret)
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("secret rotation failed to install %s: %v", id, err)
		return "", err
	}

	s.logger.Info("secret rotated, current secret id %s", id)
	emitActivity(context.Background(), s.sink, s.logger, ActivityEvent{
		EventType:  ActivityEventSecretRotated,
		SecretID:   id,
		OccurredAt: s.now(),
	})

	return id, nil
}

// Install makes secret current under id. Installing the current id with
// the same secret again is a no-op; reusing an id for a different secret,
// or re-activating a retired id, breaks tokens already signed and is
// rejected. That holds for pruned ids too.
func (s *SecretStore) Install(id string, secret Secret) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.installLocked(id, secret)
}

func (s *SecretStore) installLocked(id string, secret Secret) error {
	if strings.TrimSpace(id) == "" || strings.Contains(id, ".") {
		return ErrSecretIntegrity
	}

	if len(secret) < MinSecretLength {
		return ErrWeakSecret
	}

	if _, gone := s.pruned[id]; gone {
		return ErrSecretIntegrity
	}

	current := s.snapshot.Load()

	if existing, ok := current.entries[id]; ok {
		if id == current.currentID && existing.secret == secret {
			return nil
		}
		return ErrSecretIntegrity
	}

	now := s.now()
	next := current.clone()

	if prev, ok := next.entries[next.currentID]; ok {
		prev.retiredAt = now
		next.entries[next.currentID] = prev
	}

	next.entries[id] = secretEntry{secret: secret, createdAt: now}
	next.currentID = id

	s.snapshot.Store(next)
	return nil
}

// Prune removes retired secrets whose retention horizon has passed. Tokens
// signed with them are expired by then. The current secret is never removed.
func (s *SecretStore) Prune() []string {
	s.mu.Lock()

	now := s.now()
	current := s.snapshot.Load()

	var removed []string
	for id, e := range current.entries {
		if id == current.currentID || e.retiredAt.IsZero() {
			continue
		}
		if now.After(e.retiredAt.Add(s.retention)) {
			removed = append(removed, id)
		}
	}

	if len(removed) > 0 {
		next := current.clone()
		for _, id := range removed {
			delete(next.entries, id)
			s.pruned[id] = struct{}{}
		}
		s.snapshot.Store(next)
	}

	s.mu.Unlock()

	sort.Strings(removed)
	for _, id := range removed {
		s.logger.Info("secret %s pruned", id)
		emitActivity(context.Background(), s.sink, s.logger, ActivityEvent{
			EventType:  ActivityEventSecretPruned,
			SecretID:   id,
			OccurredAt: now,
		})
	}

	return removed
}

// RunRotation rotates and prunes every interval until ctx is done. Ids are
// generated per store, so two processes rotating from the same initial
// secret end up with different secrets under the same id.
func (s *SecretStore) RunRotation(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("rotation interval must be positive, got %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Rotate(); err != nil {
				// keep the current secret and try again next tick
				continue
			}
			s.Prune()
		}
	}
}

func (s *SecretStore) nextIDLocked() string {
	entries := s.snapshot.Load().entries
	for {
		s.seq++
		id := fmt.Sprintf("%s%d", secretIDPrefix, s.seq)
		if _, taken := entries[id]; taken {
			continue
		}
		if _, gone := s.pruned[id]; !gone {
			return id
		}
	}
}
