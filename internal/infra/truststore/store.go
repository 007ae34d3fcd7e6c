// Package truststore holds the process-wide set of trusted attestation
// roots. The current snapshot is published through an atomic pointer:
// readers never block and never observe a partially built root set, and a
// failed refresh leaves the previous snapshot untouched.
package truststore

import (
	"os"
	"sync/atomic"
	"time"

	"veritas/internal/domain"
)

type Store struct {
	current atomic.Pointer[domain.TrustSnapshot]
	version atomic.Uint64
	now     func() time.Time
}

func NewStore() *Store {
	s := &Store{now: time.Now}
	s.current.Store(&domain.TrustSnapshot{})
	return s
}

// Current returns the latest published snapshot. The returned snapshot is
// immutable; callers hold it for the duration of one verification.
func (s *Store) Current() *domain.TrustSnapshot {
	return s.current.Load()
}

// Replace parses the given PEM bundle and atomically publishes it as the new
// snapshot. On any parse or validation error the store is unchanged.
func (s *Store) Replace(pemBundle []byte) (*domain.TrustSnapshot, error) {
	roots, err := ParseRoots(pemBundle, s.now())
	if err != nil {
		return nil, err
	}
	snap := &domain.TrustSnapshot{
		Version:   s.version.Add(1),
		FetchedAt: s.now(),
		Roots:     roots,
	}
	s.current.Store(snap)
	return snap, nil
}

// SeedFromFile loads an initial PEM bundle from disk so the daemon can
// verify before the first feed refresh completes.
func (s *Store) SeedFromFile(path string) (*domain.TrustSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return s.Replace(data)
}
