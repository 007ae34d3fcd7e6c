// Package revocation provides an in-memory revocation checker, used by the
// CLI and in tests where no database is configured.
package revocation

import (
	"context"
	"sync"

	"veritas/internal/domain"
)

type Memory struct {
	mu      sync.RWMutex
	revoked map[string]domain.Revocation
}

func NewMemory() *Memory {
	return &Memory{revoked: map[string]domain.Revocation{}}
}

func key(issuer, serial string) string {
	return issuer + "\x00" + serial
}

func (m *Memory) Revoke(rev domain.Revocation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[key(rev.Issuer, rev.Serial)] = rev
}

// Status reports Revoked for recorded entries and Good otherwise. The
// in-memory checker is authoritative for what it holds, so it never returns
// Unknown.
func (m *Memory) Status(_ context.Context, issuer, serial string) (domain.RevocationStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.revoked[key(issuer, serial)]; ok {
		return domain.RevocationStatusRevoked, nil
	}
	return domain.RevocationStatusGood, nil
}
