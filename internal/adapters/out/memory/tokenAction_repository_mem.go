// internal/adapters/out/memory/tokenAction_repository_mem.go
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	tadom "github.com/PraiseTechzw/solana-token-manager/internal/domain/tokenAction"
)

var _ tadom.RepositoryPort = (*TokenActionRepositoryMem)(nil)

// TokenActionRepositoryMem keeps the run journal in process memory.
type TokenActionRepositoryMem struct {
	mu   sync.RWMutex
	byID map[string]tadom.Record
}

func NewTokenActionRepositoryMem() *TokenActionRepositoryMem {
	return &TokenActionRepositoryMem{byID: make(map[string]tadom.Record)}
}

func (r *TokenActionRepositoryMem) Save(_ context.Context, rec tadom.Record) error {
	id := strings.TrimSpace(rec.ID)
	if id == "" {
		return tadom.ErrInvalidID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; ok {
		return tadom.ErrConflict
	}
	rec.ID = id
	r.byID[id] = rec
	return nil
}

func (r *TokenActionRepositoryMem) GetByID(_ context.Context, id string) (tadom.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[strings.TrimSpace(id)]
	if !ok {
		return tadom.Record{}, tadom.ErrNotFound
	}
	return rec, nil
}

func (r *TokenActionRepositoryMem) ListByOwner(_ context.Context, owner string, limit int) ([]tadom.Record, error) {
	owner = strings.TrimSpace(owner)
	r.mu.RLock()
	out := make([]tadom.Record, 0)
	for _, rec := range r.byID {
		if owner != "" && rec.Owner == owner {
			out = append(out, rec)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].FinishedAt.Equal(out[j].FinishedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].FinishedAt.After(out[j].FinishedAt)
	})
	if n := tadom.NormalizeLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}
