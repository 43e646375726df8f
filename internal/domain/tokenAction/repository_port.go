// internal/domain/tokenAction/repository_port.go
package tokenAction

import "context"

// DefaultListLimit / MaxListLimit bound ListByOwner.
const (
	DefaultListLimit = 20
	MaxListLimit     = 200
)

// RepositoryPort persists finished runs.
//
// Adapter examples:
//   - in-memory (default, single process)
//   - Firestore
//   - PostgreSQL
type RepositoryPort interface {
	Save(ctx context.Context, r Record) error
	GetByID(ctx context.Context, id string) (Record, error)
	// ListByOwner returns the newest records first.
	ListByOwner(ctx context.Context, owner string, limit int) ([]Record, error)
}

// NormalizeLimit clamps a caller-provided limit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
