// internal/adapters/out/firestore/tokenAction_repository_fs.go
package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	tadom "github.com/PraiseTechzw/solana-token-manager/internal/domain/tokenAction"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/workflow"
)

// ========================================
// Firestore TokenAction (run journal) Repository
// ========================================

var _ tadom.RepositoryPort = (*TokenActionRepositoryFS)(nil)

// TokenActionRepositoryFS stores finished workflow runs in the "token_actions" collection.
type TokenActionRepositoryFS struct {
	Client *firestore.Client
}

func NewTokenActionRepositoryFS(client *firestore.Client) *TokenActionRepositoryFS {
	return &TokenActionRepositoryFS{Client: client}
}

func (r *TokenActionRepositoryFS) col() *firestore.CollectionRef {
	return r.Client.Collection("token_actions")
}

// Save creates the record. A run is journaled once; a second Save returns ErrConflict.
func (r *TokenActionRepositoryFS) Save(ctx context.Context, rec tadom.Record) error {
	if r.Client == nil {
		return errors.New("firestore client is nil")
	}
	id := strings.TrimSpace(rec.ID)
	if id == "" {
		return tadom.ErrInvalidID
	}

	if _, err := r.col().Doc(id).Create(ctx, recordToDoc(rec)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return tadom.ErrConflict
		}
		return err
	}
	return nil
}

func (r *TokenActionRepositoryFS) GetByID(ctx context.Context, id string) (tadom.Record, error) {
	if r.Client == nil {
		return tadom.Record{}, errors.New("firestore client is nil")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return tadom.Record{}, tadom.ErrNotFound
	}

	snap, err := r.col().Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return tadom.Record{}, tadom.ErrNotFound
	}
	if err != nil {
		return tadom.Record{}, err
	}
	return docToRecord(snap), nil
}

// ListByOwner returns the newest records of owner first.
// Needs the composite index (owner ASC, finishedAt DESC).
func (r *TokenActionRepositoryFS) ListByOwner(ctx context.Context, owner string, limit int) ([]tadom.Record, error) {
	if r.Client == nil {
		return nil, errors.New("firestore client is nil")
	}
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return []tadom.Record{}, nil
	}

	it := r.col().
		Where("owner", "==", owner).
		OrderBy("finishedAt", firestore.Desc).
		Limit(tadom.NormalizeLimit(limit)).
		Documents(ctx)
	defer it.Stop()

	out := make([]tadom.Record, 0)
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, docToRecord(snap))
	}
	return out, nil
}

// ========================================
// mapping
// ========================================

func recordToDoc(rec tadom.Record) map[string]any {
	return map[string]any{
		"action":     string(rec.Action),
		"owner":      strings.TrimSpace(rec.Owner),
		"mint":       strings.TrimSpace(rec.Mint),
		"outcome":    string(rec.Outcome),
		"reference":  rec.Reference,
		"signature":  rec.Signature,
		"warning":    rec.Warning,
		"reason":     string(rec.Reason),
		"message":    rec.Message,
		"startedAt":  rec.StartedAt.UTC(),
		"finishedAt": rec.FinishedAt.UTC(),
	}
}

func docToRecord(snap *firestore.DocumentSnapshot) tadom.Record {
	data := snap.Data()
	return tadom.Record{
		ID:         snap.Ref.ID,
		Action:     workflow.Action(mapString(data, "action")),
		Owner:      mapString(data, "owner"),
		Mint:       mapString(data, "mint"),
		Outcome:    workflow.Outcome(mapString(data, "outcome")),
		Reference:  mapString(data, "reference"),
		Signature:  mapString(data, "signature"),
		Warning:    mapString(data, "warning"),
		Reason:     workflow.ErrorKind(mapString(data, "reason")),
		Message:    mapString(data, "message"),
		StartedAt:  mapTime(data, "startedAt"),
		FinishedAt: mapTime(data, "finishedAt"),
	}
}

func mapString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func mapTime(m map[string]any, key string) time.Time {
	if v, ok := m[key].(time.Time); ok {
		return v.UTC()
	}
	return time.Time{}
}
