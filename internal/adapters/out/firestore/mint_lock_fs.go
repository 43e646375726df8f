// internal/adapters/out/firestore/mint_lock_fs.go
package firestore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrLockHeld  = errors.New("mint_lock: held by another holder")
	errLeaseLost = errors.New("mint_lock: lease lost")
)

const (
	DefaultLockTTL   = 2 * time.Minute
	defaultLockRetry = 500 * time.Millisecond
	renewTimeout     = 10 * time.Second
)

// MintLockFS is a lease lock stored in "workflow_locks/{key}".
// The holder renews the lease every TTL/3 until unlock. A lease whose expiresAt passed
// may be taken over, so a crashed holder does not block a mint forever.
type MintLockFS struct {
	Client *firestore.Client
	TTL    time.Duration
	Retry  time.Duration

	now   func() time.Time
	renew func(ctx context.Context, docID, key, holder string) error
}

func NewMintLockFS(client *firestore.Client, ttl time.Duration) *MintLockFS {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	l := &MintLockFS{
		Client: client,
		TTL:    ttl,
		Retry:  defaultLockRetry,
		now:    time.Now,
	}
	l.renew = l.renewLease
	return l
}

func (l *MintLockFS) col() *firestore.CollectionRef {
	return l.Client.Collection("workflow_locks")
}

// Lock blocks until the lease on key is acquired or ctx ends.
func (l *MintLockFS) Lock(ctx context.Context, key string) (func(), error) {
	if l == nil || l.Client == nil {
		return nil, errors.New("firestore client is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("mint_lock: key is empty")
	}
	docID := lockDocID(key)
	holder := uuid.NewString()

	for {
		err := l.tryAcquire(ctx, docID, key, holder)
		if err == nil {
			stop := l.keepAlive(docID, key, holder)
			var once sync.Once
			return func() {
				once.Do(func() {
					stop()
					// best-effort: release を失敗しても TTL で解放される
					if uerr := l.release(context.Background(), docID, holder); uerr != nil {
						log.Printf("[mint_lock] WARN: release failed key=%s err=%v", key, uerr)
					}
				})
			}, nil
		}
		if !errors.Is(err, ErrLockHeld) {
			return nil, err
		}

		t := time.NewTimer(l.Retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, fmt.Errorf("mint_lock: wait %s: %w", key, ctx.Err())
		case <-t.C:
		}
	}
}

func (l *MintLockFS) tryAcquire(ctx context.Context, docID, key, holder string) error {
	ref := l.col().Doc(docID)
	now := l.now().UTC()

	return l.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if err == nil && snap.Exists() && leaseHeldByOther(snap.Data(), holder, now) {
			return ErrLockHeld
		}
		return tx.Set(ref, l.leaseData(key, holder, now, now))
	})
}

// keepAlive renews the lease until the returned stop func is called.
func (l *MintLockFS) keepAlive(docID, key, holder string) (stop func()) {
	interval := l.TTL / 3
	if interval <= 0 {
		interval = time.Millisecond
	}
	renew := l.renew
	if renew == nil {
		renew = l.renewLease
	}
	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		tk := time.NewTicker(interval)
		defer tk.Stop()
		for {
			select {
			case <-done:
				return
			case <-tk.C:
				ctx, cancel := context.WithTimeout(context.Background(), renewTimeout)
				err := renew(ctx, docID, key, holder)
				cancel()
				if errors.Is(err, errLeaseLost) {
					log.Printf("[mint_lock] WARN: lease lost key=%s", key)
					return
				}
				if err != nil {
					// 次の tick で再試行
					log.Printf("[mint_lock] WARN: renew failed key=%s err=%v", key, err)
				}
			}
		}
	}()

	return func() {
		close(done)
		<-exited
	}
}

func (l *MintLockFS) renewLease(ctx context.Context, docID, key, holder string) error {
	ref := l.col().Doc(docID)
	return l.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errLeaseLost
			}
			return err
		}
		data := snap.Data()
		if h, _ := data["holder"].(string); h != holder {
			return errLeaseLost
		}
		now := l.now().UTC()
		acquiredAt, ok := data["acquiredAt"].(time.Time)
		if !ok {
			acquiredAt = now
		}
		return tx.Set(ref, l.leaseData(key, holder, acquiredAt, now))
	})
}

func (l *MintLockFS) leaseData(key, holder string, acquiredAt, now time.Time) map[string]any {
	return map[string]any{
		"key":        key,
		"holder":     holder,
		"acquiredAt": acquiredAt,
		"renewedAt":  now,
		"expiresAt":  now.Add(l.TTL),
	}
}

// leaseHeldByOther reports whether an unexpired lease belongs to someone else.
func leaseHeldByOther(data map[string]any, holder string, now time.Time) bool {
	if h, _ := data["holder"].(string); h == holder {
		return false
	}
	exp, ok := data["expiresAt"].(time.Time)
	return ok && exp.After(now)
}

func (l *MintLockFS) release(ctx context.Context, docID, holder string) error {
	ref := l.col().Doc(docID)
	return l.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil
			}
			return err
		}
		if h, _ := snap.Data()["holder"].(string); h != holder {
			// lease expired and was taken over
			return nil
		}
		return tx.Delete(ref)
	})
}

// Firestore document IDs cannot contain "/".
func lockDocID(key string) string {
	return strings.ReplaceAll(key, "/", "_")
}
