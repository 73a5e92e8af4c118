// Package bolt provides a bbolt-backed session repository for single-node deployments.
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	domainauth "github.com/target/sessionauth/internal/domain/auth"
	"github.com/target/sessionauth/internal/ports"
	"go.etcd.io/bbolt"
)

// Sentinel errors returned for malformed or conflicting records.
var (
	ErrSessionIDRequired = errors.New("session_id is required")
	ErrUserIDRequired    = errors.New("user_id is required")
	ErrDuplicateSession  = errors.New("session already exists")
)

var bucketName = []byte("user_sessions")

var _ ports.SessionRepository = (*SessionRepository)(nil)

// SessionRepository implements ports.SessionRepository on a bbolt file.
// Records are JSON values keyed by session ID in a single bucket.
type SessionRepository struct {
	db *bbolt.DB
}

// NewSessionRepository wraps db and makes sure the sessions bucket exists.
func NewSessionRepository(db *bbolt.DB) (*SessionRepository, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create sessions bucket: %w", err)
	}
	return &SessionRepository{db: db}, nil
}

// OpenFile opens (or creates) the bbolt database at path.
func OpenFile(path string, timeout time.Duration) (*SessionRepository, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	repo, err := NewSessionRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the underlying bbolt database.
func (r *SessionRepository) Close() error {
	return r.db.Close()
}

// Save inserts a record. An existing ID yields ErrDuplicateSession.
func (r *SessionRepository) Save(ctx context.Context, sess domainauth.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(sess.ID) == "" {
		return ErrSessionIDRequired
	}
	if strings.TrimSpace(sess.UserID) == "" {
		return ErrUserIDRequired
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b.Get([]byte(sess.ID)) != nil {
			return fmt.Errorf("%s: %w", sess.ID, ErrDuplicateSession)
		}
		return b.Put([]byte(sess.ID), data)
	})
}

// Search returns matching records ordered by creation time, then ID.
func (r *SessionRepository) Search(ctx context.Context, filter ports.SessionFilter) ([]domainauth.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []domainauth.Session{}
	err := r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if filter.SessionID != "" {
			data := b.Get([]byte(filter.SessionID))
			if data == nil {
				return nil
			}
			sess, err := decode(filter.SessionID, data)
			if err != nil {
				return err
			}
			if filter.UserID == "" || sess.UserID == filter.UserID {
				out = append(out, sess)
			}
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			sess, err := decode(string(k), v)
			if err != nil {
				return err
			}
			if filter.UserID == "" || sess.UserID == filter.UserID {
				out = append(out, sess)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, domainauth.CompareSessions)
	return out, nil
}

// Remove deletes the record for sess.ID. Missing records are not an error.
func (r *SessionRepository) Remove(ctx context.Context, sess domainauth.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if sess.ID == "" {
		return ErrSessionIDRequired
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(sess.ID))
	})
}

// Count returns the number of stored records.
func (r *SessionRepository) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int
	err := r.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketName).Stats().KeyN
		return nil
	})
	return n, err
}

// PurgeCreatedBefore deletes every record created before cutoff.
func (r *SessionRepository) PurgeCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	err := r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			sess, err := decode(string(k), v)
			if err != nil {
				return err
			}
			if sess.CreatedAt.Before(cutoff) {
				// keys are only valid for the life of the transaction
				stale = append(stale, slices.Clone(k))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		n = int64(len(stale))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func decode(id string, data []byte) (domainauth.Session, error) {
	var sess domainauth.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return domainauth.Session{}, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	return sess, nil
}
