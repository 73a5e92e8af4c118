// Package redis provides Redis-backed adapters for session persistence.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	domainauth "github.com/target/sessionauth/internal/domain/auth"
	apperrors "github.com/target/sessionauth/internal/errors"
	"github.com/target/sessionauth/internal/ports"
)

// Sentinel errors returned for malformed records.
var (
	ErrSessionIDRequired = errors.New("session_id is required")
	ErrUserIDRequired    = errors.New("user_id is required")
	ErrDuplicateSession  = errors.New("session already exists")
)

const (
	defaultPrefix = "sessionauth:"
	sessionKey    = "session:"
	userKey       = "user_sessions:"
	createdKey    = "sessions_by_created"
)

var _ ports.SessionRepository = (*SessionRepository)(nil)

// SessionRepository stores session records in Redis.
//
// Layout (all keys under the configured prefix):
//
//	session:<id>          JSON record
//	user_sessions:<user>  SET of session IDs
//	sessions_by_created   ZSET of session IDs scored by created_at (unix micros)
//
// Index entries can outlive their record when a TTL is set; readers skip them
// and PurgeCreatedBefore removes them.
type SessionRepository struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RepositoryOption configures a SessionRepository.
type RepositoryOption func(*SessionRepository)

// WithPrefix namespaces every key. The default is "sessionauth:".
func WithPrefix(prefix string) RepositoryOption {
	return func(r *SessionRepository) { r.prefix = prefix }
}

// WithTTL lets Redis evict records on its own after ttl. Zero disables it.
func WithTTL(ttl time.Duration) RepositoryOption {
	return func(r *SessionRepository) { r.ttl = ttl }
}

// NewSessionRepository creates a Redis-backed session repository.
func NewSessionRepository(client redis.UniversalClient, opts ...RepositoryOption) *SessionRepository {
	r := &SessionRepository{client: client, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *SessionRepository) sessionKey(id string) string { return r.prefix + sessionKey + id }
func (r *SessionRepository) userKey(uid string) string   { return r.prefix + userKey + uid }
func (r *SessionRepository) createdKey() string          { return r.prefix + createdKey }

// Save writes a new record. An existing ID yields ErrDuplicateSession.
func (r *SessionRepository) Save(ctx context.Context, sess domainauth.Session) error {
	if strings.TrimSpace(sess.ID) == "" {
		return ErrSessionIDRequired
	}
	if strings.TrimSpace(sess.UserID) == "" {
		return ErrUserIDRequired
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ok, err := r.client.SetNX(ctx, r.sessionKey(sess.ID), data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", classify(err))
	}
	if !ok {
		return fmt.Errorf("%s: %w", sess.ID, ErrDuplicateSession)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, r.userKey(sess.UserID), sess.ID)
		pipe.ZAdd(ctx, r.createdKey(), redis.Z{Score: float64(sess.CreatedAt.UnixMicro()), Member: sess.ID})
		if r.ttl > 0 {
			pipe.Expire(ctx, r.userKey(sess.UserID), r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis index session: %w", classify(err))
	}
	return nil
}

// Search returns matching records ordered by creation time, then ID.
func (r *SessionRepository) Search(ctx context.Context, filter ports.SessionFilter) ([]domainauth.Session, error) {
	var ids []string
	var err error
	switch {
	case filter.SessionID != "":
		ids = []string{filter.SessionID}
	case filter.UserID != "":
		ids, err = r.client.SMembers(ctx, r.userKey(filter.UserID)).Result()
	default:
		ids, err = r.client.ZRange(ctx, r.createdKey(), 0, -1).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("redis list session ids: %w", classify(err))
	}

	sessions, err := r.load(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := sessions[:0]
	for _, sess := range sessions {
		if filter.UserID != "" && sess.UserID != filter.UserID {
			continue
		}
		out = append(out, sess)
	}
	slices.SortFunc(out, domainauth.CompareSessions)
	return out, nil
}

// Remove deletes the record and its index entries. Missing records are not an error.
func (r *SessionRepository) Remove(ctx context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return ErrSessionIDRequired
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		r.unlink(ctx, pipe, sess)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis remove session: %w", classify(err))
	}
	return nil
}

// PurgeCreatedBefore removes every record created before cutoff and reports how
// many live records were removed. Dangling index entries are dropped as well.
func (r *SessionRepository) PurgeCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ids, err := r.client.ZRangeByScore(ctx, r.createdKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(ceilMicro(cutoff), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("redis range sessions: %w", classify(err))
	}
	if len(ids) == 0 {
		return 0, nil
	}

	sessions, err := r.load(ctx, ids)
	if err != nil {
		return 0, err
	}

	live := make(map[string]domainauth.Session, len(sessions))
	for _, sess := range sessions {
		live[sess.ID] = sess
	}

	var purged int64
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			sess, ok := live[id]
			if !ok {
				pipe.ZRem(ctx, r.createdKey(), id)
				continue
			}
			if !sess.CreatedAt.Before(cutoff) {
				continue
			}
			r.unlink(ctx, pipe, sess)
			purged++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis purge sessions: %w", classify(err))
	}
	return purged, nil
}

// Count reports the size of the creation index. Entries whose record already
// expired through the TTL are included until the next purge.
func (r *SessionRepository) Count(ctx context.Context) (int, error) {
	n, err := r.client.ZCard(ctx, r.createdKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("redis count sessions: %w", classify(err))
	}
	return int(n), nil
}

func (r *SessionRepository) unlink(ctx context.Context, pipe redis.Pipeliner, sess domainauth.Session) {
	pipe.Del(ctx, r.sessionKey(sess.ID))
	pipe.ZRem(ctx, r.createdKey(), sess.ID)
	if sess.UserID != "" {
		pipe.SRem(ctx, r.userKey(sess.UserID), sess.ID)
	}
}

// load fetches records for ids, skipping IDs whose record no longer exists.
func (r *SessionRepository) load(ctx context.Context, ids []string) ([]domainauth.Session, error) {
	if len(ids) == 0 {
		return []domainauth.Session{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.sessionKey(id)
	}

	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget sessions: %w", classify(err))
	}

	out := make([]domainauth.Session, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var sess domainauth.Session
		if err := json.Unmarshal([]byte(raw), &sess); err != nil {
			return nil, fmt.Errorf("unmarshal session %s: %w", ids[i], err)
		}
		out = append(out, sess)
	}
	return out, nil
}

// classify tags transport faults so callers can tell an unreachable or slow
// Redis apart from other failures.
func classify(err error) error {
	var netErr net.Error
	isNet := errors.As(err, &netErr)
	switch {
	case errors.Is(err, context.DeadlineExceeded), isNet && netErr.Timeout():
		return apperrors.Wrap(err, apperrors.ErrCodeTimeout, "redis operation timed out")
	case isNet, errors.Is(err, redis.ErrClosed), errors.Is(err, redis.ErrPoolTimeout):
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "redis unavailable")
	default:
		return err
	}
}

func ceilMicro(t time.Time) int64 {
	us := t.UnixMicro()
	if t.Sub(time.UnixMicro(us)) > 0 {
		us++
	}
	return us
}
