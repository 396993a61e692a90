// Package store is the durable record layer for the portal: one
// profile record per identifier, unique secondary indexes for email
// and mobile, and keyed auxiliary side-tables for the authentication
// components (failure counters, account locks, OTP challenges).
//
// All state lives in Redis. Multi-key invariants are enforced with a
// server-side script (create) or a WATCH transaction (update), so
// concurrent writers can never leave a half-written profile or a
// dangling index entry behind.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "cp"

const (
	createStatusOK        int64 = 0
	createStatusDupID     int64 = 1
	createStatusDupEmail  int64 = 2
	createStatusDupMobile int64 = 3
)

// createProfileScript inserts the profile blob and both index entries
// only when none of the three keys exist. Scripts execute atomically,
// so two racing creates with the same identifier, email, or mobile
// cannot both succeed.
const createProfileScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 1
end
if redis.call("EXISTS", KEYS[2]) == 1 then
  return 2
end
if redis.call("EXISTS", KEYS[3]) == 1 then
  return 3
end
redis.call("SET", KEYS[1], ARGV[1])
redis.call("SET", KEYS[2], ARGV[2])
redis.call("SET", KEYS[3], ARGV[2])
return 0
`

var createProfileLua = redis.NewScript(createProfileScript)

// Store is the Redis-backed Record Store. A single instance is shared
// by all request handlers; per-identifier atomicity comes from Redis
// single-key command semantics plus the script/transaction paths.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// New creates a Store on the given client. prefix namespaces every
// key; pass "" for the default.
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) profileKey(id string) string {
	return s.prefix + ":p:" + id
}

func (s *Store) emailKey(email string) string {
	return s.prefix + ":e:" + strings.ToLower(email)
}

func (s *Store) mobileKey(mobile string) string {
	return s.prefix + ":m:" + mobile
}

// Create persists a new profile. The identifier, email, and mobile
// must all be unused; conflicts map to the typed duplicate errors so
// callers can re-prompt instead of blindly retrying.
func (s *Store) Create(ctx context.Context, p *Profile) error {
	if p == nil || p.Identifier == "" {
		return fmt.Errorf("%w: empty identifier", ErrCorrupt)
	}

	blob, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	keys := []string{
		s.profileKey(p.Identifier),
		s.emailKey(p.Email),
		s.mobileKey(p.Mobile),
	}
	status, err := createProfileLua.Run(ctx, s.redis, keys, blob, p.Identifier).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch status {
	case createStatusOK:
		return nil
	case createStatusDupID:
		return ErrDuplicateIdentifier
	case createStatusDupEmail:
		return ErrDuplicateEmail
	case createStatusDupMobile:
		return ErrDuplicateMobile
	default:
		return fmt.Errorf("%w: unexpected create status %d", ErrUnavailable, status)
	}
}

// Get returns the profile for id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Profile, error) {
	data, err := s.redis.Get(ctx, s.profileKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return decodeProfile(data)
}

// Update replaces the stored profile for p.Identifier. The write runs
// inside a WATCH transaction: a concurrent reader observes either the
// old record or the new one, never a mix, and index entries move
// atomically with the record when email or mobile changed.
func (s *Store) Update(ctx context.Context, p *Profile) error {
	if p == nil || p.Identifier == "" {
		return ErrNotFound
	}

	blob, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	const maxRetries = 4
	key := s.profileKey(p.Identifier)

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return ErrNotFound
				}
				return err
			}
			current, err := decodeProfile(data)
			if err != nil {
				return err
			}

			emailChanged := !strings.EqualFold(current.Email, p.Email)
			mobileChanged := current.Mobile != p.Mobile

			// The claimed index keys join the WATCH set before the
			// free check, so a rival claiming the same contact point
			// between check and EXEC fails this transaction instead
			// of committing alongside it.
			var claimed []string
			if emailChanged {
				claimed = append(claimed, s.emailKey(p.Email))
			}
			if mobileChanged {
				claimed = append(claimed, s.mobileKey(p.Mobile))
			}
			if len(claimed) > 0 {
				if err := tx.Watch(ctx, claimed...).Err(); err != nil {
					return err
				}
			}

			if emailChanged {
				if err := s.checkIndexFree(ctx, tx, s.emailKey(p.Email), ErrDuplicateEmail); err != nil {
					return err
				}
			}
			if mobileChanged {
				if err := s.checkIndexFree(ctx, tx, s.mobileKey(p.Mobile), ErrDuplicateMobile); err != nil {
					return err
				}
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, blob, 0)
				if emailChanged {
					pipe.Del(ctx, s.emailKey(current.Email))
					pipe.Set(ctx, s.emailKey(p.Email), p.Identifier, 0)
				}
				if mobileChanged {
					pipe.Del(ctx, s.mobileKey(current.Mobile))
					pipe.Set(ctx, s.mobileKey(p.Mobile), p.Identifier, 0)
				}
				return nil
			})
			return err
		}, key)

		switch {
		case err == nil:
			return nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, ErrNotFound), IsDuplicate(err), errors.Is(err, ErrCorrupt):
			return err
		default:
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	return fmt.Errorf("%w: update contention not resolved", ErrUnavailable)
}

// FindByEmail resolves an email to the owning identifier.
func (s *Store) FindByEmail(ctx context.Context, email string) (string, error) {
	return s.lookupIndex(ctx, s.emailKey(email))
}

// FindByMobile resolves a mobile number to the owning identifier.
func (s *Store) FindByMobile(ctx context.Context, mobile string) (string, error) {
	return s.lookupIndex(ctx, s.mobileKey(mobile))
}

// Ping verifies the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *Store) lookupIndex(ctx context.Context, key string) (string, error) {
	id, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return id, nil
}

func (s *Store) checkIndexFree(ctx context.Context, tx *redis.Tx, key string, conflict error) error {
	owner, err := tx.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}
	_ = owner
	return conflict
}

func decodeProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if p.Identifier == "" {
		return nil, fmt.Errorf("%w: missing identifier", ErrCorrupt)
	}
	return &p, nil
}
