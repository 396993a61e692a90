package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Aux kinds used by the authentication components. Each kind gets its
// own key namespace so a counter can never shadow a challenge.
const (
	AuxCounter = "ctr"
	AuxLock    = "lock"
	AuxOTP     = "otp"
)

func (s *Store) auxKey(kind, id string) string {
	return s.prefix + ":x:" + kind + ":" + id
}

// PutAux writes an auxiliary record for id under kind. A zero ttl
// means no expiry.
func (s *Store) PutAux(ctx context.Context, kind, id string, value []byte, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.auxKey(kind, id), value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// GetAux reads the auxiliary record for id under kind, or ErrNotFound.
func (s *Store) GetAux(ctx context.Context, kind, id string) ([]byte, error) {
	data, err := s.redis.Get(ctx, s.auxKey(kind, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return data, nil
}

// DeleteAux removes the auxiliary record. Deleting a missing record is
// not an error.
func (s *Store) DeleteAux(ctx context.Context, kind, id string) error {
	if err := s.redis.Del(ctx, s.auxKey(kind, id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// IncrAux atomically increments the numeric record for id under kind
// and returns the new value. The record's ttl is set on first
// increment only, so a burst of failures shares one window.
func (s *Store) IncrAux(ctx context.Context, kind, id string, ttl time.Duration) (int64, error) {
	key := s.auxKey(kind, id)
	n, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n == 1 && ttl > 0 {
		if err := s.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return n, nil
}

// swapAuxScript writes the destination record (with a ttl when one is
// given) and deletes the source record in one atomic step.
const swapAuxScript = `
if tonumber(ARGV[2]) > 0 then
  redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
else
  redis.call("SET", KEYS[1], ARGV[1])
end
redis.call("DEL", KEYS[2])
return 1
`

var swapAuxLua = redis.NewScript(swapAuxScript)

// SwapAux atomically writes the record for setKind and deletes the
// record for delKind, both under the same id. For state transitions
// where two auxiliary records must change together, like trading a
// failure counter for a lock.
func (s *Store) SwapAux(ctx context.Context, setKind, delKind, id string, value []byte, ttl time.Duration) error {
	keys := []string{s.auxKey(setKind, id), s.auxKey(delKind, id)}
	if err := swapAuxLua.Run(ctx, s.redis, keys, value, ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

type commitError struct{ verdict error }

func (e *commitError) Error() string { return e.verdict.Error() }

// Commit wraps a verdict for UpdateAux callbacks: the write the
// callback returned is still applied, and verdict surfaces to the
// UpdateAux caller afterwards. A plain error from the callback aborts
// the write instead.
func Commit(verdict error) error {
	return &commitError{verdict: verdict}
}

// UpdateAux applies fn to the current auxiliary record inside a WATCH
// transaction. fn receives nil when no record exists and returns the
// replacement value and its ttl; a nil value deletes the record. A
// plain error from fn aborts the write; an error wrapped with Commit
// applies the write first and surfaces the verdict after. The
// read-modify-write is serialized per key, so concurrent verifies of
// the same challenge cannot both consume it.
func (s *Store) UpdateAux(ctx context.Context, kind, id string, fn func(current []byte) ([]byte, time.Duration, error)) error {
	const maxRetries = 4
	key := s.auxKey(kind, id)

	for i := 0; i < maxRetries; i++ {
		var verdict error

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			verdict = nil

			current, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if !errors.Is(err, redis.Nil) {
					return err
				}
				current = nil
			}

			next, ttl, err := fn(current)
			if err != nil {
				var ce *commitError
				if !errors.As(err, &ce) {
					return err
				}
				verdict = ce.verdict
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if next == nil {
					pipe.Del(ctx, key)
				} else {
					pipe.Set(ctx, key, next, ttl)
				}
				return nil
			})
			return err
		}, key)

		switch {
		case err == nil:
			return verdict
		case errors.Is(err, redis.TxFailedErr):
			continue
		default:
			return err
		}
	}

	return fmt.Errorf("%w: aux update contention not resolved", ErrUnavailable)
}
