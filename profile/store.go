package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrProfileNotFound = errors.New("auth profile not found")
	ErrProfileBackend  = errors.New("auth profile backend unavailable")
)

// Store persists [UserAuthProfile] records in redis. Records have no TTL;
// only the codes inside them expire, by timestamp.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewStore(redisClient redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "aup"
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
		now:    time.Now,
	}
}

// WithClock overrides the store clock. Tests use it to pin UpdatedAt.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) key(userID string) string {
	return s.prefix + ":" + userID
}

func (s *Store) Get(ctx context.Context, userID string) (*UserAuthProfile, error) {
	data, err := s.redis.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrProfileBackend, err)
	}
	return decodeAuthProfile(data)
}

func (s *Store) Put(ctx context.Context, record *UserAuthProfile) error {
	record.UpdatedAt = s.now().Unix()
	encoded, err := encodeAuthProfile(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(record.UserID), encoded, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrProfileBackend, err)
	}
	return nil
}

// Mutate applies fn to the user's record under an optimistic redis
// transaction and persists the result. A missing record is materialized as a
// fresh one carrying only the user id, so first-touch flows (initial
// enrollment, disable before any setup) work without a separate create.
// fn returning an error aborts without writing.
func (s *Store) Mutate(ctx context.Context, userID string, fn func(*UserAuthProfile) error) (*UserAuthProfile, error) {
	const maxRetries = 4
	key := s.key(userID)

	for i := 0; i < maxRetries; i++ {
		var result *UserAuthProfile
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			record := &UserAuthProfile{UserID: userID}
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if err == nil {
				record, err = decodeAuthProfile(data)
				if err != nil {
					return err
				}
			}

			if err := fn(record); err != nil {
				return err
			}
			record.UpdatedAt = s.now().Unix()

			encoded, err := encodeAuthProfile(record)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, 0)
				return nil
			})
			if err == nil {
				result = record
			}
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, wrapMutateError(err)
		}
		return result, nil
	}

	return nil, fmt.Errorf("%w: transaction retries exceeded", ErrProfileBackend)
}

// DisableMFA wipes every MFA flag and code field on the record. It succeeds
// even when no record exists; disabling is the one write that must never be
// refused, since a stuck enabled flag locks the user into a challenge they
// may no longer be able to answer.
func (s *Store) DisableMFA(ctx context.Context, userID string) error {
	_, err := s.Mutate(ctx, userID, func(p *UserAuthProfile) error {
		p.MFAEnabled = false
		p.Method = MethodNone
		p.SecondaryEmail = ""
		p.ClearPending()
		p.ClearChallenge()
		return nil
	})
	return err
}

func wrapMutateError(err error) error {
	if errors.Is(err, ErrProfileNotFound) || errors.Is(err, ErrProfileBackend) {
		return err
	}
	if isCallerError(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrProfileBackend, err)
}

// isCallerError reports whether err came from the mutation callback rather
// than redis, so it passes through unwrapped.
func isCallerError(err error) bool {
	var redisErr redis.Error
	if errors.As(err, &redisErr) {
		return false
	}
	return true
}
