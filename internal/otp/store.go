// Package otp holds the short-lived pending registrations created by the
// phone signup flow. A pending entry remembers everything needed to create
// the account once the carrier confirms the code; nothing is written to the
// account store until then.
package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNoPending means no registration was ever started for the phone,
	// or its entry has already been garbage collected.
	ErrNoPending = errors.New("otp: no pending registration")

	// ErrExpired means a registration was started but its confirmation
	// window has closed.
	ErrExpired = errors.New("otp: pending registration expired")
)

// Pending is the state parked between send and verify.
type Pending struct {
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"passwordHash"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Store parks pending registrations keyed by phone number.
type Store interface {
	// Put saves a pending registration, replacing any previous one for
	// the same phone.
	Put(ctx context.Context, phone string, pending Pending) error

	// GetIfFresh returns the pending registration for phone. It returns
	// ErrNoPending when none exists and ErrExpired when one exists but
	// its window has closed.
	GetIfFresh(ctx context.Context, phone string) (Pending, error)

	// Delete removes the pending registration, if any.
	Delete(ctx context.Context, phone string) error
}

const keyPrefix = "otp:pending:"

// RedisStore keeps pending registrations in Redis.
//
// Expiry is tracked in the stored value rather than by the key's TTL: the
// key lives twice as long as the confirmation window, so a verify attempt
// inside that grace period can still tell an expired registration apart
// from one that never existed. Redis reaps the key after that.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

var _ Store = (*RedisStore)(nil)

func (s *RedisStore) Put(ctx context.Context, phone string, pending Pending) error {
	payload, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("otp: encoding pending registration: %w", err)
	}

	ttl := 2 * pending.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("otp: pending registration already expired at %s", pending.ExpiresAt)
	}

	if err := s.client.Set(ctx, keyPrefix+phone, payload, ttl).Err(); err != nil {
		return fmt.Errorf("otp: saving pending registration: %w", err)
	}
	return nil
}

func (s *RedisStore) GetIfFresh(ctx context.Context, phone string) (Pending, error) {
	payload, err := s.client.Get(ctx, keyPrefix+phone).Bytes()
	if errors.Is(err, redis.Nil) {
		return Pending{}, ErrNoPending
	}
	if err != nil {
		return Pending{}, fmt.Errorf("otp: loading pending registration: %w", err)
	}

	var pending Pending
	if err := json.Unmarshal(payload, &pending); err != nil {
		return Pending{}, fmt.Errorf("otp: decoding pending registration: %w", err)
	}

	if s.now().After(pending.ExpiresAt) {
		return Pending{}, ErrExpired
	}
	return pending, nil
}

func (s *RedisStore) Delete(ctx context.Context, phone string) error {
	if err := s.client.Del(ctx, keyPrefix+phone).Err(); err != nil {
		return fmt.Errorf("otp: deleting pending registration: %w", err)
	}
	return nil
}
