package otp

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client), mr
}

func TestPutAndGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	pending := Pending{
		Name:         "Karim",
		PasswordHash: "hash",
		ExpiresAt:    time.Now().Add(5 * time.Minute),
	}
	require.NoError(t, store.Put(ctx, "01711111111", pending))

	got, err := store.GetIfFresh(ctx, "01711111111")
	require.NoError(t, err)
	assert.Equal(t, "Karim", got.Name)
	assert.Equal(t, "hash", got.PasswordHash)
}

func TestGet_NoPending(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.GetIfFresh(context.Background(), "01799999999")
	assert.ErrorIs(t, err, ErrNoPending)
}

func TestGet_Expired(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	pending := Pending{
		Name:         "Late",
		PasswordHash: "hash",
		ExpiresAt:    time.Now().Add(5 * time.Minute),
	}
	require.NoError(t, store.Put(ctx, "01722222222", pending))

	// Move the store's clock past the window but inside the grace period,
	// so the entry is still in Redis and must report Expired, not NoPending.
	store.now = func() time.Time { return time.Now().Add(6 * time.Minute) }

	_, err := store.GetIfFresh(ctx, "01722222222")
	assert.ErrorIs(t, err, ErrExpired)
}

func TestGet_ReapedAfterGracePeriod(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	pending := Pending{
		Name:         "Reaped",
		PasswordHash: "hash",
		ExpiresAt:    time.Now().Add(5 * time.Minute),
	}
	require.NoError(t, store.Put(ctx, "01733333333", pending))

	// Past twice the window Redis drops the key; the distinction collapses
	// to NoPending, which is acceptable that long after the send.
	mr.FastForward(11 * time.Minute)

	_, err := store.GetIfFresh(ctx, "01733333333")
	assert.ErrorIs(t, err, ErrNoPending)
}

func TestPut_ReplacesPrevious(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first := Pending{Name: "First", PasswordHash: "h1", ExpiresAt: time.Now().Add(5 * time.Minute)}
	second := Pending{Name: "Second", PasswordHash: "h2", ExpiresAt: time.Now().Add(5 * time.Minute)}
	require.NoError(t, store.Put(ctx, "01744444444", first))
	require.NoError(t, store.Put(ctx, "01744444444", second))

	got, err := store.GetIfFresh(ctx, "01744444444")
	require.NoError(t, err)
	assert.Equal(t, "Second", got.Name)
}

func TestPut_AlreadyExpired(t *testing.T) {
	store, _ := newTestStore(t)

	pending := Pending{Name: "Stale", ExpiresAt: time.Now().Add(-time.Minute)}
	err := store.Put(context.Background(), "01755555555", pending)
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	pending := Pending{Name: "Gone", PasswordHash: "hash", ExpiresAt: time.Now().Add(5 * time.Minute)}
	require.NoError(t, store.Put(ctx, "01766666666", pending))
	require.NoError(t, store.Delete(ctx, "01766666666"))

	_, err := store.GetIfFresh(ctx, "01766666666")
	assert.ErrorIs(t, err, ErrNoPending)

	// Deleting an absent entry is not an error.
	require.NoError(t, store.Delete(ctx, "01766666666"))
}
