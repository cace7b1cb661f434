package redisclient

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (Locker, *miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisScheduleLocker(client, 5*time.Second), mr, client
}

func lockKey(dentistID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("lock:schedule:%s:%s", dentistID, date.Format("2006-01-02"))
}

func TestWithScheduleLock_RunsAndReleases(t *testing.T) {
	locker, mr, _ := newTestLocker(t)

	dentistID := uuid.New()
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)

	var ran bool
	err := locker.WithScheduleLock(context.Background(), dentistID, date, func(ctx context.Context) error {
		ran = true
		assert.True(t, mr.Exists(lockKey(dentistID, date)))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	// key is gone once the critical section returns
	assert.False(t, mr.Exists(lockKey(dentistID, date)))
}

func TestWithScheduleLock_Contended(t *testing.T) {
	locker, mr, _ := newTestLocker(t)

	dentistID := uuid.New()
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)

	// someone else holds the agenda
	mr.Set(lockKey(dentistID, date), "other-token")

	err := locker.WithScheduleLock(context.Background(), dentistID, date, func(ctx context.Context) error {
		t.Fatal("critical section must not run while contended")
		return nil
	})
	assert.ErrorIs(t, err, ErrLockNotAcquired)

	// the foreign token survives: we never release a lock we do not own
	got, _ := mr.Get(lockKey(dentistID, date))
	assert.Equal(t, "other-token", got)
}

func TestWithScheduleLock_IndependentAgendas(t *testing.T) {
	locker, _, _ := newTestLocker(t)

	dentistA := uuid.New()
	dentistB := uuid.New()
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)
	nextDay := date.AddDate(0, 0, 1)

	err := locker.WithScheduleLock(context.Background(), dentistA, date, func(ctx context.Context) error {
		// a different dentist on the same date is not blocked
		inner := locker.WithScheduleLock(ctx, dentistB, date, func(context.Context) error { return nil })
		assert.NoError(t, inner)

		// nor is the same dentist on a different date
		inner = locker.WithScheduleLock(ctx, dentistA, nextDay, func(context.Context) error { return nil })
		assert.NoError(t, inner)

		// but the held agenda itself is
		inner = locker.WithScheduleLock(ctx, dentistA, date, func(context.Context) error { return nil })
		assert.ErrorIs(t, inner, ErrLockNotAcquired)
		return nil
	})
	require.NoError(t, err)
}

func TestWithScheduleLock_PropagatesCallbackError(t *testing.T) {
	locker, mr, _ := newTestLocker(t)

	dentistID := uuid.New()
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)

	boom := fmt.Errorf("conflict detected")
	err := locker.WithScheduleLock(context.Background(), dentistID, date, func(context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// released even on failure
	assert.False(t, mr.Exists(lockKey(dentistID, date)))
}
