package directory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/telehealth-scheduling/internal/scheduling"
)

type countingAvailability struct {
	*MemoryAvailability
	activeCalls int
	// afterLoad runs once the rows are read, before they are returned.
	afterLoad func()
}

func (c *countingAvailability) ActiveAvailability(ctx context.Context, doctorID uuid.UUID) ([]scheduling.WeeklyAvailability, error) {
	c.activeCalls++
	records, err := c.MemoryAvailability.ActiveAvailability(ctx, doctorID)
	if hook := c.afterLoad; hook != nil {
		c.afterLoad = nil
		hook()
	}
	return records, err
}

func newCachedForTest(t *testing.T) (*CachedAvailability, *countingAvailability, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	backing := &countingAvailability{MemoryAvailability: NewMemoryAvailability()}
	return NewCachedAvailability(backing, client, time.Minute, nil), backing, mr
}

func TestCachedAvailabilityReadsThrough(t *testing.T) {
	cached, backing, mr := newCachedForTest(t)
	ctx := context.Background()
	doctorID := uuid.New()

	_, err := cached.Set(ctx, scheduling.WeeklyAvailability{DoctorID: doctorID, DayOfWeek: time.Monday, StartTime: "09:00", EndTime: "17:00"})
	require.NoError(t, err)

	first, err := cached.ActiveAvailability(ctx, doctorID)
	require.NoError(t, err)
	second, err := cached.ActiveAvailability(ctx, doctorID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, backing.activeCalls)
	key := cached.key(doctorID, 1)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))
}

func TestCachedAvailabilityInvalidatesOnWrite(t *testing.T) {
	cached, backing, mr := newCachedForTest(t)
	ctx := context.Background()
	doctorID := uuid.New()

	records, err := cached.ActiveAvailability(ctx, doctorID)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.True(t, mr.Exists(cached.key(doctorID, 0)), "empty result is cached too")

	saved, err := cached.Set(ctx, scheduling.WeeklyAvailability{DoctorID: doctorID, DayOfWeek: time.Friday, StartTime: "08:00", EndTime: "10:00"})
	require.NoError(t, err)
	version, err := mr.Get(cached.versionKey(doctorID))
	require.NoError(t, err)
	assert.Equal(t, "1", version)
	assert.False(t, mr.Exists(cached.key(doctorID, 1)))

	records, err = cached.ActiveAvailability(ctx, doctorID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, backing.activeCalls)

	require.NoError(t, cached.Delete(ctx, doctorID, saved.ID))
	records, err = cached.ActiveAvailability(ctx, doctorID)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 3, backing.activeCalls)
}

func TestCachedAvailabilityFallsBackWhenRedisDown(t *testing.T) {
	cached, backing, mr := newCachedForTest(t)
	ctx := context.Background()
	doctorID := uuid.New()
	backing.Insert(scheduling.WeeklyAvailability{DoctorID: doctorID, DayOfWeek: time.Monday, StartTime: "09:00", EndTime: "10:00", IsActive: true})

	mr.Close()
	records, err := cached.ActiveAvailability(ctx, doctorID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCachedAvailabilityDiscardsCorruptEntries(t *testing.T) {
	cached, backing, mr := newCachedForTest(t)
	doctorID := uuid.New()
	require.NoError(t, mr.Set(cached.key(doctorID, 0), "not-json"))

	records, err := cached.ActiveAvailability(context.Background(), doctorID)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 1, backing.activeCalls)
}

func TestCachedAvailabilityFillRacingWriteIsNotServed(t *testing.T) {
	cached, backing, _ := newCachedForTest(t)
	ctx := context.Background()
	doctorID := uuid.New()
	backing.Insert(scheduling.WeeklyAvailability{ID: uuid.New(), DoctorID: doctorID, DayOfWeek: time.Monday, StartTime: "09:00", EndTime: "12:00", IsActive: true})

	// The doctor narrows Monday while a reader holds the old rows.
	backing.afterLoad = func() {
		_, err := cached.Set(ctx, scheduling.WeeklyAvailability{DoctorID: doctorID, DayOfWeek: time.Monday, StartTime: "10:00", EndTime: "11:00"})
		require.NoError(t, err)
	}
	stale, err := cached.ActiveAvailability(ctx, doctorID)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "09:00", stale[0].StartTime)

	fresh, err := cached.ActiveAvailability(ctx, doctorID)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, "10:00", fresh[0].StartTime)
	assert.Equal(t, "11:00", fresh[0].EndTime)
	assert.Equal(t, 2, backing.activeCalls)
}
