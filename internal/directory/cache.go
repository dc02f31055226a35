package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/telehealth-scheduling/internal/scheduling"
	"github.com/wolfman30/telehealth-scheduling/pkg/logging"
)

const availabilityKeyPrefix = "telehealth:availability:"

// AvailabilityStore persists weekly availability.
type AvailabilityStore interface {
	ActiveAvailability(ctx context.Context, doctorID uuid.UUID) ([]scheduling.WeeklyAvailability, error)
	List(ctx context.Context, doctorID uuid.UUID) ([]scheduling.WeeklyAvailability, error)
	Set(ctx context.Context, rec scheduling.WeeklyAvailability) (scheduling.WeeklyAvailability, error)
	Delete(ctx context.Context, doctorID, id uuid.UUID) error
}

// CachedAvailability caches active availability in Redis. Entries are keyed
// by a per-doctor version that every write bumps after the backing store
// commits, so a read-through fill that raced a write lands on a retired key.
// Redis failures fall back to the backing store.
type CachedAvailability struct {
	AvailabilityStore
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

func NewCachedAvailability(store AvailabilityStore, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedAvailability {
	if store == nil || client == nil {
		panic("directory: availability store and redis client required")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedAvailability{AvailabilityStore: store, client: client, ttl: ttl, logger: logger}
}

func (c *CachedAvailability) versionKey(doctorID uuid.UUID) string {
	return availabilityKeyPrefix + doctorID.String() + ":version"
}

func (c *CachedAvailability) key(doctorID uuid.UUID, version int64) string {
	return fmt.Sprintf("%s%s:v%d", availabilityKeyPrefix, doctorID, version)
}

func (c *CachedAvailability) version(ctx context.Context, doctorID uuid.UUID) (int64, error) {
	v, err := c.client.Get(ctx, c.versionKey(doctorID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *CachedAvailability) ActiveAvailability(ctx context.Context, doctorID uuid.UUID) ([]scheduling.WeeklyAvailability, error) {
	version, err := c.version(ctx, doctorID)
	if err != nil {
		c.logger.Warn("availability cache read failed", "doctor_id", doctorID, "error", err)
		return c.AvailabilityStore.ActiveAvailability(ctx, doctorID)
	}
	key := c.key(doctorID, version)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached []scheduling.WeeklyAvailability
		if jsonErr := json.Unmarshal(data, &cached); jsonErr == nil {
			return cached, nil
		}
		c.logger.Warn("discarding corrupt availability cache entry", "doctor_id", doctorID)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("availability cache read failed", "doctor_id", doctorID, "error", err)
	}

	records, err := c.AvailabilityStore.ActiveAvailability(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []scheduling.WeeklyAvailability{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("directory: marshal availability: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("availability cache write failed", "doctor_id", doctorID, "error", err)
	}
	return records, nil
}

func (c *CachedAvailability) Set(ctx context.Context, rec scheduling.WeeklyAvailability) (scheduling.WeeklyAvailability, error) {
	saved, err := c.AvailabilityStore.Set(ctx, rec)
	if err != nil {
		return saved, err
	}
	c.invalidate(ctx, rec.DoctorID)
	return saved, nil
}

func (c *CachedAvailability) Delete(ctx context.Context, doctorID, id uuid.UUID) error {
	if err := c.AvailabilityStore.Delete(ctx, doctorID, id); err != nil {
		return err
	}
	c.invalidate(ctx, doctorID)
	return nil
}

// invalidate retires the current entry by bumping the doctor's version.
func (c *CachedAvailability) invalidate(ctx context.Context, doctorID uuid.UUID) {
	if err := c.client.Incr(ctx, c.versionKey(doctorID)).Err(); err != nil {
		c.logger.Warn("availability cache invalidation failed", "doctor_id", doctorID, "error", err)
	}
}
