package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	"github.com/m04kA/SMC-GarageBooking/pkg/types"
)

const (
	keyPrefix           = "availability:"
	generationKeyPrefix = "availability:gen:"

	// generationTTL намного больше ttl записей: к моменту сброса счётчика старые записи уже истекли
	generationTTL = 48 * time.Hour
)

var (
	// ErrCacheMiss в кеше нет слотов на дату
	ErrCacheMiss = errors.New("cache: miss")

	// ErrCache ошибка обращения к redis или сериализации
	ErrCache = errors.New("cache: operation failed")
)

type cachedSlot struct {
	Start     types.TimeString `json:"start"`
	End       types.TimeString `json:"end"`
	Available bool             `json:"available"`
}

// AvailabilityCache кеш сгенерированных слотов дня в redis.
//
// У каждой даты есть счётчик поколений; Invalidate увеличивает его. Запись хранится под ключом
// (дата, поколение), поэтому сетка, построенная до инвалидации, сохраняется в устаревшее поколение
// и больше не читается.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAvailabilityCache создает кеш доступности
func NewAvailabilityCache(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{client: client, ttl: ttl}
}

func key(date time.Time, generation int64) string {
	return fmt.Sprintf("%s%s:%d", keyPrefix, date.Format(domain.DateFormat), generation)
}

func generationKey(date time.Time) string {
	return generationKeyPrefix + date.Format(domain.DateFormat)
}

// Generation возвращает текущее поколение записей на дату (0, если инвалидаций не было)
func (c *AvailabilityCache) Generation(ctx context.Context, date time.Time) (int64, error) {
	generation, err := c.client.Get(ctx, generationKey(date)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: Generation - redis get: %v", ErrCache, err)
	}
	return generation, nil
}

// Get возвращает слоты на дату в указанном поколении или ErrCacheMiss
func (c *AvailabilityCache) Get(ctx context.Context, date time.Time, generation int64) ([]domain.Slot, error) {
	raw, err := c.client.Get(ctx, key(date, generation)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%w: Get - redis get: %v", ErrCache, err)
	}

	var cached []cachedSlot
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, fmt.Errorf("%w: Get - unmarshal: %v", ErrCache, err)
	}

	slots := make([]domain.Slot, 0, len(cached))
	for _, s := range cached {
		slots = append(slots, domain.Slot{Start: s.Start, End: s.End, Available: s.Available})
	}
	return slots, nil
}

// Set сохраняет слоты на дату в поколении, прочитанном до загрузки бронирований
func (c *AvailabilityCache) Set(ctx context.Context, date time.Time, generation int64, slots []domain.Slot) error {
	cached := make([]cachedSlot, 0, len(slots))
	for _, s := range slots {
		cached = append(cached, cachedSlot{Start: s.Start, End: s.End, Available: s.Available})
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("%w: Set - marshal: %v", ErrCache, err)
	}

	if err := c.client.Set(ctx, key(date, generation), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: Set - redis set: %v", ErrCache, err)
	}
	return nil
}

// Invalidate переводит дату в новое поколение; записи прошлых поколений истекут по ttl
func (c *AvailabilityCache) Invalidate(ctx context.Context, date time.Time) error {
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, generationKey(date))
	pipe.Expire(ctx, generationKey(date), generationTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: Invalidate - redis incr: %v", ErrCache, err)
	}
	return nil
}

// NopCache кеш, который ничего не хранит (redis выключен)
type NopCache struct{}

func (NopCache) Generation(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (NopCache) Get(context.Context, time.Time, int64) ([]domain.Slot, error) {
	return nil, ErrCacheMiss
}

func (NopCache) Set(context.Context, time.Time, int64, []domain.Slot) error {
	return nil
}

func (NopCache) Invalidate(context.Context, time.Time) error {
	return nil
}
