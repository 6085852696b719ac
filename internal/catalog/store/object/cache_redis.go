package object

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"domopass/internal/catalog/models"
	"domopass/internal/platform/redis"
	id "domopass/pkg/domain"
)

// Catalog is the read contract the cache decorates.
type Catalog interface {
	ParentOfPerimeter(ctx context.Context, perimeterID id.PerimeterID) (*models.AccessObject, error)
}

// RedisCache decorates a Catalog with a read-through cache. Object snapshots
// are resolved on every propagation emit; they change rarely, so a short TTL
// takes the catalog off the hot path without a coherence protocol.
type RedisCache struct {
	next   Catalog
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(next Catalog, client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{next: next, client: client, ttl: ttl}
}

type cachedObject struct {
	ID          string   `json:"id"`
	CompanyID   string   `json:"company_id"`
	DisplayName string   `json:"display_name"`
	Categories  []string `json:"categories"`
}

func cacheKey(perimeterID id.PerimeterID) string {
	return "domopass:object:perimeter:" + perimeterID.String()
}

func (c *RedisCache) ParentOfPerimeter(ctx context.Context, perimeterID id.PerimeterID) (*models.AccessObject, error) {
	key := cacheKey(perimeterID)

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached cachedObject
		if err := json.Unmarshal(raw, &cached); err == nil {
			companyID, cidErr := id.ParseCompanyID(cached.CompanyID)
			objectID, oidErr := id.ParseObjectID(cached.ID)
			if cidErr == nil && oidErr == nil {
				return &models.AccessObject{
					ID:          objectID,
					CompanyID:   companyID,
					DisplayName: cached.DisplayName,
					Categories:  cached.Categories,
				}, nil
			}
		}
		// Corrupt entry: fall through to the source and overwrite.
	} else if !errors.Is(err, goredis.Nil) {
		// Cache unavailable is not fatal; read through.
		return c.next.ParentOfPerimeter(ctx, perimeterID)
	}

	obj, err := c.next.ParentOfPerimeter(ctx, perimeterID)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(cachedObject{
		ID:          obj.ID.String(),
		CompanyID:   obj.CompanyID.String(),
		DisplayName: obj.DisplayName,
		Categories:  obj.Categories,
	})
	if err == nil {
		_ = c.client.Set(ctx, key, payload, c.ttl).Err()
	}
	return obj, nil
}
