// Package cache keeps Course records in Redis. Courses are read-only for the
// enrollment flow, so a read-through cache with a TTL cannot hand out stale
// prices for longer than the TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"storefront/backend/models"
	"storefront/backend/services"
	"storefront/backend/utils"

	"github.com/redis/go-redis/v9"
)

// Connect accepts either a redis:// URL or a host:port address.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// CourseStore wraps a catalog store and serves GetCourse from Redis. Any
// Redis failure falls through to the wrapped store.
type CourseStore struct {
	services.CatalogStore
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

func NewCourseStore(next services.CatalogStore, client *redis.Client, ttl time.Duration, logger *log.Logger) *CourseStore {
	if logger == nil {
		logger = utils.DiscardLogger()
	}
	return &CourseStore{CatalogStore: next, client: client, ttl: ttl, logger: logger}
}

func courseKey(id uint) string {
	return fmt.Sprintf("storefront:course:%d", id)
}

func (s *CourseStore) GetCourse(ctx context.Context, id uint) (*models.Course, error) {
	raw, err := s.client.Get(ctx, courseKey(id)).Bytes()
	switch {
	case err == nil:
		var course models.Course
		if jsonErr := json.Unmarshal(raw, &course); jsonErr == nil {
			course.ID = id
			return &course, nil
		}
		s.logger.Printf("course cache: corrupt entry for course %d", id)
	case !errors.Is(err, redis.Nil):
		s.logger.Printf("course cache: get course %d: %v", id, err)
	}

	course, err := s.CatalogStore.GetCourse(ctx, id)
	if err != nil || course == nil {
		return course, err
	}

	if data, err := json.Marshal(course); err == nil {
		if err := s.client.Set(ctx, courseKey(id), data, s.ttl).Err(); err != nil {
			s.logger.Printf("course cache: set course %d: %v", id, err)
		}
	}
	return course, nil
}
