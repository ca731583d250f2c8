package cache

import (
	"context"
	"testing"
	"time"

	"storefront/backend/models"
	"storefront/backend/store"
	"storefront/backend/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachable points at a closed port so every Redis call fails fast.
func unreachable(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCourseStoreFallsBackWhenRedisDown(t *testing.T) {
	db := testutil.NewDB(t)
	seeded := testutil.SeedCourse(t, db, "Fundamentals", "2000")
	s := NewCourseStore(store.New(db), unreachable(t), time.Minute, nil)

	course, err := s.GetCourse(context.Background(), seeded.ID)
	require.NoError(t, err)
	require.NotNil(t, course)
	assert.Equal(t, "Fundamentals", course.Title)
	assert.True(t, course.Price.Equal(decimal.NewFromInt(2000)))

	missing, err := s.GetCourse(context.Background(), seeded.ID+1)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCourseStoreServesCachedCourse(t *testing.T) {
	db := testutil.NewDB(t)
	seeded := testutil.SeedCourse(t, db, "Fundamentals", "2000.50")
	mr, client := newMiniredis(t)
	s := NewCourseStore(store.New(db), client, time.Minute, nil)
	ctx := context.Background()

	first, err := s.GetCourse(ctx, seeded.ID)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.True(t, mr.Exists(courseKey(seeded.ID)))
	assert.Equal(t, time.Minute, mr.TTL(courseKey(seeded.ID)))

	// Gone from the database, still served from Redis.
	require.NoError(t, db.Unscoped().Delete(&models.Course{}, seeded.ID).Error)

	cached, err := s.GetCourse(ctx, seeded.ID)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, seeded.ID, cached.ID)
	assert.Equal(t, "Fundamentals", cached.Title)
	assert.Equal(t, models.LevelBeginner, cached.Level)
	assert.True(t, cached.Price.Equal(decimal.RequireFromString("2000.50")), cached.Price.String())

	mr.FastForward(2 * time.Minute)
	expired, err := s.GetCourse(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Nil(t, expired)
}

func TestCourseStoreIgnoresCorruptEntry(t *testing.T) {
	db := testutil.NewDB(t)
	seeded := testutil.SeedCourse(t, db, "Fundamentals", "2000")
	mr, client := newMiniredis(t)
	s := NewCourseStore(store.New(db), client, time.Minute, nil)
	require.NoError(t, mr.Set(courseKey(seeded.ID), "not json"))

	course, err := s.GetCourse(context.Background(), seeded.ID)
	require.NoError(t, err)
	require.NotNil(t, course)
	assert.Equal(t, "Fundamentals", course.Title)

	raw, err := mr.Get(courseKey(seeded.ID))
	require.NoError(t, err)
	assert.Contains(t, raw, "Fundamentals")
}

func TestConnectAddress(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), mr.Addr())
	require.NoError(t, err)
	_ = client.Close()

	client, err = Connect(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	_ = client.Close()
}

func TestCourseStoreDelegatesOtherReads(t *testing.T) {
	db := testutil.NewDB(t)
	seeded := testutil.SeedCourse(t, db, "Fundamentals", "2000", testutil.Lectures(3, 1)...)
	s := NewCourseStore(store.New(db), unreachable(t), time.Minute, nil)

	lectures, err := s.ListLectures(context.Background(), seeded.ID, true)
	require.NoError(t, err)
	assert.Len(t, lectures, 1)
}

func TestConnectRejectsBadURL(t *testing.T) {
	_, err := Connect(context.Background(), "redis://:bad port")
	assert.Error(t, err)
}

func TestCourseKey(t *testing.T) {
	assert.Equal(t, "storefront:course:42", courseKey(42))
}
