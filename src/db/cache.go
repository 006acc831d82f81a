package db

import (
	"fmt"
	"time"

	"pocketbook-server/src/models"

	"github.com/dgraph-io/ristretto"
)

// UserCache memoizes user rows for the auth middleware so authenticated
// requests do not hit the users table every time. A nil *UserCache is valid
// and caches nothing.
type UserCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewUserCache returns nil when ttl is not positive.
func NewUserCache(ttl time.Duration) (*UserCache, error) {
	if ttl <= 0 {
		return nil, nil
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        10000, // number of keys to track frequency of
		MaxCost:            1000,
		BufferItems:        64, // number of keys per Get buffer
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize user cache: %w", err)
	}
	return &UserCache{cache: cache, ttl: ttl}, nil
}

func (c *UserCache) Get(id int64) (*models.User, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.cache.Get(id)
	if !ok {
		return nil, false
	}
	user, ok := v.(models.User)
	if !ok {
		return nil, false
	}
	return &user, true
}

// Set stores a copy of user. Writes are applied asynchronously.
func (c *UserCache) Set(user *models.User) {
	if c == nil || user == nil {
		return
	}
	c.cache.SetWithTTL(user.ID, *user, 1, c.ttl)
}

func (c *UserCache) Del(id int64) {
	if c == nil {
		return
	}
	c.cache.Del(id)
}

// Wait blocks until pending writes are visible to Get.
func (c *UserCache) Wait() {
	if c == nil {
		return
	}
	c.cache.Wait()
}

func (c *UserCache) Close() {
	if c == nil {
		return
	}
	c.cache.Close()
}
