package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (s *Store) Close() error { return s.rdb.Close() }

func dailyKey(userID uint64, day string) string {
	return fmt.Sprintf("aivan:quota:%d:%s", userID, day)
}

// IncrDailyRequests bumps the user's request counter for today (UTC) and
// returns the new count. The key expires on its own after the day rolls over.
func (s *Store) IncrDailyRequests(ctx context.Context, userID uint64) (int64, error) {
	key := dailyKey(userID, time.Now().UTC().Format("2006-01-02"))

	n, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		_ = s.rdb.Expire(ctx, key, 48*time.Hour).Err()
	}
	return n, nil
}

func (s *Store) DailyRequests(ctx context.Context, userID uint64) (int64, error) {
	key := dailyKey(userID, time.Now().UTC().Format("2006-01-02"))
	n, err := s.rdb.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}
