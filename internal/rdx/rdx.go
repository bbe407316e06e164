package rdx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const otpTTL = 5 * time.Minute

type Store struct {
	C *redis.Client
}

func New(addr, password string) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis: ping failed: %w", err)
	}
	return &Store{C: client}, nil
}

func (s *Store) SetOTP(ctx context.Context, phone, code string) error {
	return s.C.Set(ctx, "otp:"+phone, code, otpTTL).Err()
}

// CheckOTP compares and consumes the stored code. A matched code is deleted
// so it cannot be replayed.
func (s *Store) CheckOTP(ctx context.Context, phone, code string) (bool, error) {
	key := "otp:" + phone
	stored, err := s.C.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if stored != code {
		return false, nil
	}
	if err := s.C.Del(ctx, key).Err(); err != nil {
		return true, err
	}
	return true, nil
}

// AcquireLock takes a short-lived per-order lock so the webhook and the
// client callback don't reconcile the same order at the same time.
func (s *Store) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.C.SetNX(ctx, "payment_lock:"+key, "1", ttl).Result()
}

func (s *Store) ReleaseLock(ctx context.Context, key string) {
	_ = s.C.Del(ctx, "payment_lock:"+key).Err()
}

func (s *Store) Close() error {
	return s.C.Close()
}
