package config

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var (
	rdb    *redis.Client
	locker *redislock.Client
)
var ctx = context.Background()

func GetRedisDB() *redis.Client {
	return rdb
}

func GetRedisLock() *redislock.Client {
	return locker
}

// SetRedisClient installs an already-connected client (tests, embedded use).
// A nil client disables every redis helper.
func SetRedisClient(client *redis.Client) {
	rdb = client
	if client == nil {
		locker = nil
		return
	}
	locker = redislock.New(client)
}

func GetRedisObject(key string, dest interface{}) (bool, error) {
	if rdb == nil {
		return false, nil
	}
	val, err := rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	err = json.Unmarshal([]byte(val), &dest)
	if err != nil {
		return false, err
	}
	return true, nil
}

func SetRedisObject(key string, obj interface{}, exp time.Duration) error {
	if rdb == nil {
		return nil
	}
	objInByte, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	if err = rdb.Set(ctx, key, objInByte, exp).Err(); err != nil {
		return err
	}
	return nil
}

func RemoveRedisKey(keys ...string) error {
	if rdb == nil {
		return nil
	}
	_, err := rdb.Del(ctx, keys...).Result()
	return err
}

// ConnectRedis connects when REDIS_ADDRESS is set. Redis is optional for the
// pipeline: without it the split lock is skipped and reports are not cached.
func ConnectRedis() {
	redisAddr := os.Getenv("REDIS_ADDRESS")
	if redisAddr == "" {
		GetLogger().Info("REDIS_ADDRESS not set; running without redis")
		return
	}
	ConnectRedisWithRetry(redisAddr, 3)
}

// ConnectRedisWithRetry gives up after maxAttempts (0 = retry forever).
func ConnectRedisWithRetry(redisAddr string, maxAttempts int) {
	var attempt int
	for {
		attempt++
		client := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
			PoolSize: 20,
		})
		err := client.Ping(ctx).Err()
		if err == nil {
			SetRedisClient(client)
			GetLogger().WithFields(logrus.Fields{"attempt": attempt, "addr": redisAddr}).Info("connected to redis")
			return
		}
		_ = client.Close()
		if maxAttempts > 0 && attempt >= maxAttempts {
			GetLogger().WithFields(logrus.Fields{"attempt": attempt, "addr": redisAddr}).Warn("giving up on redis: " + err.Error())
			return
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		GetLogger().WithFields(logrus.Fields{"attempt": attempt, "addr": redisAddr, "retry_in": sleep.String()}).Warn("failed to connect redis: " + err.Error())
		time.Sleep(sleep)
	}
}
