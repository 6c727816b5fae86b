package utils

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/mmdatafocus/boletos_backend/config"
)

// GetCacheLifespan reads CACHE_LIFESPAN in hours (default 1).
func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil || lifespan <= 0 {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

func GetTypeName[T any]() string {
	var v T
	return reflect.TypeOf(v).Name()
}

func itemKey[T any](id int) string {
	return GetTypeName[T]() + ":" + fmt.Sprint(id)
}

func listKey[T any]() string {
	return GetTypeName[T]() + "List"
}

// StoreRedis caches one instance under Type:id.
func StoreRedis[T any](obj *T, id int) error {
	return config.SetRedisObject(itemKey[T](id), obj, GetCacheLifespan())
}

// RetrieveRedis returns nil when the instance is not cached (or redis is off).
func RetrieveRedis[T any](id int) (*T, error) {
	var result *T
	exists, err := config.GetRedisObject(itemKey[T](id), &result)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return result, nil
}

func RemoveRedisItem[T any](id int) error {
	return config.RemoveRedisKey(itemKey[T](id))
}

// StoreRedisList caches a whole list under TypeList.
func StoreRedisList[T any](list []*T) error {
	return config.SetRedisObject(listKey[T](), list, GetCacheLifespan())
}

func RetrieveRedisList[T any]() ([]*T, error) {
	var result []*T
	exists, err := config.GetRedisObject(listKey[T](), &result)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return result, nil
}

func RemoveRedisList[T any]() error {
	return config.RemoveRedisKey(listKey[T]())
}
