package utils

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-redis/redis/v8"
)

// RedisStatusStore keeps per-user blog read marks in redis. Marks are best
// effort: a miss or an unreachable redis just means "unread".
type RedisStatusStore struct {
	inner     *redis.Client
	keyParser RedisKeyParser
}

const (
	// Redis only has string type, there is no boolean or int, so we use "1" to represent true
	RedisTrue  = "1"
	RedisFalse = "0"
)

var ctx = context.Background()

func GetRedisStatusStore() (*RedisStatusStore, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT")),
		Password: os.Getenv("REDIS_PASSWD"),
		DB:       0, // use default DB
	})
	_, err := redisClient.Ping(ctx).Result()
	if err != nil {
		return nil, err
	}
	return &RedisStatusStore{
		inner:     redisClient,
		keyParser: RedisKeyParser{delimiter: "__"},
	}, nil
}

type RedisKeyParser struct {
	delimiter string
}

func (r RedisKeyParser) DecodeBlogKey(key string) (string, string, error) {
	splits := strings.Split(key, r.delimiter)
	if len(splits) != 2 {
		return "", "", fmt.Errorf("invalid key: %s", key)
	}
	return splits[0], splits[1], nil
}

func (r RedisKeyParser) ValidateId(id string) bool {
	return !strings.Contains(id, r.delimiter)
}

func (r RedisKeyParser) EncodeBlogKey(userId string, blogId string) (string, error) {
	if !r.ValidateId(userId) || !r.ValidateId(blogId) {
		return "", fmt.Errorf("invalid userId or blogId")
	}
	return fmt.Sprintf("%s%s%s", userId, r.delimiter, blogId), nil
}

func (r RedisKeyParser) MustEncodeBlogKey(userId string, blogId string) string {
	if !r.ValidateId(userId) || !r.ValidateId(blogId) {
		panic(fmt.Errorf("invalid userId or blogId with delimiter: %s, %s, %s", userId, blogId, r.delimiter))
	}
	return fmt.Sprintf("%s%s%s", userId, r.delimiter, blogId)
}

// GetBlogsReadStatus returns, for each blog id in order, whether the user
// already read it.
func (r *RedisStatusStore) GetBlogsReadStatus(blogIds []string, userId string) ([]bool, error) {
	if len(blogIds) == 0 {
		return []bool{}, nil
	}

	blogKeys := []string{}
	for _, bid := range blogIds {
		blogKeys = append(blogKeys, r.keyParser.MustEncodeBlogKey(userId, bid))
	}

	res, err := r.inner.MGet(ctx, blogKeys...).Result()
	status := []bool{}
	for _, v := range res {
		if v == RedisTrue {
			status = append(status, true)
			continue
		}
		status = append(status, false)
	}
	return status, err
}

// SetBlogsReadStatus marks blogs read (or unread) for a user.
func (r *RedisStatusStore) SetBlogsReadStatus(blogIds []string, userId string, read bool) error {
	if len(blogIds) == 0 {
		return nil
	}

	if read {
		keyValues := []interface{}{}
		for _, bid := range blogIds {
			keyValues = append(keyValues, r.keyParser.MustEncodeBlogKey(userId, bid))
			keyValues = append(keyValues, RedisTrue)
		}
		return r.inner.MSet(ctx, keyValues...).Err()
	}

	keys := []string{}
	for _, bid := range blogIds {
		keys = append(keys, r.keyParser.MustEncodeBlogKey(userId, bid))
	}
	return r.inner.Del(ctx, keys...).Err()
}
