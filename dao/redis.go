package dao

import (
	"context"
	"fmt"
	"time"

	"estate_trade/utils"

	goredis "github.com/go-redis/redis/v8"
)

// 元数据铸造后不可变，缓存无需失效，只设TTL控制内存占用
const tokenURITTL = 24 * time.Hour

// TokenURICacheKey 获取token元数据URI缓存Key
func TokenURICacheKey(tokenID uint64) string {
	return fmt.Sprintf("estate:uri:%d", tokenID)
}

// GetCachedTokenURI 读取缓存的元数据URI，未命中返回空串
func GetCachedTokenURI(ctx context.Context, tokenID uint64) (string, error) {
	if utils.RedisClient == nil {
		return "", nil
	}
	uri, err := utils.RedisClient.Get(ctx, TokenURICacheKey(tokenID)).Result()
	if err == goredis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return uri, nil
}

// CacheTokenURI 写入元数据URI缓存
func CacheTokenURI(ctx context.Context, tokenID uint64, uri string) error {
	if utils.RedisClient == nil {
		return nil
	}
	return utils.RedisClient.Set(ctx, TokenURICacheKey(tokenID), uri, tokenURITTL).Err()
}
