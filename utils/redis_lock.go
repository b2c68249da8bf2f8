package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	// 为原生Redis客户端添加别名，解决命名冲突
	goredis "github.com/go-redis/redis/v8"
	"github.com/go-redsync/redsync/v4"

	// 为redsync的redis接口包添加别名，避免冲突
	goredisadapter "github.com/go-redsync/redsync/v4/redis/goredis/v8"
	"go.uber.org/zap"
)

// RedisClient 全局Redis客户端（导出，供外部包直接使用）
var RedisClient *goredis.Client

// Redisync 全局RedSync实例（用于RedLock分布式锁）
var Redisync *redsync.Redsync

// 单次交易操作的锁持有上限（覆盖链上转账等待时间）
const tokenLockExpiry = 60 * time.Second

// InitRedis 初始化Redis客户端与RedSync（需在程序启动时调用）
// 参数：addr(Redis地址)、password(Redis密码)、db(Redis数据库编号)
func InitRedis(addr, password string, db int) error {
	// 1. 初始化全局Redis客户端
	RedisClient = goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 10,
	})

	// 校验Redis连接可用性
	if err := RedisClient.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	// 2. 初始化RedSync（支持RedLock分布式锁）
	adapterPool := goredisadapter.NewPool(RedisClient)
	Redisync = redsync.New(adapterPool)

	return nil
}

// GetRedisLock 获取RedSync分布式锁
// 参数：ctx(上下文)、key(锁键)、expire(锁过期时间)
func GetRedisLock(ctx context.Context, key string, expire time.Duration) (*redsync.Mutex, error) {
	if Redisync == nil {
		return nil, errors.New("redsync not initialized")
	}

	mutex := Redisync.NewMutex(key, redsync.WithExpiry(expire))
	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("redsync lock failed: %w", err)
	}

	return mutex, nil
}

// ReleaseRedisLock 释放RedSync分布式锁
func ReleaseRedisLock(mutex *redsync.Mutex) error {
	if mutex == nil {
		return errors.New("mutex is nil")
	}

	ok, err := mutex.Unlock()
	if err != nil {
		return fmt.Errorf("redsync unlock failed: %w", err)
	}
	if !ok {
		return errors.New("mutex has expired or not held")
	}

	return nil
}

// TokenLocker 按token串行化交易操作的分布式互斥锁。
// 任何先对外转账、后更新自身状态的操作必须在锁内完成，
// 防止收款方在转账回调里用旧状态重入同一token的交易操作
type TokenLocker struct{}

// AcquireTokenLock 对token加排他锁，返回释放函数
func (TokenLocker) AcquireTokenLock(ctx context.Context, tokenID uint64) (func(), error) {
	key := fmt.Sprintf("estate:token_lock:%d", tokenID)
	mutex, err := GetRedisLock(ctx, key, tokenLockExpiry)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := ReleaseRedisLock(mutex); err != nil {
			Logger.Warn("释放token锁失败", zap.String("key", key), zap.Error(err))
		}
	}, nil
}
