package redisstate

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"blvckboard/internal/domain"
	"blvckboard/internal/repository"
)

// putIfExistsScript 只在画板缓存存在时写入字段。
// 缓存过期后单独写入一个字段会让 GetBoard 误以为缓存完整。
var putIfExistsScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
	return 1
end
return 0
`)

// RedisBoardCache 是 BoardCache 接口的 Redis 实现。
// 整个画板存放在一个 Hash 中：field 为坐标，value 为单元格 JSON。
type RedisBoardCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisBoardCache 创建 RedisBoardCache 实例
func NewRedisBoardCache(client *redis.Client, keyPrefix string) *RedisBoardCache {
	if client == nil {
		panic("redis client cannot be nil for RedisBoardCache")
	}
	if keyPrefix == "" {
		keyPrefix = "blvck:"
	}
	return &RedisBoardCache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (r *RedisBoardCache) boardKey() string {
	return r.keyPrefix + "board:cells"
}

// GetBoard 读取缓存的画板，按坐标排序，与数据库查询顺序一致。
func (r *RedisBoardCache) GetBoard(ctx context.Context) ([]domain.Cell, error) {
	key := r.boardKey()
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: failed to get board from %s: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, repository.ErrBoardCacheMiss
	}

	cells := make([]domain.Cell, 0, len(fields))
	for coordinate, raw := range fields {
		var cell domain.Cell
		if err := json.Unmarshal([]byte(raw), &cell); err != nil {
			// 一个坏字段意味着缓存不可信，整体当作未命中
			logrus.WithError(err).WithField("coordinate", coordinate).Warn("redis: corrupt board cache entry")
			return nil, repository.ErrBoardCacheMiss
		}
		cells = append(cells, cell)
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].Coordinate < cells[j].Coordinate })
	return cells, nil
}

// ReplaceBoard 在一个 MULTI 事务里删除旧缓存并写入新画板
func (r *RedisBoardCache) ReplaceBoard(ctx context.Context, cells []domain.Cell, ttl time.Duration) error {
	key := r.boardKey()
	values := make(map[string]interface{}, len(cells))
	for _, cell := range cells {
		data, err := json.Marshal(cell)
		if err != nil {
			return fmt.Errorf("redis: failed to marshal cell %s: %w", cell.Coordinate, err)
		}
		values[cell.Coordinate] = string(data)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(values) > 0 {
		pipe.HSet(ctx, key, values)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: failed to replace board on key %s: %w", key, err)
	}
	return nil
}

// PutCellIfCached 写穿单个单元格；缓存不存在时什么也不做
func (r *RedisBoardCache) PutCellIfCached(ctx context.Context, cell domain.Cell) (bool, error) {
	key := r.boardKey()
	data, err := json.Marshal(cell)
	if err != nil {
		return false, fmt.Errorf("redis: failed to marshal cell %s: %w", cell.Coordinate, err)
	}
	written, err := putIfExistsScript.Run(ctx, r.client, []string{key}, cell.Coordinate, string(data)).Int()
	if err != nil {
		return false, fmt.Errorf("redis: failed to put cell %s on key %s: %w", cell.Coordinate, key, err)
	}
	return written == 1, nil
}

// Invalidate 删除画板缓存
func (r *RedisBoardCache) Invalidate(ctx context.Context) error {
	key := r.boardKey()
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis: failed to invalidate board cache %s: %w", key, err)
	}
	return nil
}
