package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	novaSessionKeyPrefix = "nova:session:"
	novaSessionTTL       = 24 * time.Hour
	novaSessionMaxTurns  = 10
)

// SessionTurn 一轮对话
type SessionTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NovaSessionRepository 在 Redis 中保存助手多轮对话历史；Redis 未启用时所有操作为空操作
type NovaSessionRepository struct {
	Redis *redis.Client
}

func NewNovaSessionRepository(rdb *redis.Client) *NovaSessionRepository {
	return &NovaSessionRepository{Redis: rdb}
}

func sessionKey(userID, sessionID string) string {
	return fmt.Sprintf("%s%s:%s", novaSessionKeyPrefix, userID, sessionID)
}

// History 按时间顺序返回最近的对话轮次
func (r *NovaSessionRepository) History(ctx context.Context, userID, sessionID string) ([]SessionTurn, error) {
	if r.Redis == nil || sessionID == "" {
		return nil, nil
	}

	vals, err := r.Redis.LRange(ctx, sessionKey(userID, sessionID), 0, -1).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	turns := make([]SessionTurn, 0, len(vals))
	for _, v := range vals {
		var turn SessionTurn
		if err := json.Unmarshal([]byte(v), &turn); err != nil {
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Append 追加一问一答并刷新过期时间，只保留最近 novaSessionMaxTurns 轮
func (r *NovaSessionRepository) Append(ctx context.Context, userID, sessionID string, turns ...SessionTurn) error {
	if r.Redis == nil || sessionID == "" || len(turns) == 0 {
		return nil
	}

	key := sessionKey(userID, sessionID)
	values := make([]interface{}, 0, len(turns))
	for _, t := range turns {
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		values = append(values, b)
	}

	pipe := r.Redis.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.LTrim(ctx, key, -2*novaSessionMaxTurns, -1)
	pipe.Expire(ctx, key, novaSessionTTL)
	_, err := pipe.Exec(ctx)
	return err
}
