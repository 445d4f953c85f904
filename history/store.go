// Package history 保存测土配肥历史记录。
//
// 每个 owner（登录用户ID，匿名为空串）的记录按时间倒序排列，
// 超过上限时淘汰最早的记录。
package history

import (
	"context"

	"go-soilsync/models"
)

// DefaultMaxEntries 每个 owner 保留的记录数
const DefaultMaxEntries = 50

// Store 历史记录存储
type Store interface {
	// Append 追加一条记录，owner 取 entry.UserID
	Append(ctx context.Context, entry models.HistoryEntry) error
	// List 返回最近的 limit 条记录，最新的在前
	List(ctx context.Context, owner string, limit int) ([]models.HistoryEntry, error)
	// Get 查询单条记录，不存在时返回 models.ErrNotFound
	Get(ctx context.Context, owner, id string) (models.HistoryEntry, error)
	// MaxEntries 每个 owner 的记录上限
	MaxEntries() int
	Close() error
}

func normalizeMax(max int) int {
	if max <= 0 {
		return DefaultMaxEntries
	}
	return max
}

func normalizeLimit(limit, max int) int {
	if limit <= 0 || limit > max {
		return max
	}
	return limit
}
