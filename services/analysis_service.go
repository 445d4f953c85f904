// Package services 组合推荐引擎、历史存储和批量预测。
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go-soilsync/batch"
	"go-soilsync/engine"
	"go-soilsync/history"
	"go-soilsync/logger"
	"go-soilsync/models"
	"go-soilsync/utils"
)

// ErrNotSaved 推荐已生成但未能写入历史记录
var ErrNotSaved = errors.New("analysis not saved")

// AnalysisService 测土配肥分析
type AnalysisService struct {
	rec    engine.Recommender
	store  history.Store
	random engine.RandomSource
	runner *batch.Runner
	log    *logger.Logger

	maxRows int
	now     func() time.Time
	newID   func() (string, error)
}

// Option 可选配置
type Option func(*AnalysisService)

// WithClock 替换时钟
func WithClock(now func() time.Time) Option {
	return func(s *AnalysisService) { s.now = now }
}

// WithIDGenerator 替换记录ID生成
func WithIDGenerator(newID func() (string, error)) Option {
	return func(s *AnalysisService) { s.newID = newID }
}

// WithRandom 模拟读数使用的随机源
func WithRandom(random engine.RandomSource) Option {
	return func(s *AnalysisService) { s.random = random }
}

// WithBatchLimits 批量预测的行数上限与并发数
func WithBatchLimits(maxRows, concurrency int) Option {
	return func(s *AnalysisService) {
		s.maxRows = maxRows
		s.runner = batch.NewRunner(s.rec, concurrency)
	}
}

// NewAnalysisService 创建服务
func NewAnalysisService(rec engine.Recommender, store history.Store, log *logger.Logger, opts ...Option) *AnalysisService {
	if log == nil {
		log = logger.Nop()
	}
	s := &AnalysisService{
		rec:    rec,
		store:  store,
		random: engine.DefaultSource,
		runner: batch.NewRunner(rec, batch.DefaultConcurrency),
		log:    log.With("service", "AnalysisService"),
		now:    time.Now,
		newID:  utils.NewAnalysisID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Predict 只生成推荐，不保存
func (s *AnalysisService) Predict(ctx context.Context, sample models.SoilSample) models.Recommendation {
	return s.rec.Recommend(ctx, sample)
}

// Analyze 生成推荐并写入 owner 的历史记录。
// 写入失败时仍返回完整的记录，错误包装 ErrNotSaved。
func (s *AnalysisService) Analyze(ctx context.Context, owner string, sample models.SoilSample) (models.HistoryEntry, error) {
	entry := models.HistoryEntry{
		UserID:         owner,
		CreatedAt:      s.now().UTC(),
		SoilData:       sample,
		Recommendation: s.rec.Recommend(ctx, sample),
	}

	id, err := s.newID()
	if err != nil {
		s.log.Error("Failed to generate analysis id", "error", err)
		return entry, fmt.Errorf("%w: %v", ErrNotSaved, err)
	}
	entry.ID = id

	if err := s.store.Append(ctx, entry); err != nil {
		s.log.Error("Failed to save analysis", "id", id, "owner", owner, "error", err)
		return entry, fmt.Errorf("%w: %v", ErrNotSaved, err)
	}
	return entry, nil
}

// History 最近的 limit 条记录，limit <= 0 时返回全部保留的记录
func (s *AnalysisService) History(ctx context.Context, owner string, limit int) ([]models.HistoryEntry, error) {
	entries, err := s.store.List(ctx, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

// Get 查询单条记录，ID 格式不对时直接返回 models.ErrNotFound
func (s *AnalysisService) Get(ctx context.Context, owner, id string) (models.HistoryEntry, error) {
	if !utils.ValidateAnalysisID(id) {
		return models.HistoryEntry{}, models.ErrNotFound
	}
	return s.store.Get(ctx, owner, id)
}

// Analytics 基于 owner 保留的全部记录统计
func (s *AnalysisService) Analytics(ctx context.Context, owner string) (models.Analytics, error) {
	entries, err := s.store.List(ctx, owner, s.store.MaxEntries())
	if err != nil {
		return models.Analytics{}, fmt.Errorf("list history: %w", err)
	}
	return history.Aggregate(entries), nil
}

// Batch 解析 CSV 并逐行推荐，批量结果不写入历史记录
func (s *AnalysisService) Batch(ctx context.Context, r io.Reader) (batch.Report, error) {
	rows, err := batch.Parse(r, s.maxRows)
	if err != nil {
		return batch.Report{}, err
	}
	s.log.Debug("Running batch prediction", "rows", len(rows))
	return s.runner.Run(ctx, rows)
}

// Simulate 模拟一次传感器读数
func (s *AnalysisService) Simulate() models.SoilSample {
	return engine.Simulate(s.random)
}

// MaxEntries 每个 owner 保留的记录数
func (s *AnalysisService) MaxEntries() int {
	return s.store.MaxEntries()
}
