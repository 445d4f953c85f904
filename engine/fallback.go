package engine

import (
	"context"
	"errors"
	"time"

	"go-soilsync/logger"
	"go-soilsync/models"
)

// FallbackPredictor 先尝试 primary，失败时使用规则表。回退只在这里决定。
type FallbackPredictor struct {
	primary  Predictor
	fallback *RuleEngine
	log      *logger.Logger
}

var _ Predictor = (*FallbackPredictor)(nil)
var _ Recommender = (*FallbackPredictor)(nil)

// NewFallbackPredictor primary 为 nil 时直接使用规则表
func NewFallbackPredictor(primary Predictor, fallback *RuleEngine, log *logger.Logger) *FallbackPredictor {
	if fallback == nil {
		fallback = NewRuleEngine(nil)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &FallbackPredictor{primary: primary, fallback: fallback, log: log.With("component", "predictor")}
}

// New 根据配置组装推荐器：endpoint 为空时只用规则表
func New(endpoint, apiKey string, timeout time.Duration, random RandomSource, log *logger.Logger) *FallbackPredictor {
	var primary Predictor
	if endpoint != "" {
		primary = NewRemotePredictor(endpoint, apiKey, timeout)
	}
	return NewFallbackPredictor(primary, NewRuleEngine(random), log)
}

// Remote 是否配置了远程预测服务
func (p *FallbackPredictor) Remote() bool {
	return p.primary != nil
}

// Predict 实现 Predictor，错误始终为 nil
func (p *FallbackPredictor) Predict(ctx context.Context, sample models.SoilSample) (models.Recommendation, error) {
	return p.Recommend(ctx, sample), nil
}

// Recommend 远程成功时原样返回，否则记录日志并回退
func (p *FallbackPredictor) Recommend(ctx context.Context, sample models.SoilSample) models.Recommendation {
	if p.primary == nil {
		return p.fallback.Evaluate(sample)
	}

	rec, err := p.primary.Predict(ctx, sample)
	if err == nil {
		return rec
	}

	kind := ErrorKind("unknown")
	var perr *PredictionError
	if errors.As(err, &perr) {
		kind = perr.Kind
	}
	p.log.Warn("remote prediction failed, using rule engine", "kind", kind, "error", err, "crop", sample.CropType)
	return p.fallback.Evaluate(sample)
}
