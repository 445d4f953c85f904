// Package engine 生成施肥推荐。
//
// 推荐有两种来源：远程预测服务（RemotePredictor）和本地规则表（RuleEngine）。
// FallbackPredictor 组合二者，远程失败时回退到规则表，对调用方永不失败。
package engine

import (
	"context"
	"fmt"

	"go-soilsync/models"
)

// Predictor 可能失败的推荐来源
type Predictor interface {
	Predict(ctx context.Context, sample models.SoilSample) (models.Recommendation, error)
}

// Recommender 永不失败的推荐来源
type Recommender interface {
	Recommend(ctx context.Context, sample models.SoilSample) models.Recommendation
}

// ErrorKind 预测失败类型
type ErrorKind string

const (
	KindTransport ErrorKind = "transport"
	KindStatus    ErrorKind = "status"
	KindDecode    ErrorKind = "decode"
	KindContract  ErrorKind = "contract"
)

// PredictionError 远程预测失败
type PredictionError struct {
	Kind ErrorKind
	Err  error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("prediction %s: %v", e.Kind, e.Err)
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}
