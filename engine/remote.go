package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go-soilsync/models"
)

const maxResponseBytes = 1 << 20

// RemotePredictor 调用外部预测服务（如 predict-fertilizer 边缘函数）
type RemotePredictor struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ Predictor = (*RemotePredictor)(nil)

// NewRemotePredictor 创建远程预测客户端，timeout 为单次请求上限
func NewRemotePredictor(endpoint, apiKey string, timeout time.Duration) *RemotePredictor {
	return &RemotePredictor{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
}

// remoteResponse 兼容两种返回格式：
// 边缘函数 {fertilizer, application_rate, confidence_score, expected_yield_increase}
// 模型服务 {label, rate}
type remoteResponse struct {
	Fertilizer            string   `json:"fertilizer"`
	ApplicationRate       *float64 `json:"application_rate"`
	ConfidenceScore       float64  `json:"confidence_score"`
	ExpectedYieldIncrease float64  `json:"expected_yield_increase"`
	Label                 string   `json:"label"`
	Rate                  *float64 `json:"rate"`
}

// Predict 发送一次请求，任何失败都以 *PredictionError 返回
func (p *RemotePredictor) Predict(ctx context.Context, sample models.SoilSample) (models.Recommendation, error) {
	body, err := json.Marshal(sample.Wire())
	if err != nil {
		return models.Recommendation{}, &PredictionError{Kind: KindContract, Err: fmt.Errorf("marshal payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return models.Recommendation{}, &PredictionError{Kind: KindTransport, Err: fmt.Errorf("new request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
		req.Header.Set("apikey", p.apiKey)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return models.Recommendation{}, &PredictionError{Kind: KindTransport, Err: fmt.Errorf("do request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return models.Recommendation{}, &PredictionError{Kind: KindStatus, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var out remoteResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return models.Recommendation{}, &PredictionError{Kind: KindDecode, Err: fmt.Errorf("decode response: %w", err)}
	}

	return out.recommendation()
}

func (r remoteResponse) recommendation() (models.Recommendation, error) {
	rec := models.Recommendation{
		Fertilizer:    r.Fertilizer,
		Confidence:    r.ConfidenceScore,
		ExpectedYield: r.ExpectedYieldIncrease,
		Source:        models.SourceModel,
	}
	if rec.Fertilizer == "" {
		rec.Fertilizer = models.NormalizeFertilizer(r.Label)
	}
	if rec.Fertilizer == "" {
		return models.Recommendation{}, &PredictionError{Kind: KindContract, Err: errors.New("response has no fertilizer")}
	}

	switch {
	case r.ApplicationRate != nil:
		rec.Rate = *r.ApplicationRate
	case r.Rate != nil:
		rec.Rate = *r.Rate
	default:
		return models.Recommendation{}, &PredictionError{Kind: KindContract, Err: errors.New("response has no application rate")}
	}
	return rec, nil
}
