package engine

import (
	"context"
	"math"
	"strings"

	"go-soilsync/models"
)

// 输出范围
const (
	MinRate       = 50
	MaxRate       = 300
	MinConfidence = 70
	MaxConfidence = 98
	MinYield      = 5
	MaxYield      = 35
)

// draft 规则计算过程中的中间值，clamp 之前不做取整
type draft struct {
	fertilizer string
	rate       float64
	confidence float64
	yield      float64
}

// nutrientRule 按养分缺乏程度选择基础方案，按顺序匹配，第一条命中即生效
type nutrientRule struct {
	match func(s models.SoilSample) bool
	draft
}

var baseline = draft{fertilizer: models.FertilizerNPK171717, rate: 150, confidence: 85, yield: 15}

var nutrientRules = []nutrientRule{
	{
		match: func(s models.SoilSample) bool { return s.Nitrogen < 0.15 },
		draft: draft{fertilizer: models.FertilizerUrea, rate: 120, confidence: 94, yield: 25},
	},
	{
		match: func(s models.SoilSample) bool { return s.Nitrogen < 0.25 && s.Phosphorus < 12 },
		draft: draft{fertilizer: models.FertilizerDAP, rate: 110, confidence: 91, yield: 22},
	},
	{
		match: func(s models.SoilSample) bool { return s.Phosphorus < 10 },
		draft: draft{fertilizer: models.FertilizerTSP, rate: 100, confidence: 89, yield: 20},
	},
	{
		match: func(s models.SoilSample) bool { return s.Potassium < 80 },
		draft: draft{fertilizer: models.FertilizerNPK151515, rate: 140, confidence: 87, yield: 18},
	},
	{
		match: func(s models.SoilSample) bool { return s.Potassium < 120 && s.Nitrogen > 0.3 },
		draft: draft{fertilizer: models.FertilizerNPK201010, rate: 130, confidence: 90, yield: 17},
	},
}

// cropAdjustments 按作物（小写）调整，最后应用，可能替换肥料
var cropAdjustments = map[string]func(d *draft, s models.SoilSample){
	models.CropRice: func(d *draft, s models.SoilSample) {
		d.rate *= 1.25
		d.yield += 8
		if s.Nitrogen < 0.2 {
			d.fertilizer = models.FertilizerUreaNPK
			d.confidence += 5
		}
	},
	models.CropMaize: func(d *draft, s models.SoilSample) {
		d.rate *= 1.1
		d.yield += 5
		if s.Nitrogen < 0.25 {
			d.fertilizer = models.FertilizerNPK23105
			d.confidence += 3
		}
	},
	models.CropBeans: func(d *draft, s models.SoilSample) {
		d.rate *= 0.7
		d.fertilizer = models.FertilizerNPK102010
		d.yield += 3
		d.confidence += 7
	},
	models.CropPotato: func(d *draft, s models.SoilSample) {
		d.rate *= 1.15
		d.yield += 6
		if s.Potassium < 150 {
			d.fertilizer = models.FertilizerNPK151520
			d.confidence += 4
		}
	},
	models.CropCassava: func(d *draft, s models.SoilSample) {
		d.rate *= 0.8
		d.fertilizer = models.FertilizerNPK151515
		d.yield += 4
	},
	models.CropBanana: func(d *draft, s models.SoilSample) {
		d.rate *= 1.3
		d.fertilizer = models.FertilizerNPK17618
		d.yield += 7
	},
}

// RuleEngine 确定性规则表，除扰动项外是样本的纯函数
type RuleEngine struct {
	random RandomSource
}

var _ Predictor = (*RuleEngine)(nil)
var _ Recommender = (*RuleEngine)(nil)

// NewRuleEngine 创建规则引擎，random 为 nil 时使用 DefaultSource
func NewRuleEngine(random RandomSource) *RuleEngine {
	if random == nil {
		random = DefaultSource
	}
	return &RuleEngine{random: random}
}

// Predict 实现 Predictor，永不返回错误
func (e *RuleEngine) Predict(_ context.Context, sample models.SoilSample) (models.Recommendation, error) {
	return e.Evaluate(sample), nil
}

// Recommend 实现 Recommender
func (e *RuleEngine) Recommend(_ context.Context, sample models.SoilSample) models.Recommendation {
	return e.Evaluate(sample)
}

// Evaluate 计算推荐。调整按 养分 -> 有机碳 -> CEC -> 作物 -> 扰动 的顺序连乘，顺序不可交换。
func (e *RuleEngine) Evaluate(s models.SoilSample) models.Recommendation {
	d := baseline
	for _, rule := range nutrientRules {
		if rule.match(s) {
			d = rule.draft
			break
		}
	}

	switch {
	case s.OrganicCarbon < 1.0:
		d.rate *= 1.15
		d.yield += 3
	case s.OrganicCarbon > 3.0:
		d.rate *= 0.9
		d.confidence += 5
	}

	switch {
	case s.CationExchange < 5:
		d.rate *= 0.85
		d.confidence -= 5
	case s.CationExchange > 25:
		d.rate *= 1.1
		d.confidence += 3
	}

	if adjust, ok := cropAdjustments[strings.ToLower(strings.TrimSpace(s.CropType))]; ok {
		adjust(&d, s)
	}

	d.rate *= 1 + (e.random.Float64()-0.5)*0.1
	d.confidence += (e.random.Float64() - 0.5) * 8

	return models.Recommendation{
		Fertilizer:    d.fertilizer,
		Rate:          math.Round(clamp(d.rate, MinRate, MaxRate)),
		Confidence:    math.Round(clamp(d.confidence, MinConfidence, MaxConfidence)*10) / 10,
		ExpectedYield: math.Round(clamp(d.yield, MinYield, MaxYield)),
		Source:        models.SourceRules,
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
