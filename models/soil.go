package models

import (
	"encoding/json"
	"time"
)

// SoilSample 土壤样本，测土配肥推荐的输入。
// 磷、钾单位 mg/kg，氮、有机碳单位 %，阳离子交换量单位 cmol/kg，降雨 mm，海拔 m。
type SoilSample struct {
	Phosphorus     float64 `json:"phosphorus"`
	Potassium      float64 `json:"potassium"`
	Nitrogen       float64 `json:"nitrogen"`
	OrganicCarbon  float64 `json:"organicCarbon"`
	CationExchange float64 `json:"cationExchange"`
	SandPercent    float64 `json:"sandPercent"`
	ClayPercent    float64 `json:"clayPercent"`
	SiltPercent    float64 `json:"siltPercent"`
	Rainfall       float64 `json:"rainfall"`
	Elevation      float64 `json:"elevation"`
	CropType       string  `json:"cropType"`
}

// SoilSampleWire 预测服务及数据库使用的 snake_case 字段
type SoilSampleWire struct {
	Phosphorus     float64 `json:"phosphorus"`
	Potassium      float64 `json:"potassium"`
	Nitrogen       float64 `json:"nitrogen"`
	OrganicCarbon  float64 `json:"organic_carbon"`
	CationExchange float64 `json:"cation_exchange"`
	SandPercent    float64 `json:"sand_percent"`
	ClayPercent    float64 `json:"clay_percent"`
	SiltPercent    float64 `json:"silt_percent"`
	Rainfall       float64 `json:"rainfall"`
	Elevation      float64 `json:"elevation"`
	CropType       string  `json:"crop_type"`
}

// Wire 转换为 snake_case 结构
func (s SoilSample) Wire() SoilSampleWire {
	return SoilSampleWire{
		Phosphorus:     s.Phosphorus,
		Potassium:      s.Potassium,
		Nitrogen:       s.Nitrogen,
		OrganicCarbon:  s.OrganicCarbon,
		CationExchange: s.CationExchange,
		SandPercent:    s.SandPercent,
		ClayPercent:    s.ClayPercent,
		SiltPercent:    s.SiltPercent,
		Rainfall:       s.Rainfall,
		Elevation:      s.Elevation,
		CropType:       s.CropType,
	}
}

// UnmarshalJSON 同时接受 camelCase 与 snake_case 字段名，camelCase 优先
func (s *SoilSample) UnmarshalJSON(data []byte) error {
	var raw struct {
		Phosphorus          *float64 `json:"phosphorus"`
		Potassium           *float64 `json:"potassium"`
		Nitrogen            *float64 `json:"nitrogen"`
		OrganicCarbon       *float64 `json:"organicCarbon"`
		OrganicCarbonSnake  *float64 `json:"organic_carbon"`
		CationExchange      *float64 `json:"cationExchange"`
		CationExchangeSnake *float64 `json:"cation_exchange"`
		SandPercent         *float64 `json:"sandPercent"`
		SandPercentSnake    *float64 `json:"sand_percent"`
		ClayPercent         *float64 `json:"clayPercent"`
		ClayPercentSnake    *float64 `json:"clay_percent"`
		SiltPercent         *float64 `json:"siltPercent"`
		SiltPercentSnake    *float64 `json:"silt_percent"`
		Rainfall            *float64 `json:"rainfall"`
		Elevation           *float64 `json:"elevation"`
		CropType            *string  `json:"cropType"`
		CropTypeSnake       *string  `json:"crop_type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = SoilSample{
		Phosphorus:     pick(raw.Phosphorus),
		Potassium:      pick(raw.Potassium),
		Nitrogen:       pick(raw.Nitrogen),
		OrganicCarbon:  pick(raw.OrganicCarbon, raw.OrganicCarbonSnake),
		CationExchange: pick(raw.CationExchange, raw.CationExchangeSnake),
		SandPercent:    pick(raw.SandPercent, raw.SandPercentSnake),
		ClayPercent:    pick(raw.ClayPercent, raw.ClayPercentSnake),
		SiltPercent:    pick(raw.SiltPercent, raw.SiltPercentSnake),
		Rainfall:       pick(raw.Rainfall),
		Elevation:      pick(raw.Elevation),
		CropType:       pick(raw.CropType, raw.CropTypeSnake),
	}
	return nil
}

func pick[T any](values ...*T) T {
	var zero T
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return zero
}

// Recommendation 施肥推荐结果，施用量单位 kg/ha，置信度与预期增产均为百分比
type Recommendation struct {
	Fertilizer    string  `json:"fertilizer"`
	Rate          float64 `json:"rate"`
	Confidence    float64 `json:"confidence"`
	ExpectedYield float64 `json:"expectedYield"`
	Source        string  `json:"source,omitempty"`
}

// 推荐来源
const (
	SourceModel = "model"
	SourceRules = "rules"
)

// HistoryEntry 测土配肥历史记录
type HistoryEntry struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	SoilData  SoilSample `json:"soilData"`
	Recommendation
}
