package models

// Analytics 历史记录统计
type Analytics struct {
	TotalAnalyses    int            `json:"totalAnalyses"`
	AvgConfidence    float64        `json:"avgConfidence"`
	AvgYieldIncrease float64        `json:"avgYieldIncrease"`
	FertilizerUsage  map[string]int `json:"fertilizerUsage"`
	CropAnalysis     map[string]int `json:"cropAnalysis"`
	RecentAnalyses   []HistoryEntry `json:"recentAnalyses"`
}
