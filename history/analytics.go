package history

import "go-soilsync/models"

// RecentLimit 统计结果中附带的最近记录数
const RecentLimit = 10

// Aggregate 统计记录数、平均置信度、平均增产以及肥料和作物的使用频次。
// entries 为空时平均值为 0。
func Aggregate(entries []models.HistoryEntry) models.Analytics {
	out := models.Analytics{
		TotalAnalyses:   len(entries),
		FertilizerUsage: make(map[string]int),
		CropAnalysis:    make(map[string]int),
		RecentAnalyses:  []models.HistoryEntry{},
	}
	if len(entries) == 0 {
		return out
	}

	var confidence, yield float64
	for _, e := range entries {
		confidence += e.Confidence
		yield += e.ExpectedYield
		out.FertilizerUsage[e.Fertilizer]++
		out.CropAnalysis[e.SoilData.CropType]++
	}
	out.AvgConfidence = confidence / float64(len(entries))
	out.AvgYieldIncrease = yield / float64(len(entries))

	recent := min(len(entries), RecentLimit)
	out.RecentAnalyses = append(out.RecentAnalyses, entries[:recent]...)
	return out
}
