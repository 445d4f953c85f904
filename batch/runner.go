package batch

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"go-soilsync/engine"
	"go-soilsync/models"
)

// DefaultConcurrency 同时进行的预测数
const DefaultConcurrency = 4

// Result 单行预测结果，Match 仅在有真实标签时出现
type Result struct {
	Row
	PredLabel  string  `json:"predLabel"`
	Rate       float64 `json:"rate"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source,omitempty"`
	Match      *bool   `json:"match,omitempty"`
}

// Summary 批量统计
type Summary struct {
	Total           int            `json:"total"`
	Labelled        int            `json:"labelled"`
	Matches         int            `json:"matches"`
	Accuracy        float64        `json:"accuracy"`
	PredictedCounts map[string]int `json:"predictedCounts"`
}

// Report 批量预测输出，Rows 与输入顺序一致
type Report struct {
	Rows    []Result `json:"rows"`
	Summary Summary  `json:"summary"`
}

// Runner 并发执行批量预测
type Runner struct {
	rec         engine.Recommender
	concurrency int
}

// NewRunner concurrency <= 0 时使用 DefaultConcurrency
func NewRunner(rec engine.Recommender, concurrency int) *Runner {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Runner{rec: rec, concurrency: concurrency}
}

// Run 对每行求推荐。只有 ctx 被取消时返回错误。
func (r *Runner) Run(ctx context.Context, rows []Row) (Report, error) {
	results := make([]Result, len(rows))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, row := range rows {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec := r.rec.Recommend(ctx, row.Sample)
			res := Result{
				Row:        row,
				PredLabel:  rec.Fertilizer,
				Rate:       rec.Rate,
				Confidence: rec.Confidence,
				Source:     rec.Source,
			}
			if row.TrueLabel != "" {
				match := models.SameFertilizer(rec.Fertilizer, row.TrueLabel)
				res.Match = &match
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	return Report{Rows: results, Summary: Summarize(results)}, nil
}

// Summarize 统计准确率与各肥料预测次数，无标签时准确率为 0
func Summarize(results []Result) Summary {
	sum := Summary{Total: len(results), PredictedCounts: map[string]int{}}
	for _, res := range results {
		sum.PredictedCounts[res.PredLabel]++
		if res.Match == nil {
			continue
		}
		sum.Labelled++
		if *res.Match {
			sum.Matches++
		}
	}
	if sum.Labelled > 0 {
		sum.Accuracy = math.Round(float64(sum.Matches)/float64(sum.Labelled)*10000) / 100
	}
	return sum
}
