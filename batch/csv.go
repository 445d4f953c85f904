// Package batch 批量预测：解析 CSV 土壤样本，逐行推荐并与真实标签对比。
package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"go-soilsync/models"
)

// potassiumMgPerCmol 1 cmol(+)/kg 钾折合 mg/kg
const potassiumMgPerCmol = 391

// Row CSV 中的一行样本
type Row struct {
	Line      int               `json:"line"`
	Sample    models.SoilSample `json:"sample"`
	TrueLabel string            `json:"trueLabel,omitempty"`
}

type column int

const (
	colPhosphorus column = iota
	colPotassium
	colPotassiumCmol
	colNitrogen
	colOrganicCarbon
	colCationExchange
	colSand
	colClay
	colSilt
	colRainfall
	colElevation
	colCrop
	colLabel
)

// headerAliases 归一化后的表头 -> 列。
// 同时支持 snake_case、camelCase 以及训练数据集的列名。
var headerAliases = map[string]column{
	"phosphorus":     colPhosphorus,
	"phosphorusppm":  colPhosphorus,
	"phoshorusppm":   colPhosphorus,
	"phosporusppm":   colPhosphorus,
	"potassium":      colPotassium,
	"kcmolkg":        colPotassiumCmol,
	"nitrogen":       colNitrogen,
	"tn":             colNitrogen,
	"organiccarbon":  colOrganicCarbon,
	"oc":             colOrganicCarbon,
	"cationexchange": colCationExchange,
	"cec":            colCationExchange,
	"sandpercent":    colSand,
	"sand":           colSand,
	"claypercent":    colClay,
	"clay":           colClay,
	"siltpercent":    colSilt,
	"silt":           colSilt,
	"rainfall":       colRainfall,
	"map":            colRainfall,
	"elevation":      colElevation,
	"croptype":       colCrop,
	"crop":           colCrop,
	"cropinter":      colCrop,
	"truelabel":      colLabel,
	"label":          colLabel,
}

// normalizeHeader 转小写并去掉字母数字以外的字符
func normalizeHeader(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Parse 读取 CSV，第一行为表头。maxRows > 0 时超过行数返回错误。
// 空单元格按 0 处理，无法识别的列忽略。
func Parse(r io.Reader, maxRows int) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: csv is empty", models.ErrInvalidArgument)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", models.ErrInvalidArgument, err)
	}

	index := make(map[int]column, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if col, ok := headerAliases[normalizeHeader(h)]; ok {
			index[i] = col
		}
	}
	if len(index) == 0 {
		return nil, fmt.Errorf("%w: no recognised columns in header", models.ErrInvalidArgument)
	}

	rows := []Row{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidArgument, err)
		}
		if blank(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		if maxRows > 0 && len(rows) >= maxRows {
			return nil, fmt.Errorf("%w: more than %d rows", models.ErrInvalidArgument, maxRows)
		}

		row, err := parseRecord(record, index, header)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", models.ErrInvalidArgument, line, err)
		}
		row.Line = line
		rows = append(rows, row)
	}
	return rows, nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseRecord(record []string, index map[int]column, header []string) (Row, error) {
	var row Row
	s := &row.Sample
	for i, raw := range record {
		col, ok := index[i]
		if !ok {
			continue
		}
		raw = strings.TrimSpace(raw)

		switch col {
		case colCrop:
			s.CropType = models.NormalizeCrop(raw)
			continue
		case colLabel:
			row.TrueLabel = models.NormalizeFertilizer(raw)
			continue
		}

		var v float64
		if raw != "" {
			var err error
			if v, err = strconv.ParseFloat(raw, 64); err != nil {
				return Row{}, fmt.Errorf("column %q: %q is not a number", header[i], raw)
			}
		}

		switch col {
		case colPhosphorus:
			s.Phosphorus = v
		case colPotassium:
			s.Potassium = v
		case colPotassiumCmol:
			s.Potassium = v * potassiumMgPerCmol
		case colNitrogen:
			s.Nitrogen = v
		case colOrganicCarbon:
			s.OrganicCarbon = v
		case colCationExchange:
			s.CationExchange = v
		case colSand:
			s.SandPercent = v
		case colClay:
			s.ClayPercent = v
		case colSilt:
			s.SiltPercent = v
		case colRainfall:
			s.Rainfall = v
		case colElevation:
			s.Elevation = v
		}
	}
	return row, nil
}
