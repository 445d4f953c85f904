package models

import "strings"

// 肥料目录
const (
	FertilizerNPK171717 = "NPK 17-17-17"
	FertilizerUrea      = "Urea"
	FertilizerDAP       = "DAP"
	FertilizerTSP       = "TSP"
	FertilizerNPK151515 = "NPK 15-15-15"
	FertilizerNPK201010 = "NPK 20-10-10"
	FertilizerUreaNPK   = "Urea + NPK 15-15-15"
	FertilizerNPK23105  = "NPK 23-10-5"
	FertilizerNPK102010 = "NPK 10-20-10"
	FertilizerNPK151520 = "NPK 15-15-20"
	FertilizerNPK17618  = "NPK 17-6-18"
	FertilizerSSP       = "SSP"
	FertilizerPotash    = "Potash"
	FertilizerNK        = "NK"
	FertilizerNone      = "None"
)

// 作物
const (
	CropRice    = "rice"
	CropMaize   = "maize"
	CropBeans   = "beans"
	CropPotato  = "potato"
	CropCassava = "cassava"
	CropBanana  = "banana"
)

// Crops 表单可选作物，规则引擎对未列出的作物不做调整
var Crops = []string{CropRice, CropMaize, CropBeans, CropPotato, CropCassava, CropBanana, "wheat", "sorghum", "soybean"}

// datasetLabels 训练数据集中的标签
var datasetLabels = map[string]string{
	"add_urea":             FertilizerUrea,
	"add_ssp":              FertilizerSSP,
	"add_potash":           FertilizerPotash,
	"add_nk":               FertilizerNK,
	"add_dap":              FertilizerDAP,
	"add_npk_17_17_17":     FertilizerNPK171717,
	"no_fertilizer_needed": FertilizerNone,
}

// NormalizeFertilizer 将数据集标签（如 Add_Urea）转换为肥料名称，其余原样返回
func NormalizeFertilizer(label string) string {
	label = strings.TrimSpace(label)
	if name, ok := datasetLabels[strings.ToLower(label)]; ok {
		return name
	}
	return label
}

// SameFertilizer 忽略大小写和空白比较两个肥料名称
func SameFertilizer(a, b string) bool {
	norm := func(s string) string {
		return strings.Join(strings.Fields(strings.ToLower(NormalizeFertilizer(s))), " ")
	}
	return norm(a) == norm(b)
}

// cropAliases 训练数据集中的作物名称
var cropAliases = map[string]string{
	"bean":          CropBeans,
	"climbing bean": CropBeans,
	"rice, lowland": CropRice,
	"rice, lowand":  CropRice,
	"potato, irish": CropPotato,
	"potato, sweet": "sweet potato",
	"pea":           "peas",
}

// NormalizeCrop 作物名称转小写，并把数据集中的写法映射到规则表使用的名称
func NormalizeCrop(crop string) string {
	crop = strings.ToLower(strings.TrimSpace(crop))
	if alias, ok := cropAliases[crop]; ok {
		return alias
	}
	return crop
}
