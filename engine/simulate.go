package engine

import (
	"math"

	"go-soilsync/models"
)

// Simulate 模拟一次传感器读数，数值落在常见土壤的取值范围内
func Simulate(random RandomSource) models.SoilSample {
	if random == nil {
		random = DefaultSource
	}
	uniform := func(lo, hi float64, digits int) float64 {
		p := math.Pow(10, float64(digits))
		return math.Round((lo+(hi-lo)*random.Float64())*p) / p
	}

	crop := int(random.Float64() * float64(len(models.Crops)))
	if crop >= len(models.Crops) {
		crop = len(models.Crops) - 1
	}

	return models.SoilSample{
		Phosphorus:     uniform(2.5, 30, 2),
		Potassium:      uniform(40, 250, 1),
		Nitrogen:       uniform(0.05, 0.4, 3),
		OrganicCarbon:  uniform(0.5, 4, 2),
		CationExchange: uniform(3, 30, 1),
		SandPercent:    uniform(20, 60, 1),
		ClayPercent:    uniform(10, 40, 1),
		SiltPercent:    uniform(15, 50, 1),
		Rainfall:       uniform(800, 1400, 1),
		Elevation:      uniform(1400, 1800, 0),
		CropType:       models.Crops[crop],
	}
}
