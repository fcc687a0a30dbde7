package mock

import (
	"math"
	"math/rand"

	"github.com/cropwatch/cropwatch/internal/farm"
)

// MockConfig controls the simulated sensor feed.
type MockConfig struct {
	RandomMetrics bool
	SoilOnly      bool // serve snapshots without crop and pest data
	Seed          int64
}

// DefaultConfig is used when no CROPWATCH_MOCK_* variables are set.
var DefaultConfig = MockConfig{
	RandomMetrics: true,
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// walk nudges v by a random step and pulls it back toward target.
func walk(rng *rand.Rand, v, target, step, reversion, lo, hi float64) float64 {
	change := (rng.Float64() - 0.5) * step
	v += change + (target-v)*reversion
	return clamp(v, lo, hi)
}

// UpdateMetrics advances the profile by one tick of simulated drift.
func UpdateMetrics(rng *rand.Rand, p *Profile, base farm.SoilData) {
	soil := &p.Snapshot.Soil
	soil.Moisture = round(walk(rng, soil.Moisture, base.Moisture, 3, 0.05, 0, 100), 1)
	soil.Temperature = round(walk(rng, soil.Temperature, base.Temperature, 0.8, 0.05, -10, 50), 1)
	soil.PH = round(walk(rng, soil.PH, base.PH, 0.06, 0.08, 0, 14), 2)
	soil.Nitrogen = round(walk(rng, soil.Nitrogen, base.Nitrogen, 1.5, 0.05, 0, 200), 1)
	soil.Phosphorus = round(walk(rng, soil.Phosphorus, base.Phosphorus, 1, 0.05, 0, 200), 1)
	soil.Potassium = round(walk(rng, soil.Potassium, base.Potassium, 3, 0.05, 0, 400), 1)

	var total float64
	atRisk := 0
	for i := range p.Fields {
		f := &p.Fields[i]
		f.HealthScore = round(walk(rng, f.HealthScore, f.HealthScore, 1, 0, 0, 100), 1)
		f.NDVI = round(clamp(f.HealthScore/100*0.9, 0, 1), 2)
		f.Status = farm.HealthStatus(f.HealthScore)
		if f.HealthScore < 60 {
			atRisk++
		}
		total += f.HealthScore
	}
	if p.Snapshot.Crop != nil && len(p.Fields) > 0 {
		p.Snapshot.Crop.TotalFields = len(p.Fields)
		p.Snapshot.Crop.AvgHealthScore = round(total/float64(len(p.Fields)), 1)
		p.Snapshot.Crop.FieldsAtRisk = atRisk
	}
}
