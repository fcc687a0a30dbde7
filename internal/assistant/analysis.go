package assistant

import "github.com/cropwatch/cropwatch/internal/farm"

// Soil thresholds.
const (
	NitrogenLow       = 40.0
	MoistureLow       = 50.0
	MoistureHigh      = 80.0
	MoistureOptimal   = 65.0
	PHLow             = 6.5
	PHHigh            = 7.0
	HealthExcellent   = 80.0
	HealthModerate    = 60.0
	greetingMoistGood = 45.0
)

// Analysis lists the soil problems found in a snapshot and the matching
// corrective actions, in check order.
type Analysis struct {
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

// Analyze derives issues and recommendations from the soil readings.
func Analyze(s farm.MetricsSnapshot) Analysis {
	var a Analysis
	soil := s.Soil

	if soil.Nitrogen < NitrogenLow {
		a.Issues = append(a.Issues, "low nitrogen levels")
		a.Recommendations = append(a.Recommendations, "Apply nitrogen-rich fertilizer or compost")
	}

	if soil.Moisture < MoistureLow {
		a.Issues = append(a.Issues, "low soil moisture")
		a.Recommendations = append(a.Recommendations, "Increase irrigation frequency")
	}

	if !phInRange(soil.PH) {
		a.Issues = append(a.Issues, "pH imbalance")
		if soil.PH < PHLow {
			a.Recommendations = append(a.Recommendations, "Add lime to raise pH")
		} else {
			a.Recommendations = append(a.Recommendations, "Add sulfur to lower pH")
		}
	}

	return a
}

// Priorities returns the soil recommendations followed by crop and pest
// follow-ups for the enabled features.
func Priorities(s farm.MetricsSnapshot, f Features) []string {
	recs := Analyze(s).Recommendations
	full := s.WithDefaults()

	if f.Crop && full.Crop.FieldsAtRisk > 0 {
		recs = append(recs, "Inspect "+plural(full.Crop.FieldsAtRisk, "field")+" at risk for crop stress")
	}
	if f.Pest {
		switch full.Pest.RiskLevel.Normalize() {
		case farm.RiskHigh:
			recs = append(recs, "Treat active pest infestations within 24 hours")
		case farm.RiskMedium:
			recs = append(recs, "Increase pest scouting to twice weekly")
		}
	}
	return recs
}

func phInRange(ph float64) bool {
	return ph >= PHLow && ph <= PHHigh
}
