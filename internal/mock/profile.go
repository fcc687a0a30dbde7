package mock

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cropwatch/cropwatch/internal/farm"
)

// Profile is the complete sample farm served by the provider.
type Profile struct {
	Snapshot        farm.MetricsSnapshot  `yaml:"snapshot"`
	Fields          []farm.CropField      `yaml:"fields"`
	Zones           []farm.SoilZone       `yaml:"zones"`
	PestAlerts      []farm.PestAlert      `yaml:"pestAlerts"`
	Recommendations []farm.Recommendation `yaml:"recommendations"`
}

// DefaultProfile returns the built-in sample farm with detection and scan
// times relative to now.
func DefaultProfile(now time.Time) Profile {
	ago := func(d time.Duration) time.Time { return now.Add(-d) }

	return Profile{
		Snapshot: farm.SampleSnapshot(),
		Fields: []farm.CropField{
			{ID: "1", Name: "North Field", Crop: "Wheat", HealthScore: 92, GrowthStage: "Flowering", AreaAcres: 45, NDVI: 0.82, Status: "excellent", LastScanned: ago(2 * time.Hour)},
			{ID: "2", Name: "South Field", Crop: "Corn", HealthScore: 76, GrowthStage: "Vegetative", AreaAcres: 32, NDVI: 0.65, Status: "good", LastScanned: ago(4 * time.Hour)},
			{ID: "3", Name: "East Field", Crop: "Soybeans", HealthScore: 58, GrowthStage: "Reproductive", AreaAcres: 28, NDVI: 0.45, Status: "warning", LastScanned: ago(24 * time.Hour)},
			{ID: "4", Name: "West Field", Crop: "Rice", HealthScore: 34, GrowthStage: "Maturity", AreaAcres: 38, NDVI: 0.32, Status: "critical", LastScanned: ago(6 * time.Hour)},
		},
		Zones: []farm.SoilZone{
			{Name: "North Field Zone A", Moisture: 72, PH: 6.9, Nitrogen: 45, Status: "excellent"},
			{Name: "North Field Zone B", Moisture: 65, PH: 6.7, Nitrogen: 38, Status: "good"},
			{Name: "South Field Zone A", Moisture: 58, PH: 6.5, Nitrogen: 32, Status: "warning"},
			{Name: "East Field Zone A", Moisture: 45, PH: 6.2, Nitrogen: 28, Status: "critical"},
		},
		PestAlerts: []farm.PestAlert{
			{ID: "1", Type: "Aphids", Severity: farm.RiskHigh, Zone: "Field Zone A", Confidence: 94, Detected: ago(2 * time.Hour),
				Description: "High concentration of aphids detected in northern section", Treatment: "Neem oil spray recommended within 24 hours"},
			{ID: "2", Type: "Caterpillars", Severity: farm.RiskMedium, Zone: "Field Zone B", Confidence: 87, Detected: ago(6 * time.Hour),
				Description: "Moderate caterpillar activity observed on corn stalks", Treatment: "Biological control agents can be deployed"},
			{ID: "3", Type: "Spider Mites", Severity: farm.RiskLow, Zone: "Greenhouse 1", Confidence: 76, Detected: ago(24 * time.Hour),
				Description: "Early signs of spider mite infestation detected", Treatment: "Increase humidity and monitor closely"},
		},
		Recommendations: []farm.Recommendation{
			{Action: "Increase irrigation in South Field", Priority: farm.RiskHigh},
			{Action: "Apply nitrogen fertilizer to West Field", Priority: farm.RiskMedium},
			{Action: "Scout for aphids in affected zones", Priority: farm.RiskHigh},
			{Action: "Monitor soil temperature trends", Priority: farm.RiskLow},
		},
	}
}

// LoadProfile reads a YAML farm profile. Sections missing from the file keep
// their built-in values.
func LoadProfile(path string, now time.Time) (Profile, error) {
	profile := DefaultProfile(now)

	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to read sample file: %w", err)
	}

	// Decoding onto the defaults keeps every field the file leaves out.
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return Profile{}, fmt.Errorf("failed to parse sample file %s: %w", path, err)
	}
	return profile, nil
}

func (p Profile) clone() Profile {
	return Profile{
		Snapshot:        p.Snapshot.Clone(),
		Fields:          append([]farm.CropField(nil), p.Fields...),
		Zones:           append([]farm.SoilZone(nil), p.Zones...),
		PestAlerts:      append([]farm.PestAlert(nil), p.PestAlerts...),
		Recommendations: append([]farm.Recommendation(nil), p.Recommendations...),
	}
}
