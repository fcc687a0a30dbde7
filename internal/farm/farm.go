// Package farm holds the metric snapshot and dashboard view types shared by
// the assistant, the metrics provider and the API.
package farm

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RiskLevel is the overall pest pressure reported by the pest monitor.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ParseRiskLevel normalizes s into a RiskLevel.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch RiskLevel(strings.ToLower(strings.TrimSpace(s))) {
	case RiskLow:
		return RiskLow, nil
	case RiskMedium:
		return RiskMedium, nil
	case RiskHigh:
		return RiskHigh, nil
	}
	return "", fmt.Errorf("unknown risk level %q", s)
}

// Normalize returns the canonical form of r. Unknown levels count as low.
func (r RiskLevel) Normalize() RiskLevel {
	lvl, err := ParseRiskLevel(string(r))
	if err != nil {
		return RiskLow
	}
	return lvl
}

// UnmarshalText accepts any casing of a known level, so JSON and YAML
// inputs like "High" decode to RiskHigh. An empty value is kept empty.
func (r *RiskLevel) UnmarshalText(text []byte) error {
	if strings.TrimSpace(string(text)) == "" {
		*r = ""
		return nil
	}
	lvl, err := ParseRiskLevel(string(text))
	if err != nil {
		return err
	}
	*r = lvl
	return nil
}

// UnmarshalYAML routes YAML scalars through UnmarshalText.
func (r *RiskLevel) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	return r.UnmarshalText([]byte(raw))
}

// SoilData is a single soil probe reading.
type SoilData struct {
	Moisture    float64 `json:"moisture" yaml:"moisture"`       // percent, 0-100
	Temperature float64 `json:"temperature" yaml:"temperature"` // celsius
	PH          float64 `json:"ph" yaml:"ph"`                   // 0-14
	Nitrogen    float64 `json:"nitrogen" yaml:"nitrogen"`       // ppm
	Phosphorus  float64 `json:"phosphorus" yaml:"phosphorus"`   // ppm
	Potassium   float64 `json:"potassium" yaml:"potassium"`     // ppm
}

// CropData summarizes crop health across all monitored fields.
type CropData struct {
	TotalFields    int     `json:"totalFields" yaml:"totalFields"`
	AvgHealthScore float64 `json:"avgHealthScore" yaml:"avgHealthScore"`
	NDVIAverage    float64 `json:"ndviAverage" yaml:"ndviAverage"`
	FieldsAtRisk   int     `json:"fieldsAtRisk" yaml:"fieldsAtRisk"`
}

// PestData summarizes current pest pressure.
type PestData struct {
	ActiveAlerts int       `json:"activeAlerts" yaml:"activeAlerts"`
	RecentPests  []string  `json:"recentPests" yaml:"recentPests"`
	RiskLevel    RiskLevel `json:"riskLevel" yaml:"riskLevel"`
}

// MetricsSnapshot is a point-in-time reading of soil, crop and pest metrics.
// Crop and Pest are optional.
type MetricsSnapshot struct {
	Soil SoilData  `json:"soil" yaml:"soil"`
	Crop *CropData `json:"crop,omitempty" yaml:"crop,omitempty"`
	Pest *PestData `json:"pest,omitempty" yaml:"pest,omitempty"`
}

// Fallbacks used when a snapshot carries no crop or pest data.
var (
	DefaultSoilData = SoilData{
		Moisture:    68,
		Temperature: 24,
		PH:          6.8,
		Nitrogen:    42,
		Phosphorus:  28,
		Potassium:   156,
	}

	DefaultCropData = CropData{
		TotalFields:    4,
		AvgHealthScore: 78,
		NDVIAverage:    0.69,
		FieldsAtRisk:   2,
	}

	DefaultPestData = PestData{
		ActiveAlerts: 3,
		RecentPests:  []string{"Aphid", "Cutworm", "Spider Mite"},
		RiskLevel:    RiskMedium,
	}
)

// HasCrop reports whether crop data is present.
func (s MetricsSnapshot) HasCrop() bool { return s.Crop != nil }

// HasPest reports whether pest data is present.
func (s MetricsSnapshot) HasPest() bool { return s.Pest != nil }

// WithDefaults returns a copy of s with absent crop or pest data replaced by
// the package defaults. s is left untouched.
func (s MetricsSnapshot) WithDefaults() MetricsSnapshot {
	out := s.Clone()
	if out.Crop == nil {
		crop := DefaultCropData
		out.Crop = &crop
	}
	if out.Pest == nil {
		pest := DefaultPestData
		pest.RecentPests = append([]string(nil), DefaultPestData.RecentPests...)
		out.Pest = &pest
	}
	return out
}

// Clone returns a deep copy of s.
func (s MetricsSnapshot) Clone() MetricsSnapshot {
	out := MetricsSnapshot{Soil: s.Soil}
	if s.Crop != nil {
		crop := *s.Crop
		out.Crop = &crop
	}
	if s.Pest != nil {
		pest := *s.Pest
		pest.RecentPests = append([]string(nil), s.Pest.RecentPests...)
		out.Pest = &pest
	}
	return out
}

// SampleSnapshot returns the full sample snapshot shown on the dashboard.
func SampleSnapshot() MetricsSnapshot {
	return MetricsSnapshot{Soil: DefaultSoilData}.WithDefaults()
}

// HealthStatus buckets a crop health score.
func HealthStatus(score float64) string {
	switch {
	case score >= 80:
		return "excellent"
	case score >= 60:
		return "good"
	case score >= 40:
		return "warning"
	default:
		return "critical"
	}
}

// CropField is one monitored field on the crop health page.
type CropField struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Crop        string    `json:"crop" yaml:"crop"`
	HealthScore float64   `json:"healthScore" yaml:"healthScore"`
	GrowthStage string    `json:"growthStage" yaml:"growthStage"`
	AreaAcres   float64   `json:"areaAcres" yaml:"areaAcres"`
	NDVI        float64   `json:"ndvi" yaml:"ndvi"`
	Status      string    `json:"status" yaml:"status"`
	LastScanned time.Time `json:"lastScanned" yaml:"lastScanned"`
}

// SoilZone is one sampled soil zone on the soil page.
type SoilZone struct {
	Name     string  `json:"name" yaml:"name"`
	Moisture float64 `json:"moisture" yaml:"moisture"`
	PH       float64 `json:"ph" yaml:"ph"`
	Nitrogen float64 `json:"nitrogen" yaml:"nitrogen"`
	Status   string  `json:"status" yaml:"status"`
}

// PestAlert is a single detection raised by the pest monitor.
type PestAlert struct {
	ID          string    `json:"id" yaml:"id"`
	Type        string    `json:"type" yaml:"type"`
	Severity    RiskLevel `json:"severity" yaml:"severity"`
	Zone        string    `json:"zone" yaml:"zone"`
	Confidence  float64   `json:"confidence" yaml:"confidence"`
	Detected    time.Time `json:"detected" yaml:"detected"`
	Description string    `json:"description" yaml:"description"`
	Treatment   string    `json:"treatment" yaml:"treatment"`
}

// Recommendation is a prioritized action card on the dashboard.
type Recommendation struct {
	Action   string    `json:"action" yaml:"action"`
	Priority RiskLevel `json:"priority" yaml:"priority"`
}
