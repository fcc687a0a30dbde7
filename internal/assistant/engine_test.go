package assistant

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropwatch/cropwatch/internal/farm"
)

func soilOnly(mutate func(*farm.SoilData)) farm.MetricsSnapshot {
	s := farm.MetricsSnapshot{Soil: farm.DefaultSoilData}
	if mutate != nil {
		mutate(&s.Soil)
	}
	return s
}

func fullSnapshot(mutate func(*farm.MetricsSnapshot)) farm.MetricsSnapshot {
	s := farm.SampleSnapshot()
	if mutate != nil {
		mutate(&s)
	}
	return s
}

func TestAnalyzeThresholds(t *testing.T) {
	tests := []struct {
		name   string
		soil   func(*farm.SoilData)
		issues []string
		recs   []string
	}{
		{
			name: "healthy sample",
		},
		{
			name:   "low nitrogen",
			soil:   func(s *farm.SoilData) { s.Nitrogen = 39.9 },
			issues: []string{"low nitrogen levels"},
			recs:   []string{"Apply nitrogen-rich fertilizer or compost"},
		},
		{
			name:   "dry and acidic",
			soil:   func(s *farm.SoilData) { s.Moisture = 30; s.PH = 6.0 },
			issues: []string{"low soil moisture", "pH imbalance"},
			recs:   []string{"Increase irrigation frequency", "Add lime to raise pH"},
		},
		{
			name:   "alkaline",
			soil:   func(s *farm.SoilData) { s.PH = 7.4 },
			issues: []string{"pH imbalance"},
			recs:   []string{"Add sulfur to lower pH"},
		},
		{
			name: "boundaries are in range",
			soil: func(s *farm.SoilData) { s.Nitrogen = 40; s.Moisture = 50; s.PH = 7.0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Analyze(soilOnly(tt.soil))
			assert.Equal(t, tt.issues, a.Issues)
			assert.Equal(t, tt.recs, a.Recommendations)
		})
	}
}

func TestLowNitrogenMentionsBelowOptimal(t *testing.T) {
	for _, n := range []float64{0, 12.5, 39, 39.99} {
		snap := soilOnly(func(s *farm.SoilData) { s.Nitrogen = n })
		assert.Contains(t, Analyze(snap).Issues, "low nitrogen levels")

		for _, q := range []string{"nitrogen?", "Tell me about NITROGEN please"} {
			out := Respond(q, snap)
			assert.Contains(t, out, "below optimal levels", "nitrogen=%v q=%q", n, q)
			assert.Contains(t, out, "Target 50-60ppm")
		}
	}

	out := Respond("nitrogen", soilOnly(nil))
	assert.Contains(t, out, "This is within good range.")
	assert.Contains(t, out, "Your current nitrogen level is 42ppm.")
}

func TestMoistureBranches(t *testing.T) {
	tests := []struct {
		moisture float64
		want     string
	}{
		{10, "**Action needed:** Your soil is too dry"},
		{49.9, "**Action needed:** Your soil is too dry"},
		{50, "**Good levels:**"},
		{68, "**Good levels:**"},
		{80, "**Good levels:**"},
		{80.1, "**Caution:** Soil may be too wet"},
	}

	for _, tt := range tests {
		snap := soilOnly(func(s *farm.SoilData) { s.Moisture = tt.moisture })
		out := Respond("how much water?", snap)
		assert.Contains(t, out, tt.want, "moisture=%v", tt.moisture)
		if tt.moisture >= 50 && tt.moisture <= 80 {
			assert.NotContains(t, out, "too dry")
			assert.NotContains(t, out, "too wet")
		}
	}
}

func TestPHBranches(t *testing.T) {
	out := Respond("What about pH?", soilOnly(func(s *farm.SoilData) { s.PH = 6.0 }))
	assert.Contains(t, out, "Too acidic")
	assert.Contains(t, out, "Add agricultural lime")
	assert.Contains(t, out, "Current pH: 6")

	out = Respond("is it alkaline", soilOnly(func(s *farm.SoilData) { s.PH = 7.5 }))
	assert.Contains(t, out, "Too alkaline")

	out = Respond("acid", soilOnly(nil))
	assert.Contains(t, out, "**Perfect range:**")
}

func TestPestAlertsHighRisk(t *testing.T) {
	pests := []string{"Aphid", "Cutworm", "Spider Mite", "Whitefly"}
	snap := fullSnapshot(func(s *farm.MetricsSnapshot) {
		s.Pest.RiskLevel = farm.RiskHigh
		s.Pest.RecentPests = pests
	})

	out := Respond("pest alerts", snap)

	assert.Contains(t, out, "Aphid, Cutworm, Spider Mite, Whitefly")
	assert.Contains(t, out, "**High risk:** Immediate action required")
	assert.NotContains(t, out, "**Medium risk:**")
	assert.NotContains(t, out, "**Low risk:**")
}

func TestPestRiskBlocks(t *testing.T) {
	tests := []struct {
		level farm.RiskLevel
		want  string
	}{
		{farm.RiskHigh, "**High risk:**"},
		{farm.RiskMedium, "**Medium risk:**"},
		{farm.RiskLow, "**Low risk:**"},
		{farm.RiskLevel("unknown"), "**Low risk:**"},
	}
	for _, tt := range tests {
		snap := fullSnapshot(func(s *farm.MetricsSnapshot) { s.Pest.RiskLevel = tt.level })
		assert.Contains(t, Respond("any bugs?", snap), tt.want, "risk=%s", tt.level)
	}
}

func TestCropHealthBranches(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{92, "**Excellent condition:**"},
		{80, "**Excellent condition:**"},
		{78, "**Moderate condition:**"},
		{60, "**Moderate condition:**"},
		{59.9, "**Poor condition:**"},
	}
	for _, tt := range tests {
		snap := fullSnapshot(func(s *farm.MetricsSnapshot) { s.Crop.AvgHealthScore = tt.score })
		assert.Contains(t, Respond("how is my field doing", snap), tt.want, "score=%v", tt.score)
	}
}

func TestDefaultSummaryAllPass(t *testing.T) {
	snap := soilOnly(func(s *farm.SoilData) { s.Moisture = 68; s.PH = 6.8; s.Nitrogen = 42 })

	out := Respond("banana", snap)

	assert.True(t, strings.HasPrefix(out, "🤖 **Soil Health Summary:**"))
	assert.Contains(t, out, "• Moisture: 68% ✅")
	assert.Contains(t, out, "• pH: 6.8 ✅")
	assert.Contains(t, out, "• Nitrogen: 42ppm ✅")
	assert.Contains(t, out, "No major issues detected")
	assert.NotContains(t, out, "⚠️")
	assert.NotContains(t, out, "Crop Health")
}

func TestDefaultSummaryListsIssues(t *testing.T) {
	snap := soilOnly(func(s *farm.SoilData) { s.Nitrogen = 30; s.Moisture = 40 })

	out := Respond("", snap)

	assert.Contains(t, out, "**Current Issues:** low nitrogen levels, low soil moisture")
	assert.Contains(t, out, "• Moisture: 40% ⚠️")
}

func TestDefaultSummaryExtendedStatusLines(t *testing.T) {
	out := Respond("banana", fullSnapshot(nil))

	assert.Contains(t, out, "🤖 **Farm Health Summary:**")
	assert.Contains(t, out, "• Crop Health: 78% avg, 2 fields at risk ⚠️")
	assert.Contains(t, out, "• Pest Risk: medium, 3 active alerts ⚠️")
}

func TestPrecedence(t *testing.T) {
	extended := New(Features{Crop: true, Pest: true})
	base := New(Features{})

	tests := []struct {
		name   string
		engine *Engine
		text   string
		want   Topic
	}{
		{"nitrogen beats recommendation", base, "nitrogen fertilizer recommendation", TopicNitrogen},
		{"moisture beats ph", base, "water and ph", TopicMoisture},
		{"ph beats crop", extended, "acid crop", TopicPH},
		{"crop health before pest", extended, "pest on my field", TopicCropHealth},
		{"pest before recommendation", extended, "help with bugs", TopicPest},
		{"recommendation before weather", extended, "advice on weather", TopicRecommendations},
		{"weather extended only", base, "weather", TopicSummary},
		{"crop health extended", extended, "crop", TopicCropHealth},
		{"crop suitability base", base, "what should I plant", TopicCropSuitability},
		{"pest ignored without pest data", base, "pest", TopicSummary},
		{"health ignored without crop data", base, "health", TopicSummary},
		{"empty", base, "", TopicSummary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.engine.Match(tt.text))
		})
	}

	out := base.Respond("nitrogen fertilizer recommendation", soilOnly(func(s *farm.SoilData) { s.Nitrogen = 10 }))
	assert.True(t, strings.HasPrefix(out, "🌿 **Nitrogen Analysis:**"))
}

func TestPestOnlyEngineUsesGenericCropBranch(t *testing.T) {
	e := New(Features{Pest: true})
	assert.Equal(t, TopicCropSuitability, e.Match("which crop"))
	assert.Equal(t, TopicWeather, e.Match("forecast"))
}

func TestRecommendationsNumberedWithTimeline(t *testing.T) {
	snap := soilOnly(func(s *farm.SoilData) { s.Nitrogen = 30; s.PH = 7.5 })

	out := Respond("any suggestions?", snap)

	assert.Contains(t, out, "1. Apply nitrogen-rich fertilizer or compost\n2. Add sulfur to lower pH")
	assert.Contains(t, out, "**Timeline:**")

	out = Respond("help", soilOnly(nil))
	assert.True(t, strings.HasPrefix(out, "✅ **Great News!**"))
}

func TestRecommendationsFoldCropAndPest(t *testing.T) {
	snap := fullSnapshot(func(s *farm.MetricsSnapshot) { s.Pest.RiskLevel = farm.RiskHigh })

	out := Respond("advice", snap)

	assert.Contains(t, out, "1. Inspect 2 fields at risk for crop stress")
	assert.Contains(t, out, "2. Treat active pest infestations within 24 hours")

	calm := fullSnapshot(func(s *farm.MetricsSnapshot) {
		s.Crop.FieldsAtRisk = 0
		s.Pest.RiskLevel = farm.RiskLow
	})
	assert.Contains(t, Respond("advice", calm), "Great News")
}

func TestWeatherCitesMoisture(t *testing.T) {
	out := Respond("what's the forecast", fullSnapshot(func(s *farm.MetricsSnapshot) { s.Soil.Moisture = 55.5 }))
	assert.Contains(t, out, "Current soil moisture: 55.5%")
}

func TestDefaultsSubstitutedForExplicitFeatures(t *testing.T) {
	e := New(Features{Crop: true, Pest: true})

	out := e.Respond("pest", soilOnly(nil))

	assert.Contains(t, out, "Aphid, Cutworm, Spider Mite")
	assert.Contains(t, out, "**Medium risk:**")
}

func TestRespondIsPureAndDoesNotMutate(t *testing.T) {
	snap := fullSnapshot(nil)
	before := snap.Clone()

	for _, q := range []string{"pest", "banana", "advice", "crop health", "weather"} {
		first := Respond(q, snap)
		second := Respond(q, snap)
		require.Equal(t, first, second, "query %q", q)
	}
	assert.Equal(t, before, snap)

	soil := soilOnly(nil)
	Respond("pest", soil)
	assert.Nil(t, soil.Pest)
}

func TestRespondConcurrent(t *testing.T) {
	snap := fullSnapshot(nil)
	e := New(FeaturesFor(snap))
	want := e.Respond("advice", snap)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, e.Respond("advice", snap))
		}()
	}
	wg.Wait()
}

func TestGreeting(t *testing.T) {
	out := Greeting(soilOnly(nil), Features{})
	assert.Contains(t, out, "• Moisture: 68% (Optimal)")
	assert.Contains(t, out, "• pH: 6.8 (Optimal)")
	assert.Contains(t, out, "• Nitrogen: 42ppm (Good)")
	assert.NotContains(t, out, "Crop Health")

	out = Greeting(soilOnly(func(s *farm.SoilData) { s.Moisture = 50; s.PH = 5; s.Nitrogen = 40 }), Features{Crop: true})
	assert.Contains(t, out, "• Moisture: 50% (Good)")
	assert.Contains(t, out, "• pH: 5 (Needs attention)")
	assert.Contains(t, out, "• Nitrogen: 40ppm (Low)")
	assert.Contains(t, out, "• Crop Health: 78% average across 4 fields")

	assert.Contains(t, Greeting(soilOnly(func(s *farm.SoilData) { s.Moisture = 45 }), Features{}), "(Low)")
}

func TestPrompts(t *testing.T) {
	assert.Len(t, Prompts(Features{}), 3)
	assert.Len(t, Prompts(Features{Pest: true}), 5)
}
