package assistant

import (
	"fmt"

	"github.com/cropwatch/cropwatch/internal/farm"
)

// QuickPrompts are the shortcut questions offered under the chat input.
var QuickPrompts = []string{
	"What are my soil's main issues?",
	"How can I improve nitrogen levels?",
	"Moisture management tips",
}

// ExtendedPrompts are offered in addition when crop or pest data is shown.
var ExtendedPrompts = []string{
	"How healthy are my crops?",
	"Any pest alerts?",
}

// Prompts returns the quick prompts for a feature set.
func Prompts(f Features) []string {
	out := append([]string(nil), QuickPrompts...)
	if f.Extended() {
		out = append(out, ExtendedPrompts...)
	}
	return out
}

// Greeting renders the opening bot message for a new conversation.
func Greeting(s farm.MetricsSnapshot, f Features) string {
	snap := s.WithDefaults()
	soil := snap.Soil

	moisture := "Low"
	switch {
	case soil.Moisture > MoistureOptimal:
		moisture = "Optimal"
	case soil.Moisture > greetingMoistGood:
		moisture = "Good"
	}
	ph := "Needs attention"
	if phInRange(soil.PH) {
		ph = "Optimal"
	}
	nitrogen := "Low"
	if soil.Nitrogen > NitrogenLow {
		nitrogen = "Good"
	}

	intro := "Hello! I'm your AI soil specialist. I've analyzed your current soil conditions:"
	outro := "How can I help you optimize your soil conditions today?"
	if f.Extended() {
		intro = "Hello! I'm your AI farm assistant. I've analyzed your current farm conditions:"
		outro = "How can I help you manage your farm today?"
	}

	out := []string{
		intro,
		"",
		"🌱 **Current Status:**",
		fmt.Sprintf("• Moisture: %s%% (%s)", num(soil.Moisture), moisture),
		fmt.Sprintf("• pH: %s (%s)", num(soil.PH), ph),
		fmt.Sprintf("• Nitrogen: %sppm (%s)", num(soil.Nitrogen), nitrogen),
	}
	if f.Crop {
		out = append(out, fmt.Sprintf("• Crop Health: %s%% average across %s", num(snap.Crop.AvgHealthScore), plural(snap.Crop.TotalFields, "field")))
	}
	if f.Pest {
		out = append(out, fmt.Sprintf("• Pest Risk: %s (%s)", riskLabel(snap.Pest.RiskLevel), plural(snap.Pest.ActiveAlerts, "active alert")))
	}
	out = append(out, "", outro)
	return lines(out...)
}
