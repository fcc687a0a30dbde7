package assistant

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cropwatch/cropwatch/internal/farm"
)

type view struct {
	snap     farm.MetricsSnapshot // defaults applied
	analysis Analysis
	features Features
}

func lines(l ...string) string {
	return strings.Join(l, "\n")
}

// num renders v with the shortest exact decimal form, so 68 prints as "68"
// and 6.8 as "6.8".
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}

func glyph(ok bool) string {
	if ok {
		return "✅"
	}
	return "⚠️"
}

func renderNitrogen(v view) string {
	n := v.snap.Soil.Nitrogen
	if n < NitrogenLow {
		return lines(
			"🌿 **Nitrogen Analysis:**",
			"",
			fmt.Sprintf("Your current nitrogen level is %sppm. This is below optimal levels.", num(n)),
			"",
			"**Recommendations:**",
			"• Apply nitrogen fertilizer (urea or ammonium nitrate)",
			"• Consider organic options like compost or manure",
			"• Schedule application for early growing season",
			"• Target 50-60ppm for optimal crop growth",
		)
	}
	return lines(
		"🌿 **Nitrogen Analysis:**",
		"",
		fmt.Sprintf("Your current nitrogen level is %sppm. This is within good range.", num(n)),
		"",
		"**Maintenance:**",
		"• Monitor levels monthly",
		"• Maintain current fertilization schedule",
		"• Consider slow-release options for steady nutrition",
		"• Keep levels in the 50-60ppm target range",
	)
}

func renderMoisture(v view) string {
	m := v.snap.Soil.Moisture
	head := []string{
		"💧 **Moisture Management:**",
		"",
		fmt.Sprintf("Current moisture level: %s%%", num(m)),
		"",
	}
	switch {
	case m < MoistureLow:
		return lines(append(head,
			"**Action needed:** Your soil is too dry",
			"• Increase irrigation frequency",
			"• Apply mulch to retain moisture",
			"• Consider drip irrigation for efficiency",
			"• Check for drainage issues",
		)...)
	case m > MoistureHigh:
		return lines(append(head,
			"**Caution:** Soil may be too wet",
			"• Reduce watering frequency",
			"• Improve drainage",
			"• Monitor for root rot risks",
		)...)
	default:
		return lines(append(head,
			"**Good levels:** Continue current watering schedule",
			"• Monitor daily during hot weather",
			"• Adjust based on crop growth stage",
		)...)
	}
}

func renderPH(v view) string {
	ph := v.snap.Soil.PH
	head := []string{
		"⚖️ **pH Balance Analysis:**",
		"",
		"Current pH: " + num(ph),
		"",
	}
	switch {
	case ph < PHLow:
		return lines(append(head,
			"**Too acidic:** Plants may struggle with nutrient uptake",
			"• Add agricultural lime (2-4 lbs per 100 sq ft)",
			"• Consider wood ash for organic option",
			"• Retest in 2-3 months",
		)...)
	case ph > PHHigh:
		return lines(append(head,
			"**Too alkaline:** May limit nutrient availability",
			"• Add sulfur or organic matter",
			"• Use acidifying fertilizers",
			"• Plant acid-loving cover crops",
		)...)
	default:
		return lines(append(head,
			"**Perfect range:** Optimal for most crops",
			"• Maintain with balanced fertilizers",
			"• Monitor monthly during growing season",
		)...)
	}
}

func renderCropHealth(v view) string {
	c := v.snap.Crop
	head := []string{
		"🌾 **Crop Health Overview:**",
		"",
		fmt.Sprintf("Average health score across %s: %s%% (NDVI %s)", plural(c.TotalFields, "field"), num(c.AvgHealthScore), num(c.NDVIAverage)),
		fmt.Sprintf("Fields at risk: %d", c.FieldsAtRisk),
		"",
	}
	switch {
	case c.AvgHealthScore >= HealthExcellent:
		return lines(append(head,
			"**Excellent condition:** Crops are thriving",
			"• Maintain current nutrient and irrigation programs",
			"• Continue weekly satellite scans",
			"• Plan harvest logistics for peak yield",
		)...)
	case c.AvgHealthScore >= HealthModerate:
		return lines(append(head,
			"**Moderate condition:** Some fields need attention",
			"• Inspect fields at risk this week",
			"• Check lower-NDVI areas for nutrient deficiencies",
			"• Adjust irrigation in stressed zones",
		)...)
	default:
		return lines(append(head,
			"**Poor condition:** Immediate intervention required",
			"• Scout every field at risk today",
			"• Test soil and plant tissue for deficiencies",
			"• Consult an agronomist about recovery options",
		)...)
	}
}

func renderPest(v view) string {
	p := v.snap.Pest
	detected := "none reported"
	if len(p.RecentPests) > 0 {
		detected = strings.Join(p.RecentPests, ", ")
	}
	head := []string{
		"🐛 **Pest Management:**",
		"",
		fmt.Sprintf("Active alerts: %d", p.ActiveAlerts),
		"Recently detected: " + detected,
		"",
	}
	switch p.RiskLevel.Normalize() {
	case farm.RiskHigh:
		return lines(append(head,
			"**High risk:** Immediate action required",
			"• Apply targeted treatment within 24 hours",
			"• Inspect all affected zones today",
			"• Isolate heavily infested areas",
			"• Consider professional pest control",
		)...)
	case farm.RiskMedium:
		return lines(append(head,
			"**Medium risk:** Monitor closely",
			"• Increase scouting to twice weekly",
			"• Deploy sticky traps in affected zones",
			"• Prepare organic treatments like neem oil",
		)...)
	default:
		return lines(append(head,
			"**Low risk:** Conditions are under control",
			"• Continue weekly monitoring",
			"• Encourage beneficial insects",
			"• Maintain field hygiene",
		)...)
	}
}

func renderRecommendations(v view) string {
	recs := v.analysis.Recommendations
	subject := "soil"
	if v.features.Extended() {
		recs = Priorities(v.snap, v.features)
		subject = "farm"
	}

	if len(recs) == 0 {
		return lines(
			"✅ **Great News!**",
			"",
			fmt.Sprintf("Your %s conditions are looking good! Here's how to maintain them:", subject),
			"",
			"• Continue current fertilization schedule",
			"• Monitor moisture levels weekly",
			"• Test soil monthly during growing season",
			"• Maintain pH with balanced amendments",
			"",
			"Is there a specific aspect you'd like to focus on?",
		)
	}

	out := []string{
		"🎯 **Priority Recommendations:**",
		"",
		fmt.Sprintf("Based on your %s analysis, here's what I suggest:", subject),
		"",
	}
	for i, rec := range recs {
		out = append(out, fmt.Sprintf("%d. %s", i+1, rec))
	}
	out = append(out,
		"",
		"**Timeline:**",
		"• Immediate: Address moisture and pH issues",
		"• This week: Apply needed fertilizers",
		"• Monthly: Monitor and adjust as needed",
		"",
		"Would you like specific guidance on any of these recommendations?",
	)
	return lines(out...)
}

func renderWeather(v view) string {
	return lines(
		"🌤️ **Weather Guidance:**",
		"",
		fmt.Sprintf("Current soil moisture: %s%%", num(v.snap.Soil.Moisture)),
		"",
		"• Check the local forecast before scheduling irrigation",
		"• Delay fertilizer application if heavy rain is expected",
		"• Cover sensitive crops when frost is forecast",
		"• Increase watering during heat waves",
		"",
		"Pair forecast data with your moisture readings to plan field work.",
	)
}

func renderCropSuitability(view) string {
	return lines(
		"🌱 **Crop-Specific Guidance:**",
		"",
		"Based on your current soil conditions, here are suitable crops:",
		"",
		"**Excellent matches:**",
		"• Leafy greens (lettuce, spinach, kale)",
		"• Root vegetables (carrots, radishes)",
		"• Herbs (basil, parsley, cilantro)",
		"",
		"**Good with amendments:**",
		"• Tomatoes (need higher nitrogen)",
		"• Corn (requires more nutrients)",
		"• Beans (fix their own nitrogen)",
		"",
		"What crops are you planning to grow? I can provide specific soil preparation advice.",
	)
}

func renderSummary(v view) string {
	soil := v.snap.Soil
	title := "🤖 **Soil Health Summary:**"
	hint := `Try asking about specific aspects like "nitrogen levels", "moisture management", or "pH balance" for detailed guidance!`
	if v.features.Extended() {
		title = "🤖 **Farm Health Summary:**"
		hint = `Try asking about "crop health", "pest alerts", "recommendations", or "weather" for detailed guidance!`
	}

	issues := "No major issues detected"
	if len(v.analysis.Issues) > 0 {
		issues = strings.Join(v.analysis.Issues, ", ")
	}

	out := []string{
		title,
		"",
		"I've analyzed your question and here's what I found:",
		"",
		"**Current Issues:** " + issues,
		"",
		"**Key Metrics:**",
		fmt.Sprintf("• Moisture: %s%% %s", num(soil.Moisture), glyph(soil.Moisture > MoistureOptimal)),
		fmt.Sprintf("• pH: %s %s", num(soil.PH), glyph(phInRange(soil.PH))),
		fmt.Sprintf("• Nitrogen: %sppm %s", num(soil.Nitrogen), glyph(soil.Nitrogen > NitrogenLow)),
	}
	if v.features.Crop {
		c := v.snap.Crop
		out = append(out, fmt.Sprintf("• Crop Health: %s%% avg, %s at risk %s",
			num(c.AvgHealthScore), plural(c.FieldsAtRisk, "field"), glyph(c.AvgHealthScore >= HealthExcellent)))
	}
	if v.features.Pest {
		p := v.snap.Pest
		out = append(out, fmt.Sprintf("• Pest Risk: %s, %s %s",
			riskLabel(p.RiskLevel), plural(p.ActiveAlerts, "active alert"), glyph(riskLabel(p.RiskLevel) == string(farm.RiskLow))))
	}
	out = append(out, "", hint)
	return lines(out...)
}

// riskLabel treats any unrecognized level as low.
func riskLabel(r farm.RiskLevel) string {
	return string(r.Normalize())
}
