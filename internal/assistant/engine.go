// Package assistant implements the farm assistant's rule-based responder.
//
// An Engine selects one canned answer per message by case-insensitive
// keyword matching and fills it with values from the supplied snapshot.
// It holds no mutable state and is safe for concurrent use.
package assistant

import (
	"strings"

	"github.com/cropwatch/cropwatch/internal/farm"
)

// Topic identifies the answer template a message resolved to.
type Topic string

const (
	TopicNitrogen        Topic = "nitrogen"
	TopicMoisture        Topic = "moisture"
	TopicPH              Topic = "ph"
	TopicCropHealth      Topic = "crop_health"
	TopicPest            Topic = "pest"
	TopicRecommendations Topic = "recommendations"
	TopicWeather         Topic = "weather"
	TopicCropSuitability Topic = "crop_suitability"
	TopicSummary         Topic = "summary"
)

// Features selects which optional branches the engine answers with.
type Features struct {
	Crop bool `json:"crop"`
	Pest bool `json:"pest"`
}

// FeaturesFor reports the features a snapshot can support.
func FeaturesFor(s farm.MetricsSnapshot) Features {
	return Features{Crop: s.HasCrop(), Pest: s.HasPest()}
}

// Extended reports whether any farm-wide data is enabled.
func (f Features) Extended() bool { return f.Crop || f.Pest }

type rule struct {
	topic    Topic
	keywords []string
	enabled  func(Features) bool
	render   func(view) string
}

// rules are evaluated in order; the first enabled rule with a matching
// keyword wins.
var rules = []rule{
	{TopicNitrogen, []string{"nitrogen", "fertilizer"}, always, renderNitrogen},
	{TopicMoisture, []string{"moisture", "water", "irrigation"}, always, renderMoisture},
	{TopicPH, []string{"ph", "acid", "alkaline"}, always, renderPH},
	{TopicCropHealth, []string{"crop", "health", "plant", "field"}, func(f Features) bool { return f.Crop }, renderCropHealth},
	{TopicPest, []string{"pest", "bug", "disease", "alert"}, func(f Features) bool { return f.Pest }, renderPest},
	{TopicRecommendations, []string{"recommendation", "suggest", "help", "advice"}, always, renderRecommendations},
	{TopicWeather, []string{"weather", "forecast", "climate"}, Features.Extended, renderWeather},
	{TopicCropSuitability, []string{"crop", "plant"}, func(f Features) bool { return !f.Crop }, renderCropSuitability},
}

func always(Features) bool { return true }

// Engine answers farm questions from a metrics snapshot.
type Engine struct {
	features Features
}

// New returns an engine answering with the given feature set.
func New(features Features) *Engine {
	return &Engine{features: features}
}

// Features returns the engine's feature set.
func (e *Engine) Features() Features { return e.features }

// Match returns the topic text resolves to.
func (e *Engine) Match(text string) Topic {
	if r := e.match(text); r != nil {
		return r.topic
	}
	return TopicSummary
}

func (e *Engine) match(text string) *rule {
	msg := strings.ToLower(text)
	for i := range rules {
		r := &rules[i]
		if !r.enabled(e.features) {
			continue
		}
		for _, kw := range r.keywords {
			if strings.Contains(msg, kw) {
				return r
			}
		}
	}
	return nil
}

// Respond returns the assistant's answer to text given snapshot. Absent crop
// or pest data is replaced with defaults before any template is filled, and
// snapshot is never modified.
func (e *Engine) Respond(text string, snapshot farm.MetricsSnapshot) string {
	v := view{
		snap:     snapshot.WithDefaults(),
		analysis: Analyze(snapshot),
		features: e.features,
	}
	if r := e.match(text); r != nil {
		return r.render(v)
	}
	return renderSummary(v)
}

// Respond answers text with an engine whose features follow the optional
// data present in snapshot.
func Respond(text string, snapshot farm.MetricsSnapshot) string {
	return New(FeaturesFor(snapshot)).Respond(text, snapshot)
}
