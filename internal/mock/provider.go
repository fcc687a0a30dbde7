// Package mock serves the sample farm that stands in for a real sensor
// pipeline, optionally drifting the readings to simulate a live feed.
package mock

import (
	"math/rand"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cropwatch/cropwatch/internal/farm"
	"github.com/cropwatch/cropwatch/internal/mockmode"
)

const (
	defaultUpdateInterval = 2 * time.Second
	minUpdateInterval     = 100 * time.Millisecond
)

// Observer receives every snapshot produced by the drift loop.
type Observer func(farm.MetricsSnapshot)

// Dashboard bundles everything the dashboard page renders.
type Dashboard struct {
	Snapshot        farm.MetricsSnapshot  `json:"snapshot"`
	Fields          []farm.CropField      `json:"fields"`
	Zones           []farm.SoilZone       `json:"zones"`
	PestAlerts      []farm.PestAlert      `json:"pestAlerts"`
	Recommendations []farm.Recommendation `json:"recommendations"`
	MockMode        bool                  `json:"mockMode"`
	LastUpdate      time.Time             `json:"lastUpdate"`
}

// Provider is the metrics provider for the assistant, API and reports.
type Provider struct {
	dataMu     sync.RWMutex
	profile    Profile
	base       farm.SoilData
	config     MockConfig
	interval   time.Duration
	rng        *rand.Rand
	lastUpdate time.Time

	observersMu sync.RWMutex
	observers   []Observer

	enabled      atomic.Bool
	loopMu       sync.Mutex
	stopUpdateCh chan struct{}
	updateLoopWg sync.WaitGroup
}

// NewProvider creates a provider serving profile.
func NewProvider(profile Profile) *Provider {
	p := &Provider{
		profile:    profile.clone(),
		base:       profile.Snapshot.Soil,
		config:     DefaultConfig,
		interval:   defaultUpdateInterval,
		lastUpdate: time.Now(),
	}
	p.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	return p
}

// Subscribe registers an observer for drift updates.
func (p *Provider) Subscribe(o Observer) {
	p.observersMu.Lock()
	defer p.observersMu.Unlock()
	p.observers = append(p.observers, o)
}

// Snapshot returns the current readings. In soil-only mode crop and pest data
// are withheld.
func (p *Provider) Snapshot() farm.MetricsSnapshot {
	p.dataMu.RLock()
	defer p.dataMu.RUnlock()
	return p.snapshotLocked()
}

func (p *Provider) snapshotLocked() farm.MetricsSnapshot {
	snap := p.profile.Snapshot.Clone()
	if p.config.SoilOnly {
		snap.Crop = nil
		snap.Pest = nil
	}
	return snap
}

// Fields returns the monitored crop fields.
func (p *Provider) Fields() []farm.CropField {
	p.dataMu.RLock()
	defer p.dataMu.RUnlock()
	return append([]farm.CropField(nil), p.profile.Fields...)
}

// Zones returns the sampled soil zones.
func (p *Provider) Zones() []farm.SoilZone {
	p.dataMu.RLock()
	defer p.dataMu.RUnlock()
	return append([]farm.SoilZone(nil), p.profile.Zones...)
}

// PestAlerts returns the active pest detections.
func (p *Provider) PestAlerts() []farm.PestAlert {
	p.dataMu.RLock()
	defer p.dataMu.RUnlock()
	return append([]farm.PestAlert(nil), p.profile.PestAlerts...)
}

// Dashboard returns a consistent copy of all dashboard data.
func (p *Provider) Dashboard() Dashboard {
	p.dataMu.RLock()
	defer p.dataMu.RUnlock()

	c := p.profile.clone()
	return Dashboard{
		Snapshot:        p.snapshotLocked(),
		Fields:          c.Fields,
		Zones:           c.Zones,
		PestAlerts:      c.PestAlerts,
		Recommendations: c.Recommendations,
		MockMode:        p.enabled.Load(),
		LastUpdate:      p.lastUpdate,
	}
}

// IsEnabled reports whether the drift loop is running.
func (p *Provider) IsEnabled() bool {
	return p.enabled.Load()
}

// GetConfig returns the current mock configuration.
func (p *Provider) GetConfig() MockConfig {
	p.dataMu.RLock()
	defer p.dataMu.RUnlock()
	return p.config
}

// SetMockConfig applies cfg, reseeding the generator when a seed is given.
func (p *Provider) SetMockConfig(cfg MockConfig, interval time.Duration) {
	if interval < minUpdateInterval {
		interval = defaultUpdateInterval
	}

	p.dataMu.Lock()
	p.config = cfg
	p.interval = interval
	if cfg.Seed != 0 {
		p.rng = rand.New(rand.NewSource(cfg.Seed))
	}
	p.dataMu.Unlock()

	log.Info().
		Bool("random_metrics", cfg.RandomMetrics).
		Bool("soil_only", cfg.SoilOnly).
		Dur("interval", interval).
		Msg("mock configuration updated")
}

// Reload re-reads CROPWATCH_MOCK_* from the environment and starts or stops
// the drift loop to match CROPWATCH_MOCK_MODE.
func (p *Provider) Reload() {
	cfg, interval := LoadMockConfig()
	p.SetMockConfig(cfg, interval)
	// restart so a new interval takes effect
	p.SetEnabled(false)
	p.SetEnabled(mockmode.IsEnabled())
}

// SetEnabled starts or stops the drift loop.
func (p *Provider) SetEnabled(enable bool) {
	p.loopMu.Lock()
	defer p.loopMu.Unlock()

	if p.enabled.Load() == enable {
		return
	}
	if enable {
		p.startUpdateLoopLocked()
		log.Info().Msg("mock mode enabled")
	} else {
		p.stopUpdateLoopLocked()
		log.Info().Msg("mock mode disabled")
	}
	p.enabled.Store(enable)
}

// Stop halts the drift loop.
func (p *Provider) Stop() {
	p.SetEnabled(false)
}

func (p *Provider) startUpdateLoopLocked() {
	p.dataMu.RLock()
	interval := p.interval
	p.dataMu.RUnlock()

	stopCh := make(chan struct{})
	p.stopUpdateCh = stopCh
	ticker := time.NewTicker(interval)

	p.updateLoopWg.Add(1)
	go func() {
		defer p.updateLoopWg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.Tick()
			case <-stopCh:
				return
			}
		}
	}()
}

func (p *Provider) stopUpdateLoopLocked() {
	if p.stopUpdateCh != nil {
		close(p.stopUpdateCh)
		p.stopUpdateCh = nil
	}
	p.updateLoopWg.Wait()
}

// Tick advances the simulation once and notifies observers.
func (p *Provider) Tick() {
	p.dataMu.Lock()
	if p.config.RandomMetrics {
		UpdateMetrics(p.rng, &p.profile, p.base)
	}
	p.lastUpdate = time.Now()
	snap := p.snapshotLocked()
	p.dataMu.Unlock()

	p.observersMu.RLock()
	observers := append([]Observer(nil), p.observers...)
	p.observersMu.RUnlock()

	for _, o := range observers {
		o(snap)
	}
}

// LoadMockConfig loads mock configuration from environment variables.
func LoadMockConfig() (MockConfig, time.Duration) {
	config := DefaultConfig
	config.RandomMetrics = parseBoolEnv("CROPWATCH_MOCK_RANDOM_METRICS", config.RandomMetrics)
	config.SoilOnly = parseBoolEnv("CROPWATCH_MOCK_SOIL_ONLY", config.SoilOnly)
	config.Seed = int64(parseIntEnv("CROPWATCH_MOCK_SEED", 0, 0))
	interval := parseDurationEnv("CROPWATCH_MOCK_UPDATE_INTERVAL", defaultUpdateInterval)
	return config, interval
}

func parseIntEnv(envName string, defaultValue int, minValue int) int {
	val := strings.TrimSpace(os.Getenv(envName))
	if val == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		log.Warn().
			Err(err).
			Str("env_var", envName).
			Str("value", val).
			Int("default", defaultValue).
			Msg("Invalid mock configuration integer value; using default")
		return defaultValue
	}
	if parsed < minValue {
		log.Warn().
			Str("env_var", envName).
			Int("value", parsed).
			Int("min", minValue).
			Msg("Mock configuration integer below minimum; using default")
		return defaultValue
	}
	return parsed
}

func parseBoolEnv(envName string, defaultValue bool) bool {
	val := strings.TrimSpace(os.Getenv(envName))
	if val == "" {
		return defaultValue
	}

	switch strings.ToLower(val) {
	case "true":
		return true
	case "false":
		return false
	default:
		log.Warn().
			Str("env_var", envName).
			Str("value", val).
			Bool("default", defaultValue).
			Msg("Invalid mock configuration boolean value; using default")
		return defaultValue
	}
}

func parseDurationEnv(envName string, defaultValue time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(envName))
	if val == "" {
		return defaultValue
	}

	parsed, err := time.ParseDuration(val)
	if err != nil || parsed < minUpdateInterval {
		log.Warn().
			Str("env_var", envName).
			Str("value", val).
			Dur("default", defaultValue).
			Msg("Invalid mock update interval; using default")
		return defaultValue
	}
	return parsed
}
