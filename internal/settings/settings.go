// Package settings persists user preferences for the dashboard.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	apperrors "github.com/cropwatch/cropwatch/internal/errors"
)

const FileName = "settings.json"

// Profile describes the farm and its owner.
type Profile struct {
	FarmName  string `json:"farmName"`
	OwnerName string `json:"ownerName"`
	Email     string `json:"email"`
	Location  string `json:"location"`
}

// Notifications toggles alert categories.
type Notifications struct {
	PestAlerts    bool `json:"pestAlerts"`
	CropAlerts    bool `json:"cropAlerts"`
	SoilAlerts    bool `json:"soilAlerts"`
	WeatherAlerts bool `json:"weatherAlerts"`
	Email         bool `json:"email"`
}

// Monitoring holds scan and retention preferences.
type Monitoring struct {
	ScanFrequencyHours int    `json:"scanFrequencyHours"`
	AlertThreshold     int    `json:"alertThreshold"`
	DataRetentionDays  int    `json:"dataRetentionDays"`
	TemperatureUnit    string `json:"temperatureUnit"`
}

// Settings is the full preference document.
type Settings struct {
	Language      string        `json:"language"`
	SpeechEnabled bool          `json:"speechEnabled"`
	SpeechRate    float64       `json:"speechRate"`
	Profile       Profile       `json:"profile"`
	Notifications Notifications `json:"notifications"`
	Monitoring    Monitoring    `json:"monitoring"`
}

// Default returns the settings a new installation starts with.
func Default() Settings {
	return Settings{
		Language:      "en",
		SpeechEnabled: true,
		SpeechRate:    0.9,
		Profile: Profile{
			FarmName:  "Green Valley Farms",
			OwnerName: "John Farmer",
			Email:     "john@greenvalley.com",
			Location:  "Iowa, USA",
		},
		Notifications: Notifications{
			PestAlerts: true,
			CropAlerts: true,
			SoilAlerts: true,
			Email:      true,
		},
		Monitoring: Monitoring{
			ScanFrequencyHours: 6,
			AlertThreshold:     75,
			DataRetentionDays:  365,
			TemperatureUnit:    "celsius",
		},
	}
}

// Validate checks value ranges.
func (s Settings) Validate() error {
	var problems []string
	switch s.Language {
	case "en", "te":
	default:
		problems = append(problems, fmt.Sprintf("language must be en or te, got %q", s.Language))
	}
	if s.SpeechRate < 0.1 || s.SpeechRate > 10 {
		problems = append(problems, "speechRate must be between 0.1 and 10")
	}
	if s.Profile.Email != "" && !strings.Contains(s.Profile.Email, "@") {
		problems = append(problems, "profile.email is not an email address")
	}
	if s.Monitoring.ScanFrequencyHours < 1 || s.Monitoring.ScanFrequencyHours > 24 {
		problems = append(problems, "monitoring.scanFrequencyHours must be between 1 and 24")
	}
	if s.Monitoring.AlertThreshold < 0 || s.Monitoring.AlertThreshold > 100 {
		problems = append(problems, "monitoring.alertThreshold must be between 0 and 100")
	}
	if s.Monitoring.DataRetentionDays < 30 {
		problems = append(problems, "monitoring.dataRetentionDays must be at least 30")
	}
	switch s.Monitoring.TemperatureUnit {
	case "celsius", "fahrenheit":
	default:
		problems = append(problems, "monitoring.temperatureUnit must be celsius or fahrenheit")
	}

	if len(problems) > 0 {
		return apperrors.Invalid("settings.validate", errors.New(strings.Join(problems, "; ")))
	}
	return nil
}

// Store keeps settings in memory and mirrors them to disk.
type Store struct {
	path string

	mu        sync.RWMutex
	current   Settings
	listeners []func(Settings)
}

// Open loads settings from dataDir, falling back to defaults when the file
// does not exist yet.
func Open(dataDir string) (*Store, error) {
	s := &Store{
		path:    filepath.Join(dataDir, FileName),
		current: Default(),
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}

	loaded := Default()
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if err := loaded.Validate(); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("Ignoring invalid settings file")
		return s, nil
	}
	s.current = loaded
	return s, nil
}

// Path returns the settings file location.
func (s *Store) Path() string { return s.path }

// Get returns the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// OnChange registers fn to run after every successful update.
func (s *Store) OnChange(fn func(Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Update validates and persists next.
func (s *Store) Update(next Settings) (Settings, error) {
	if err := next.Validate(); err != nil {
		return Settings{}, err
	}

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return Settings{}, fmt.Errorf("encode settings: %w", err)
	}

	s.mu.Lock()
	if err := writeFile(s.path, data); err != nil {
		s.mu.Unlock()
		return Settings{}, err
	}
	s.current = next
	listeners := append([]func(Settings){}, s.listeners...)
	s.mu.Unlock()

	log.Info().Str("language", next.Language).Bool("speech", next.SpeechEnabled).Msg("Settings updated")
	for _, fn := range listeners {
		fn(next)
	}
	return next, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit settings: %w", err)
	}
	return nil
}
