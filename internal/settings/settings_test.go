package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/cropwatch/cropwatch/internal/errors"
)

func TestDefaultIsValid(t *testing.T) {
	d := Default()
	require.NoError(t, d.Validate())
	assert.Equal(t, "en", d.Language)
	assert.Equal(t, 0.9, d.SpeechRate)
	assert.Equal(t, "Green Valley Farms", d.Profile.FarmName)
	assert.False(t, d.Notifications.WeatherAlerts)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"unknown language", func(s *Settings) { s.Language = "fr" }},
		{"rate too low", func(s *Settings) { s.SpeechRate = 0 }},
		{"bad email", func(s *Settings) { s.Profile.Email = "farmer" }},
		{"scan frequency", func(s *Settings) { s.Monitoring.ScanFrequencyHours = 25 }},
		{"alert threshold", func(s *Settings) { s.Monitoring.AlertThreshold = 101 }},
		{"retention", func(s *Settings) { s.Monitoring.DataRetentionDays = 7 }},
		{"temperature unit", func(s *Settings) { s.Monitoring.TemperatureUnit = "kelvin" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := Default()
			tc.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}

func TestOpenMissingFileUsesDefaults(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), store.Get())
}

func TestUpdatePersists(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)

	var notified []Settings
	store.OnChange(func(s Settings) { notified = append(notified, s) })

	next := store.Get()
	next.Language = "te"
	next.SpeechRate = 1.1
	saved, err := store.Update(next)
	require.NoError(t, err)
	assert.Equal(t, "te", saved.Language)
	require.Len(t, notified, 1)
	assert.Equal(t, "te", notified[0].Language)

	info, err := os.Stat(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	_, err = os.Stat(filepath.Join(dir, FileName+".tmp"))
	assert.True(t, os.IsNotExist(err))

	reopened, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, saved, reopened.Get())
}

func TestUpdateRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)

	bad := store.Get()
	bad.Language = "xx"
	_, err = store.Update(bad)
	require.Error(t, err)
	assert.Equal(t, "en", store.Get().Language)

	_, err = os.Stat(filepath.Join(dir, FileName))
	assert.True(t, os.IsNotExist(err))
}

func TestOpenIgnoresInvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`{"language":"xx"}`), 0o600))

	store, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, "en", store.Get().Language)
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`{not json`), 0o600))

	_, err := Open(dir)
	assert.Error(t, err)
}

func TestOpenPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`{"language":"te"}`), 0o600))

	store, err := Open(dir)
	require.NoError(t, err)
	got := store.Get()
	assert.Equal(t, "te", got.Language)
	assert.Equal(t, 6, got.Monitoring.ScanFrequencyHours)
}
