package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const debounceDelay = 100 * time.Millisecond

// ConfigWatcher monitors .env and mock.env in the data directory.
type ConfigWatcher struct {
	config          *Config
	envPath         string
	mockEnvPath     string
	watcher         *fsnotify.Watcher
	stopChan        chan struct{}
	doneChan        chan struct{}
	pollInterval    time.Duration
	lastModTime     time.Time
	mockLastModTime time.Time
	mu              sync.RWMutex
	onEnvReload     func(*Config)
	onMockReload    func()
}

// NewConfigWatcher creates a new config watcher
func NewConfigWatcher(config *Config) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	cw := &ConfigWatcher{
		config:       config,
		envPath:      filepath.Join(config.DataPath, ".env"),
		mockEnvPath:  config.MockEnvPath(),
		watcher:      watcher,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
		pollInterval: 5 * time.Second,
	}

	if stat, err := os.Stat(cw.envPath); err == nil {
		cw.lastModTime = stat.ModTime()
	}
	if stat, err := os.Stat(cw.mockEnvPath); err == nil {
		cw.mockLastModTime = stat.ModTime()
	}

	return cw, nil
}

// SetEnvReloadCallback is called with the updated config after .env changes.
func (cw *ConfigWatcher) SetEnvReloadCallback(callback func(*Config)) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.onEnvReload = callback
}

// SetMockReloadCallback sets the callback function to trigger when mock.env changes
func (cw *ConfigWatcher) SetMockReloadCallback(callback func()) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.onMockReload = callback
}

// Start begins watching the data directory, falling back to polling when
// the directory cannot be watched.
func (cw *ConfigWatcher) Start() error {
	dir := filepath.Dir(cw.envPath)
	if err := cw.watcher.Add(dir); err != nil {
		log.Warn().Err(err).Str("path", dir).Msg("Failed to watch config directory")
		log.Warn().Msg("Falling back to polling for config changes")
		go cw.pollForChanges()
		return nil
	}

	go cw.watchForChanges()
	log.Info().
		Str("env_path", cw.envPath).
		Str("mock_env_path", cw.mockEnvPath).
		Msg("Started watching config files for changes")
	return nil
}

// Stop stops the config watcher and waits for its goroutine to exit.
func (cw *ConfigWatcher) Stop() {
	select {
	case <-cw.stopChan:
		return
	default:
		close(cw.stopChan)
	}
	cw.watcher.Close()
	<-cw.doneChan
}

// ReloadConfig manually triggers a config reload (e.g., from SIGHUP)
func (cw *ConfigWatcher) ReloadConfig() {
	cw.reloadConfig()
}

func (cw *ConfigWatcher) watchForChanges() {
	defer close(cw.doneChan)

	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			switch filepath.Base(event.Name) {
			case ".env":
				time.Sleep(debounceDelay)
				log.Info().Str("event", event.Op.String()).Msg("Detected .env file change")
				cw.reloadConfig()
			case "mock.env", "mock.env.local":
				time.Sleep(debounceDelay)
				log.Info().Str("event", event.Op.String()).Msg("Detected mock.env file change")
				cw.reloadMockConfig()
			}

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Config watcher error")

		case <-cw.stopChan:
			return
		}
	}
}

func (cw *ConfigWatcher) pollForChanges() {
	defer close(cw.doneChan)

	ticker := time.NewTicker(cw.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if stat, err := os.Stat(cw.envPath); err == nil && stat.ModTime().After(cw.lastModTime) {
				log.Info().Msg("Detected .env file change via polling")
				cw.lastModTime = stat.ModTime()
				cw.reloadConfig()
			}
			if stat, err := os.Stat(cw.mockEnvPath); err == nil && stat.ModTime().After(cw.mockLastModTime) {
				log.Info().Msg("Detected mock.env file change via polling")
				cw.mockLastModTime = stat.ModTime()
				cw.reloadMockConfig()
			}

		case <-cw.stopChan:
			return
		}
	}
}

// reloadConfig applies the runtime-adjustable .env settings.
func (cw *ConfigWatcher) reloadConfig() {
	envMap, err := godotenv.Read(cw.envPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Error().Err(err).Msg("Failed to read .env file")
			return
		}
		envMap = make(map[string]string)
	}

	cw.mu.Lock()
	var changes []string
	if level := strings.Trim(envMap[envPrefix+"LOG_LEVEL"], "'\""); level != "" && level != cw.config.LogLevel {
		cw.config.LogLevel = level
		changes = append(changes, "log level")
	}
	if origins, ok := envMap[envPrefix+"ALLOWED_ORIGINS"]; ok {
		origins = strings.Trim(origins, "'\"")
		if origins != cw.config.AllowedOrigins {
			cw.config.AllowedOrigins = origins
			changes = append(changes, "allowed origins")
		}
	}
	callback := cw.onEnvReload
	cfg := *cw.config
	cw.mu.Unlock()

	if len(changes) == 0 {
		log.Debug().Msg("No relevant changes detected in .env file")
		return
	}

	log.Info().Strs("changes", changes).Msg("Applied .env file changes to runtime config")
	if callback != nil {
		callback(&cfg)
	}
}

// reloadMockConfig exports CROPWATCH_MOCK_* values from mock.env (and
// mock.env.local) into the environment for the mock package to read.
func (cw *ConfigWatcher) reloadMockConfig() {
	cw.mu.RLock()
	callback := cw.onMockReload
	cw.mu.RUnlock()

	envMap, err := godotenv.Read(cw.mockEnvPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Error().Err(err).Msg("Failed to read mock.env file")
			return
		}
		log.Warn().Msg("mock.env file not found")
		return
	}

	localPath := cw.mockEnvPath + ".local"
	if localEnv, err := godotenv.Read(localPath); err == nil {
		for key, value := range localEnv {
			envMap[key] = value
		}
		log.Debug().Str("path", localPath).Msg("Loaded mock.env.local overrides")
	}

	for key, value := range envMap {
		if strings.HasPrefix(key, envPrefix+"MOCK_") {
			os.Setenv(key, value)
		}
	}

	log.Info().
		Str("path", cw.mockEnvPath).
		Interface("config", envMap).
		Msg("Reloaded mock.env configuration")

	if callback != nil {
		callback()
	}
}
