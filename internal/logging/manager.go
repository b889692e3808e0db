package logging

import (
	"fmt"
	"sync"

	"comment-scout/internal/logging/adapters"
)

// Settings is the logging section of the application configuration
type Settings struct {
	Level    string          `yaml:"level" validate:"omitempty,oneof=debug info warn warning error fatal"`
	Format   string          `yaml:"format" validate:"omitempty,oneof=json text"`
	Adapters []AdapterConfig `yaml:"adapters" validate:"dive"`
}

// Manager manages the logging system initialization and configuration
type Manager struct {
	factory *AdapterFactory
	logger  *MultiLogger
}

// NewManager creates a new logging manager
func NewManager() *Manager {
	return &Manager{
		factory: NewAdapterFactory(),
		logger:  NewMultiLogger(),
	}
}

// Initialize configures level and adapters. Without explicit adapters a
// single stderr adapter in the configured format is installed.
func (m *Manager) Initialize(settings Settings) error {
	m.logger.SetLevel(ParseLogLevel(settings.Level))

	enabled := 0
	for _, adapterConfig := range settings.Adapters {
		if !adapterConfig.Enabled {
			continue
		}
		adapter, err := m.factory.CreateAdapter(adapterConfig)
		if err != nil {
			return fmt.Errorf("failed to create adapter %s: %w", adapterConfig.Name, err)
		}
		if err := m.logger.AddAdapter(adapter); err != nil {
			return fmt.Errorf("failed to add adapter %s: %w", adapterConfig.Name, err)
		}
		enabled++
	}

	if enabled == 0 {
		format := settings.Format
		if format == "" {
			format = adapters.FormatText
		}
		adapter := adapters.NewStderrAdapter("default_stderr", adapters.StreamConfig{Format: format})
		if err := m.logger.AddAdapter(adapter); err != nil {
			return fmt.Errorf("failed to add default adapter: %w", err)
		}
	}

	return nil
}

// GetLogger returns the initialized logger
func (m *Manager) GetLogger() Logger {
	return m.logger
}

// Close closes the logging system
func (m *Manager) Close() error {
	if m.logger != nil {
		return m.logger.Close()
	}
	return nil
}

var (
	globalManager *Manager
	globalMu      sync.Mutex
)

// InitializeLogging initializes the global logging system
func InitializeLogging(settings Settings) error {
	manager := NewManager()
	if err := manager.Initialize(settings); err != nil {
		return err
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	globalManager = manager
	return nil
}

// GetGlobalLogger returns the global logger, installing a text stderr
// logger on first use if InitializeLogging was never called.
func GetGlobalLogger() Logger {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		manager := NewManager()
		manager.logger.AddAdapter(adapters.NewStderrAdapter("fallback_stderr", adapters.StreamConfig{
			Format: adapters.FormatText,
		}))
		globalManager = manager
	}
	return globalManager.GetLogger()
}

// CloseLogging closes the global logging system
func CloseLogging() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager != nil {
		return globalManager.Close()
	}
	return nil
}

// NewMemoryLogger returns a debug-level logger backed by a memory adapter
func NewMemoryLogger() (Logger, *adapters.MemoryAdapter) {
	mem := adapters.NewMemoryAdapter("memory")
	logger := NewMultiLogger()
	logger.SetLevel(DebugLevel)
	logger.AddAdapter(mem)
	return logger, mem
}
