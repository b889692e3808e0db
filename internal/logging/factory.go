package logging

import (
	"fmt"

	"comment-scout/internal/logging/adapters"
)

// AdapterFactory creates logging adapters based on configuration
type AdapterFactory struct{}

// NewAdapterFactory creates a new adapter factory
func NewAdapterFactory() *AdapterFactory {
	return &AdapterFactory{}
}

// CreateAdapter creates a logging adapter based on the provided configuration
func (f *AdapterFactory) CreateAdapter(adapterConfig AdapterConfig) (LogAdapter, error) {
	switch adapterConfig.Type {
	case "stdout":
		return adapters.NewStdoutAdapter(adapterConfig.Name, streamConfig(adapterConfig)), nil
	case "stderr":
		return adapters.NewStderrAdapter(adapterConfig.Name, streamConfig(adapterConfig)), nil
	case "file":
		return adapters.NewFileAdapter(adapterConfig.Name, adapters.FileConfig{
			FilePath:    getStringOption(adapterConfig.Options, "file_path", ""),
			Format:      getStringOption(adapterConfig.Options, "format", adapters.FormatJSON),
			MaxSize:     int64(getIntOption(adapterConfig.Options, "max_size", 10<<20)),
			MaxBackups:  getIntOption(adapterConfig.Options, "max_backups", 5),
			Compress:    getBoolOption(adapterConfig.Options, "compress", false),
			SyncOnWrite: getBoolOption(adapterConfig.Options, "sync_on_write", false),
		})
	default:
		return nil, fmt.Errorf("unsupported adapter type: %s", adapterConfig.Type)
	}
}

func streamConfig(adapterConfig AdapterConfig) adapters.StreamConfig {
	return adapters.StreamConfig{
		Format:    getStringOption(adapterConfig.Options, "format", adapters.FormatText),
		Colorized: getBoolOption(adapterConfig.Options, "colorized", false),
	}
}

func getStringOption(options map[string]interface{}, key string, defaultValue string) string {
	if value, exists := options[key]; exists {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return defaultValue
}

func getIntOption(options map[string]interface{}, key string, defaultValue int) int {
	if value, exists := options[key]; exists {
		switch v := value.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return defaultValue
}

func getBoolOption(options map[string]interface{}, key string, defaultValue bool) bool {
	if value, exists := options[key]; exists {
		if boolVal, ok := value.(bool); ok {
			return boolVal
		}
	}
	return defaultValue
}
