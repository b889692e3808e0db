package browser

import (
	"fmt"

	"comment-scout/internal/logging"
)

const (
	EngineRod      = "rod"
	EngineChromedp = "chromedp"
)

// NewRuntime returns the backend registered under name
func NewRuntime(name string, logger logging.Logger) (Runtime, error) {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	switch name {
	case EngineRod:
		return NewRodRuntime(logger), nil
	case EngineChromedp:
		return NewChromedpRuntime(logger), nil
	default:
		return nil, fmt.Errorf("unsupported browser engine: %s", name)
	}
}
