package cli

import (
	"log/slog"
	"time"

	"github.com/seantiz/errand/internal/automation"
	"github.com/seantiz/errand/internal/config"
)

// scriptedResult is returned by the scripted engine for every task.
const scriptedResult = `1. Pizzeria Napoli - Margherita - 119 SEK - https://www.ubereats.com/store/pizzeria-napoli/margherita
2. Pizzeria Napoli - Capricciosa - 135 SEK - https://www.ubereats.com/store/pizzeria-napoli/capricciosa`

// newEngine builds the automation engine selected by cfg.
func newEngine(cfg config.EngineConfig, logger *slog.Logger) automation.Engine {
	if cfg.Kind == config.EngineScripted {
		return &automation.Scripted{
			Steps:     []string{"open browser", "navigate", "collect results"},
			StepDelay: 200 * time.Millisecond,
			Result:    scriptedResult,
		}
	}
	return automation.NewCommandEngine(cfg.Command, cfg.Args, nil, logger)
}
