package api

import (
	"github.com/JaimeStill/osenchi/internal/config"
	"github.com/JaimeStill/osenchi/internal/infrastructure"
)

// Runtime extends Infrastructure with the configuration the domain systems read.
type Runtime struct {
	*infrastructure.Infrastructure
	Config *config.Config
}

// NewRuntime creates a runtime whose logger is scoped to the given module.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure, module string) *Runtime {
	scoped := *infra
	scoped.Logger = infra.Logger.With("module", module)
	return &Runtime{
		Infrastructure: &scoped,
		Config:         cfg,
	}
}
