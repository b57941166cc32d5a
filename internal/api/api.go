// Package api assembles the API module from the pipeline domain and registers its routes.
package api

import (
	"net/http"

	"github.com/JaimeStill/osenchi/pkg/middleware"
	"github.com/JaimeStill/osenchi/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(runtime *Runtime, domain *Domain) *module.Module {
	mux := http.NewServeMux()
	patterns := registerRoutes(mux, domain, runtime)
	runtime.Logger.Info("api routes registered", "routes", patterns)

	m := module.New(runtime.Config.API.BasePath, mux)
	m.Use(
		middleware.Logger(runtime.Logger),
		middleware.CORS(&runtime.Config.API.CORS),
		middleware.RequestID(),
	)

	return m
}
