package api

import (
	"net/http"

	"github.com/JaimeStill/osenchi/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain, runtime *Runtime) []string {
	groups := []routes.Group{
		domain.Executions.Handler(domain.Orchestrator).Routes(),
		newObjectsHandler(
			runtime.Storage,
			runtime.Logger,
			runtime.Config.Pipeline.MaxObjectBytes(),
		).routes(),
	}

	routes.Register(mux, groups...)
	return routes.Patterns(groups...)
}
