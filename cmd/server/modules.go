package main

import (
	"net/http"

	"github.com/JaimeStill/osenchi/internal/api"
	"github.com/JaimeStill/osenchi/internal/infrastructure"
	"github.com/JaimeStill/osenchi/pkg/handlers"
	"github.com/JaimeStill/osenchi/pkg/module"
)

type Modules struct {
	API *module.Module
}

func NewModules(runtime *api.Runtime, domain *api.Domain) *Modules {
	return &Modules{
		API: api.NewModule(runtime, domain),
	}
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
}

func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := infra.Lifecycle.Failures(); err != nil {
			handlers.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "failed",
				"error":  err.Error(),
			})
			return
		}
		if !infra.Lifecycle.Ready() {
			handlers.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
		if infra.Database != nil {
			if err := infra.Database.Ping(r.Context()); err != nil {
				handlers.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "degraded",
					"error":  err.Error(),
				})
				return
			}
		}
		handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	return router
}
