package api

import (
	"context"
	"fmt"

	"github.com/JaimeStill/osenchi/internal/classifier"
	"github.com/JaimeStill/osenchi/internal/executions"
	"github.com/JaimeStill/osenchi/internal/jobs"
	"github.com/JaimeStill/osenchi/internal/workflow"
	"github.com/JaimeStill/osenchi/pkg/lifecycle"
)

// Domain holds the pipeline systems: the classifier, both jobs, the
// execution store, and the orchestrator that drives them.
type Domain struct {
	Classifier   *classifier.Client
	Sentiment    *jobs.Sentiment
	Deletion     *jobs.Deletion
	Executions   executions.System
	Orchestrator *workflow.Orchestrator
}

// NewDomain creates all domain systems from the runtime. The execution store
// is Postgres when a database is configured and in-process otherwise.
func NewDomain(ctx context.Context, runtime *Runtime) (*Domain, error) {
	cfg := runtime.Config

	detector, err := classifier.NewDetector(ctx, &cfg.Classifier)
	if err != nil {
		return nil, fmt.Errorf("classifier init failed: %w", err)
	}
	client := classifier.New(detector, cfg.Classifier.Options())

	sentiment := jobs.NewSentiment(runtime.Storage, client, &cfg.Pipeline, runtime.Logger)
	deletion := jobs.NewDeletion(runtime.Storage, runtime.Logger)

	var store executions.System
	if runtime.Database != nil {
		store = executions.New(runtime.Database.Connection(), runtime.Logger, cfg.API.Pagination)
	} else {
		store = executions.NewMemory(runtime.Logger, cfg.API.Pagination)
	}

	def, err := workflow.Pipeline(&cfg.Workflow)
	if err != nil {
		return nil, err
	}

	steps := workflow.Steps(&workflow.Runtime{
		Sentiment:      sentiment,
		Deletion:       deletion,
		Publisher:      runtime.Notify,
		SuccessSubject: cfg.Notify.SuccessSubject(),
		ErrorSubject:   cfg.Notify.ErrorSubject(),
		Logger:         runtime.Logger.With("system", "steps"),
	})

	orchestrator, err := workflow.New(def, steps, store, &cfg.Workflow, runtime.Logger)
	if err != nil {
		return nil, err
	}

	return &Domain{
		Classifier:   client,
		Sentiment:    sentiment,
		Deletion:     deletion,
		Executions:   store,
		Orchestrator: orchestrator,
	}, nil
}

// Start registers the orchestrator with the lifecycle coordinator.
func (d *Domain) Start(lc *lifecycle.Coordinator) error {
	return d.Orchestrator.Start(lc)
}
