package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/osenchi/internal/api"
	"github.com/JaimeStill/osenchi/internal/config"
	"github.com/JaimeStill/osenchi/internal/infrastructure"
	"github.com/JaimeStill/osenchi/internal/records"
	"github.com/JaimeStill/osenchi/internal/workflow"
)

type runOptions struct {
	bucket string
	key    string
	id     string
	upload string
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline for one source object",
		Long: `Run drives one pipeline execution to completion and prints it as JSON.
With --upload, the local file is written to bucket/key first. The command exits
non-zero when the execution fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.bucket, "bucket", "", "Source bucket (defaults to the configured source bucket)")
	cmd.Flags().StringVar(&opts.key, "key", "", "Object key of the source object")
	cmd.Flags().StringVar(&opts.id, "id", "", "Trigger id carried into the result")
	cmd.Flags().StringVar(&opts.upload, "upload", "", "Local JSON Lines file to upload before running")
	cmd.MarkFlagRequired("key")

	return cmd
}

func runPipeline(cmd *cobra.Command, opts *runOptions) error {
	logger := newLogger(cmd)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	infra, err := infrastructure.NewWithLogger(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	domain, err := api.NewDomain(ctx, api.NewRuntime(cfg, infra, "cli"))
	if err != nil {
		return err
	}

	if err := infra.Start(); err != nil {
		return err
	}
	if err := domain.Start(infra.Lifecycle); err != nil {
		return err
	}
	defer func() {
		if err := infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration()); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	infra.Lifecycle.WaitForStartup()
	if err := infra.Lifecycle.Failures(); err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}

	bucket := opts.bucket
	if bucket == "" {
		bucket = cfg.Pipeline.SourceBucket
	}

	if opts.upload != "" {
		if err := upload(ctx, infra, opts.upload, bucket, opts.key); err != nil {
			return err
		}
	}

	input, err := json.Marshal(workflow.NewTrigger(opts.id, bucket, opts.key))
	if err != nil {
		return err
	}

	exec, err := domain.Orchestrator.Execute(ctx, opts.id, input)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(exec); err != nil {
		return err
	}

	if exec.Status != workflow.StatusSucceeded {
		return fmt.Errorf("execution %s %s", exec.ID, exec.Status)
	}
	return nil
}

func upload(ctx context.Context, infra *infrastructure.Infrastructure, path, bucket, key string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	if _, err := records.Parse(data); err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	if err := infra.Storage.Put(ctx, bucket, key, data, records.ContentType); err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	infra.Logger.Info("source object uploaded", "bucket", bucket, "key", key, "bytes", len(data))
	return nil
}
