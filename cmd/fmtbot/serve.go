// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/fmtbot/cmd/fmtbot/cli"
	"github.com/bureau-foundation/fmtbot/lib/clock"
	"github.com/bureau-foundation/fmtbot/lib/config"
	"github.com/bureau-foundation/fmtbot/lib/git"
	"github.com/bureau-foundation/fmtbot/lib/pipeline"
	"github.com/bureau-foundation/fmtbot/lib/pipelinedef"
	"github.com/bureau-foundation/fmtbot/lib/resultlog"
	"github.com/bureau-foundation/fmtbot/lib/sealed"
	"github.com/bureau-foundation/fmtbot/lib/toolchain"
	"github.com/bureau-foundation/fmtbot/lib/trigger"
)

// resultLogFile is the server's result log inside paths.results.
const resultLogFile = "results.jsonl"

func serveCommand(env environment) *cli.Command {
	var configPath string
	var verbose bool
	return &cli.Command{
		Name:    "serve",
		Summary: "Serve GitHub push webhooks",
		Description: "Listen for GitHub push webhooks and run the pipeline for every accepted\n" +
			"push. Each run clones the repository into its own workspace at the\n" +
			"pushed commit, so pushes are processed concurrently.\n\n" +
			"The configuration file comes from --config or FMTBOT_CONFIG.",
		Examples: []cli.Example{
			{Command: "fmtbot serve --config /etc/fmtbot/fmtbot.yaml"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("serve", pflag.ContinueOnError)
			flagSet.StringVar(&configPath, "config", "", "configuration file (default: $FMTBOT_CONFIG)")
			flagSet.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := cli.NewCommandLogger(verbose).With("command", "serve", "environment", string(cfg.Environment))
			server, err := newServer(cfg, nil, logger)
			if err != nil {
				return err
			}
			defer server.Close()
			return server.Serve(ctx)
		},
	}
}

func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// server runs the pipeline for webhook deliveries.
type server struct {
	config      *config.Config
	definitions map[string]*pipelinedef.Definition
	secret      []byte
	provisioner toolchain.Provisioner
	resultLog   *resultlog.Log
	archive     *resultlog.Archive
	logger      *slog.Logger

	// ctx is the serve context, set by Serve; runs are cancelled
	// with it.
	ctx  context.Context
	runs sync.WaitGroup
}

// newServer loads every repository's job definition and the webhook
// secret so configuration errors surface at startup. A nil
// provisioner selects the real toolchain providers.
func newServer(cfg *config.Config, provisioner toolchain.Provisioner, logger *slog.Logger) (*server, error) {
	if cfg.Webhook.SecretFile == "" {
		return nil, errors.New("webhook.secret_file is required to serve webhooks")
	}
	secret, err := sealed.ReadToken(cfg.Webhook.SecretFile, cfg.Credentials.Identity)
	if err != nil {
		return nil, fmt.Errorf("reading webhook secret: %w", err)
	}

	definitions := make(map[string]*pipelinedef.Definition, len(cfg.Repositories))
	for _, name := range cfg.RepositoryNames() {
		definition := pipelinedef.Default()
		if path := cfg.PipelineFor(name); path != "" {
			definition, err = loadDefinition(path, "")
			if err != nil {
				return nil, fmt.Errorf("repository %s: %w", name, err)
			}
		}
		definitions[name] = definition
	}

	if err := cfg.EnsurePaths(); err != nil {
		return nil, err
	}
	resultLog, err := resultlog.Open(filepath.Join(cfg.Paths.Results, resultLogFile), clock.Real(), logger)
	if err != nil {
		return nil, err
	}

	return &server{
		config:      cfg,
		definitions: definitions,
		secret:      []byte(secret),
		provisioner: provisioner,
		resultLog:   resultLog,
		archive:     resultlog.NewArchive(cfg.Paths.Results, logger),
		logger:      logger,
		ctx:         context.Background(),
	}, nil
}

// Close closes the result log.
func (s *server) Close() error {
	return s.resultLog.Close()
}

// handler returns the webhook handler dispatching to s.
func (s *server) handler() *trigger.WebhookHandler {
	return trigger.NewWebhookHandler(trigger.WebhookConfig{
		Secret:   s.secret,
		Filter:   s.config.TriggerFilter(),
		Dispatch: s.dispatch,
		Logger:   s.logger,
	})
}

// Serve accepts webhooks until ctx is cancelled, then waits for
// in-flight runs (which are cancelled with ctx) to finish.
func (s *server) Serve(ctx context.Context) error {
	s.ctx = ctx
	httpServer := trigger.NewHTTPServer(trigger.HTTPServerConfig{
		Address: s.config.Webhook.Listen,
		Handler: s.handler(),
		Logger:  s.logger,
	})
	err := httpServer.Serve(ctx)
	s.runs.Wait()
	return err
}

// dispatch starts a run for delivery without waiting for it.
func (s *server) dispatch(delivery trigger.Delivery) {
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		s.handle(s.ctx, delivery)
	}()
}

// handle clones the pushed commit into a fresh workspace, runs the
// pipeline there and removes the workspace. Returns nil if the run
// could not start.
func (s *server) handle(ctx context.Context, delivery trigger.Delivery) *pipeline.Run {
	runID := uuid.NewString()
	push := delivery.Trigger
	// The runner adds run_id itself.
	runLogger := s.logger.With("delivery_id", delivery.ID, "repository", push.Repository)
	logger := runLogger.With("run_id", runID)

	definition, ok := s.definitions[push.Repository]
	if !ok {
		logger.Error("push for unconfigured repository")
		return nil
	}
	repositoryConfig := s.config.Repositories[push.Repository]

	token := ""
	if repositoryConfig.TokenFile != "" {
		var err error
		token, err = sealed.ReadToken(repositoryConfig.TokenFile, s.config.Credentials.Identity)
		if err != nil {
			logger.Error("reading repository token", "error", err)
			return nil
		}
	}

	cloneURL := repositoryConfig.CloneURL
	if cloneURL == "" {
		cloneURL = delivery.CloneURL
	}
	branch, ok := push.Branch()
	if !ok || cloneURL == "" {
		logger.Error("push cannot be checked out", "ref", push.Ref, "clone_url", cloneURL)
		return nil
	}

	workspace := filepath.Join(s.config.Paths.Workspaces, runID)
	defer func() {
		if err := os.RemoveAll(workspace); err != nil {
			logger.Warn("removing workspace", "path", workspace, "error", err)
		}
	}()

	repository, err := git.Clone(ctx, cloneURL, branch, push.SHA, workspace, git.AuthEnvironment(token)...)
	if err != nil {
		logger.Error("checkout failed", "error", err)
		return nil
	}

	runner, err := newRunner(runnerOptions{
		Definition:  definition,
		Repository:  repository,
		FullName:    push.Repository,
		Token:       token,
		APIBaseURL:  repositoryConfig.APIBaseURL,
		Provisioner: s.provisioner,
		Observers:   []pipeline.Observer{s.resultLog, s.archive},
		Logger:      runLogger,
		NewID:       func() string { return runID },
	})
	if err != nil {
		logger.Error("assembling pipeline", "error", err)
		return nil
	}
	return runner.Run(ctx, push)
}
