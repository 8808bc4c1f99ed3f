// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/fmtbot/cmd/fmtbot/cli"
	"github.com/bureau-foundation/fmtbot/lib/clock"
	"github.com/bureau-foundation/fmtbot/lib/git"
	"github.com/bureau-foundation/fmtbot/lib/pipeline"
	"github.com/bureau-foundation/fmtbot/lib/resultlog"
	"github.com/bureau-foundation/fmtbot/lib/sealed"
	"github.com/bureau-foundation/fmtbot/lib/toolchain"
	"github.com/bureau-foundation/fmtbot/lib/trigger"
)

// runParams holds the flags of "fmtbot run".
type runParams struct {
	dir          string
	pipeline     string
	ref          string
	sha          string
	resultLog    string
	results      string
	tokenFile    string
	identityFile string
	apiURL       string
	outputJSON   bool
	quiet        bool
	verbose      bool
}

func runCommand(env environment) *cli.Command {
	var params runParams
	return &cli.Command{
		Name:    "run",
		Summary: "Run the pipeline once against a checkout",
		Description: "Provision the toolchain, run the formatter in the checkout and, if it\n" +
			"changed anything, commit the changes back to the pushed branch.\n\n" +
			"The trigger comes from --ref/--sha, falling back to GITHUB_REF and\n" +
			"GITHUB_SHA, then to the checkout's current branch and HEAD.",
		Examples: []cli.Example{
			{Description: "format the checkout in a CI job", Command: "fmtbot run"},
			{
				Description: "use an explicit job definition and keep a result log",
				Command:     "fmtbot run --dir ./src --pipeline fmt.jsonc --result-log results.jsonl",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("run", pflag.ContinueOnError)
			flagSet.StringVar(&params.dir, "dir", ".", "checkout to format")
			flagSet.StringVar(&params.pipeline, "pipeline", "", "job definition (default: <dir>/"+definitionFile+" or built-in)")
			flagSet.StringVar(&params.ref, "ref", "", "pushed ref (refs/heads/<branch>)")
			flagSet.StringVar(&params.sha, "sha", "", "pushed commit")
			flagSet.StringVar(&params.resultLog, "result-log", "", "append run entries to this file (.jsonl, or .cbor)")
			flagSet.StringVar(&params.results, "results", "", "archive formatter output under this directory")
			flagSet.StringVar(&params.tokenFile, "token-file", "", "push or API token (plaintext, or .age with --identity)")
			flagSet.StringVar(&params.identityFile, "identity", "", "age identity file for a sealed --token-file")
			flagSet.StringVar(&params.apiURL, "api-url", "", "GitHub API root for api publish mode (default: GITHUB_API_URL)")
			flagSet.BoolVar(&params.outputJSON, "json", false, "print the run report as JSON")
			flagSet.BoolVarP(&params.quiet, "quiet", "q", false, "do not stream formatter output")
			flagSet.BoolVarP(&params.verbose, "verbose", "v", false, "debug logging")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := cli.NewCommandLogger(params.verbose).With("command", "run")
			run, err := executeRun(ctx, env, params, nil, logger)
			if err != nil {
				return err
			}
			if !run.Succeeded() {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

// executeRun performs one run for params and reports it on
// env.stdout. A nil provisioner selects the real toolchain providers.
// The returned error covers setup only; a failed run is reported
// through the Run.
func executeRun(ctx context.Context, env environment, params runParams, provisioner toolchain.Provisioner, logger *slog.Logger) (*pipeline.Run, error) {
	dir, err := filepath.Abs(params.dir)
	if err != nil {
		return nil, fmt.Errorf("resolving --dir: %w", err)
	}

	definition, err := loadDefinition(params.pipeline, dir)
	if err != nil {
		return nil, err
	}

	token, err := readRunToken(env, params)
	if err != nil {
		return nil, err
	}
	repository := git.NewRepository(dir).WithEnvironment(git.AuthEnvironment(token)...)

	push := trigger.FromEnvironment(env.getenv, params.ref, params.sha)
	if err := fillFromCheckout(ctx, repository, &push); err != nil {
		return nil, err
	}

	var observers []pipeline.Observer
	if params.resultLog != "" {
		log, err := resultlog.Open(params.resultLog, clock.Real(), logger)
		if err != nil {
			return nil, err
		}
		defer log.Close()
		observers = append(observers, log)
	}
	if params.results != "" {
		observers = append(observers, resultlog.NewArchive(params.results, logger))
	}

	var stream io.Writer
	if !params.quiet {
		stream = env.stderr
	}
	apiURL := params.apiURL
	if apiURL == "" {
		apiURL = env.getenv("GITHUB_API_URL")
	}

	runner, err := newRunner(runnerOptions{
		Definition:  definition,
		Repository:  repository,
		FullName:    push.Repository,
		Token:       token,
		APIBaseURL:  apiURL,
		Provisioner: provisioner,
		Stream:      stream,
		Observers:   observers,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	run := runner.Run(ctx, push)

	if params.outputJSON {
		if err := cli.WriteJSON(env.stdout, newRunReport(run)); err != nil {
			return run, err
		}
	} else {
		fmt.Fprint(env.stdout, renderSummary(run))
	}
	return run, nil
}

// readRunToken returns the token from --token-file, else GITHUB_TOKEN,
// else "" (the checkout's own credentials are used for git push).
func readRunToken(env environment, params runParams) (string, error) {
	if params.tokenFile != "" {
		return sealed.ReadToken(params.tokenFile, params.identityFile)
	}
	return env.getenv("GITHUB_TOKEN"), nil
}

// fillFromCheckout completes a trigger that neither flags nor the
// environment fully described, from the checkout's current branch and
// HEAD.
func fillFromCheckout(ctx context.Context, repository *git.Repository, push *pipeline.Trigger) error {
	if push.SHA == "" {
		sha, err := repository.HeadSHA(ctx)
		if err != nil {
			return fmt.Errorf("no --sha or GITHUB_SHA, and reading HEAD failed: %w", err)
		}
		push.SHA = sha
	}
	if push.Ref == "" {
		ref, err := repository.Run(ctx, "symbolic-ref", "--quiet", "HEAD")
		if err != nil {
			return fmt.Errorf("no --ref or GITHUB_REF, and HEAD is not on a branch: %w", err)
		}
		push.Ref = strings.TrimSpace(ref)
	}
	return nil
}
