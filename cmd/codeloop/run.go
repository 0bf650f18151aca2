package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/martinemde/codeloop/agentloop"
	"github.com/martinemde/codeloop/config"
	"github.com/martinemde/codeloop/display"
	"github.com/martinemde/codeloop/interpreter"
	"github.com/martinemde/codeloop/unifiedllm"
)

type runOptions struct {
	dataDir       string
	model         string
	provider      string
	backend       string
	imageDir      string
	maxIterations int
	exactTokens   bool
	quiet         bool
}

func runCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Run a data analysis task",
		Long: `Run a data analysis task to completion.

Examples:
  codeloop run "Load the iris dataset and plot sepal length vs width"
  codeloop run --data-dir ./data "Summarize sales.csv by region"
  codeloop run --backend local --image-dir plots "Plot a sine wave"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Read(root.configPath)
			if err != nil {
				return err
			}
			applyRunFlags(cmd, cfg, opts)
			if err := cfg.ResolveModel(); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if opts.exactTokens {
				unifiedllm.EnableBPE()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return runTask(ctx, cmd.OutOrStdout(), cfg, opts, strings.Join(args, " "), root.logger)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.dataDir, "data-dir", "d", "", "directory of data files to upload into the session")
	f.StringVarP(&opts.model, "model", "m", "", "model ID or alias")
	f.StringVarP(&opts.provider, "provider", "p", "", "model provider (default: inferred from the model)")
	f.StringVar(&opts.backend, "backend", "", "interpreter backend: remote or local")
	f.StringVar(&opts.imageDir, "image-dir", "", "directory to save generated plots")
	f.IntVarP(&opts.maxIterations, "max-iterations", "n", 0, "maximum reasoning iterations")
	f.BoolVar(&opts.exactTokens, "exact-tokens", false, "count context tokens with the cl100k tokenizer")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "print only the final answer")
	return cmd
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config, opts *runOptions) {
	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.Model.Name = opts.model
		if !flags.Changed("provider") {
			// Let the catalog pick the provider for the new model.
			cfg.Model.Provider = ""
		}
	}
	if flags.Changed("provider") {
		cfg.Model.Provider = opts.provider
	}
	if flags.Changed("backend") {
		cfg.Interpreter.Backend = opts.backend
	}
	if flags.Changed("image-dir") {
		cfg.Display.ImageDir = opts.imageDir
	}
	if flags.Changed("max-iterations") {
		cfg.Limits.MaxIterations = opts.maxIterations
	}
}

func runTask(ctx context.Context, out io.Writer, cfg *config.Config, opts *runOptions, task string, logger *slog.Logger) error {
	client, err := newModelClient(cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	exec, err := newExecutor(cfg, logger)
	if err != nil {
		return err
	}

	var files []interpreter.File
	sessionID := ""
	if opts.dataDir != "" {
		if !opts.quiet {
			fmt.Fprintf(out, "📁 Collecting files from %s...\n", opts.dataDir)
		}
		files = interpreter.CollectFiles(opts.dataDir, logger)
		if len(files) > 0 {
			if !opts.quiet {
				fmt.Fprintf(out, "📤 Found %d files. Initializing session with uploaded files...\n", len(files))
			}
			sessionID = agentloop.PreloadSession(ctx, exec, files, logger)
			if !opts.quiet {
				if sessionID != "" {
					fmt.Fprintf(out, "✅ Session initialized with ID: %s\n", sessionID)
				} else {
					fmt.Fprintln(out, "⚠️  Failed to get session ID, continuing without persistent session")
				}
			}
		} else if !opts.quiet {
			fmt.Fprintln(out, "📂 No valid files found in directory")
		}
	}

	agent := agentloop.NewAgent(client, exec, cfg.AgentConfig(),
		agentloop.WithLogger(logger),
		agentloop.WithSessionID(sessionID),
		agentloop.WithDataFiles(agentloop.FileNames(files)),
	)

	var answer string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if opts.quiet {
			for range agent.Events() {
			}
			return nil
		}
		printer, err := newPrinter(out, cfg, logger)
		if err != nil {
			logger.Warn("image saving disabled", "error", err)
		}
		printer.Watch(agent.Events())
		return nil
	})
	g.Go(func() error {
		defer agent.Close()
		var err error
		answer, err = agent.Run(gctx, task)
		return err
	})
	runErr := g.Wait()

	if runErr != nil {
		return runErr
	}
	if opts.quiet {
		fmt.Fprintln(out, answer)
	}
	logger.Info("run finished",
		"state", agent.State(),
		"iterations", agent.Iterations(),
		"total_tokens", agent.Usage().TotalTokens)
	return nil
}

func newModelClient(cfg *config.Config, logger *slog.Logger) (*unifiedllm.Client, error) {
	adapter, err := unifiedllm.NewGollmAdapter(unifiedllm.GollmConfig{
		Provider:    cfg.Model.Provider,
		APIKey:      cfg.ModelAPIKey(),
		Model:       cfg.Model.Name,
		MaxTokens:   cfg.Model.MaxTokens,
		Temperature: cfg.Model.Temperature,
	})
	if err != nil {
		return nil, err
	}

	policy := cfg.RetryPolicy()
	policy.OnRetry = func(err error, attempt int, delay time.Duration) {
		logger.Warn("retrying completion", "attempt", attempt, "delay", delay, "error", err)
	}

	return unifiedllm.NewClient(
		unifiedllm.WithProvider(cfg.Model.Provider, adapter),
		unifiedllm.WithDefaultProvider(cfg.Model.Provider),
		unifiedllm.WithMiddleware(
			unifiedllm.LoggingMiddleware(logger),
			unifiedllm.RetryMiddleware(policy),
			unifiedllm.RateLimitMiddleware(unifiedllm.NewRateLimiter(cfg.Model.RequestsPerMinute, 1)),
		),
	), nil
}

func newExecutor(cfg *config.Config, logger *slog.Logger) (interpreter.Executor, error) {
	switch cfg.Interpreter.Backend {
	case config.BackendLocal:
		lc := cfg.LocalConfig()
		lc.Logger = logger
		return interpreter.NewLocalExecutor(lc)
	default:
		rc := cfg.RemoteConfig()
		rc.Logger = logger
		return interpreter.New(rc), nil
	}
}

// newPrinter always returns a usable printer; the error reports why images
// will not be saved.
func newPrinter(out io.Writer, cfg *config.Config, logger *slog.Logger) (*display.Printer, error) {
	opts := cfg.DisplayOptions()
	renderer := display.NewRenderer(opts)
	if !opts.ShowImages || opts.ImageDir == "" {
		return display.NewPrinter(out, renderer, nil, logger), nil
	}
	sink, err := display.NewImageSink(opts.ImageDir, opts.ImageMaxSide)
	if err != nil {
		return display.NewPrinter(out, renderer, nil, logger), err
	}
	return display.NewPrinter(out, renderer, sink, logger), nil
}
