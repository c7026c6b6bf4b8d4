package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"codescout/internal/agent"
	"codescout/internal/config"
	"codescout/internal/embedding"
	"codescout/internal/index"
	"codescout/internal/llm"
	"codescout/internal/logging"
	"codescout/internal/pending"
	"codescout/internal/server"
	"codescout/internal/tactile"
	"codescout/internal/types"
	"codescout/internal/ux"
	"codescout/internal/world"
)

var (
	verbose       bool
	workspaceFlag string
	configFlag    string
)

var rootCmd = &cobra.Command{
	Use:   "scout",
	Short: "scout - an agentic codebase assistant",
	Long: `scout runs coding tasks against your workspace through a
reason/act loop: the model gathers context with read-only tools, proposes
plans for anything that mutates files, and waits for your approval before
executing them.

Run without arguments to start an interactive session.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load(".env")
		return logging.Init(verbose)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()
		return runChat(cmd.Context(), app)
	},
}

var runCmd = &cobra.Command{
	Use:   "run [goal]",
	Short: "Execute a single task and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		goal := args[0]
		renderer := ux.NewRenderer(os.Stdout)
		terminal := app.loop.RunTask(cmd.Context(), goal, nil,
			renderer.Update,
			func(taskID, promptID, question string) {
				answer := promptOnTerminal(renderer, question)
				app.loop.Correlator().Resolve(promptID, answer)
			})
		if terminal.Kind == types.UpdateError {
			return fmt.Errorf("task failed: %s", terminal.Content)
		}
		return nil
	},
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build or rebuild the semantic index",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		files, err := app.workspace.Snapshot(cmd.Context())
		if err != nil {
			return err
		}
		n, err := app.index.Build(cmd.Context(), files)
		if err != nil {
			return err
		}
		fmt.Printf("Indexed %d chunk(s) from %d file(s).\n", n, len(files))
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the agent over WebSocket for editor frontends",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		return server.New(app.loop).ListenAndServe(cmd.Context(), app.cfg.Server.Addr)
	},
}

// app wires the shared collaborators behind one task loop.
type app struct {
	cfg       *config.Config
	workspace *world.Workspace
	index     *index.Index
	watcher   *world.Watcher
	loop      *agent.Loop
}

func buildApp(ctx context.Context) (*app, error) {
	root := workspaceFlag
	if root == "" {
		root = "."
	}

	cfgPath := configFlag
	if cfgPath == "" {
		cfgPath = filepath.Join(root, config.DefaultFileName)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if cfg.Logging.Verbose && !verbose {
		if err := logging.Init(true); err != nil {
			return nil, err
		}
	}

	ws, err := world.NewWorkspace(root)
	if err != nil {
		return nil, err
	}

	var client types.LLMClient
	var embedder embedding.Engine
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("no API key configured; set SCOUT_API_KEY or llm.api_key in %s", config.DefaultFileName)
	}
	gemini, err := llm.NewGemini(ctx, llm.GeminiConfig{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: float32(cfg.LLM.Temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model gateway: %w", err)
	}
	client = llm.NewLimited(gemini, llm.NewLimiter(llm.LimiterConfig{
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
		TokensPerMinute:   cfg.LLM.TokensPerMinute,
		RequestsPerDay:    cfg.LLM.RequestsPerDay,
	}), cfg.LLM.MaxRetries)
	embedder, err = embedding.NewGenAIEngine(ctx, cfg.LLM.APIKey, cfg.LLM.EmbeddingModel, "")
	if err != nil {
		logging.Get(logging.CategoryIndex).Warnf("embedding engine unavailable, using keyword search: %v", err)
		embedder = nil
	}

	dbPath := cfg.Index.DatabasePath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(ws.Root(), dbPath)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	ix, err := index.Open(dbPath, embedder)
	if err != nil {
		return nil, err
	}

	mutator := tactile.NewExecutor(tactile.Config{
		Root:           ws.Root(),
		CommandTimeout: cfg.CommandTimeout(),
		MaxOutputBytes: tactile.DefaultConfig("").MaxOutputBytes,
	})

	correlator := pending.New(cfg.PromptTimeout())
	loop := agent.New(client, ix, ws, mutator, correlator, agent.Options{
		TurnBudget:    cfg.Agent.TurnBudget,
		PromptTimeout: cfg.PromptTimeout(),
	})

	a := &app{cfg: cfg, workspace: ws, index: ix, loop: loop}
	if cfg.Index.Watch {
		watcher, err := world.NewWatcher(ws, ix.MarkStale)
		if err != nil {
			logging.Get(logging.CategoryWorld).Warnf("file watching disabled: %v", err)
		} else {
			watcher.Start(ctx)
			a.watcher = watcher
		}
	}
	return a, nil
}

func (a *app) Close() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	a.index.Close()
	a.workspace.Close()
	logging.Sync()
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspaceFlag, "workspace", "w", "", "workspace root (default: current directory)")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "config file path")
	rootCmd.AddCommand(runCmd, indexCmd, serveCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
