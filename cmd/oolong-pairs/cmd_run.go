package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/oolongbench/oolong-pairs/internal/cache"
	"github.com/oolongbench/oolong-pairs/internal/config"
	"github.com/oolongbench/oolong-pairs/internal/dataset"
	"github.com/oolongbench/oolong-pairs/internal/engine"
	"github.com/oolongbench/oolong-pairs/internal/models"
	"github.com/oolongbench/oolong-pairs/internal/orchestration"
	"github.com/oolongbench/oolong-pairs/internal/reporting"
	"github.com/oolongbench/oolong-pairs/internal/session"
	"github.com/oolongbench/oolong-pairs/internal/spinner"
	"github.com/oolongbench/oolong-pairs/internal/storage"
	"github.com/oolongbench/oolong-pairs/internal/strategy"
	"github.com/oolongbench/oolong-pairs/internal/taskstate"
)

type runFlags struct {
	strategy     string
	mode         string
	engineType   string
	model        string
	subcallModel string
	filter       string
	minContext   int
	limit        int
	timeoutSec   int
	enableCache  bool
	disableCache bool
	cacheDir     string
	dbPath       string
	stateDir     string
	runLogDir    string
	verbose      bool
}

func newRunCommand() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run [dataset]",
		Short: "Run the benchmark over a task corpus",
		Long: `Run the benchmark over a JSONL or CSV task corpus.

Settings come from .oolong.yaml (found by walking up from the current
directory) and can be overridden per flag. The dataset argument overrides
the configured corpus path.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommandE(cmd, args, &flags)
		},
	}

	cmd.Flags().StringVar(&flags.strategy, "strategy", "", "Strategy: truncation or chunking")
	cmd.Flags().StringVar(&flags.mode, "mode", "", "Execution mode: direct or interactive")
	cmd.Flags().StringVar(&flags.engineType, "engine", "", "Engine: cli, openai, or mock")
	cmd.Flags().StringVar(&flags.model, "model", "", "Model identifier")
	cmd.Flags().StringVar(&flags.subcallModel, "subcall-model", "", "Model for chunking subcalls")
	cmd.Flags().StringVar(&flags.filter, "filter", "", "Only load tasks from this dataset")
	cmd.Flags().IntVar(&flags.minContext, "min-context", 0, "Minimum context length in characters (-1 disables)")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "Maximum number of tasks to run")
	cmd.Flags().IntVar(&flags.timeoutSec, "timeout", 0, "Per-task timeout in seconds")
	cmd.Flags().BoolVar(&flags.enableCache, "cache", false, "Enable result caching")
	cmd.Flags().BoolVar(&flags.disableCache, "no-cache", false, "Disable result caching")
	cmd.Flags().StringVar(&flags.cacheDir, "cache-dir", "", "Cache directory for storing results")
	cmd.Flags().StringVar(&flags.dbPath, "db", "", "Path to the result database")
	cmd.Flags().StringVar(&flags.stateDir, "state-dir", "", "Task handoff directory for interactive mode")
	cmd.Flags().StringVar(&flags.runLogDir, "run-log", "", "Directory to write an NDJSON run event log")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Verbose output with per-task progress")

	return cmd
}

func runCommandE(cmd *cobra.Command, args []string, flags *runFlags) error {
	cfg, err := config.Load(".")
	if err != nil {
		return err
	}
	applyRunFlags(cfg, flags)
	if len(args) > 0 {
		cfg.Dataset.Path = args[0]
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Dataset.Path == "" {
		return fmt.Errorf("no dataset: pass one as an argument or set dataset.path in .oolong.yaml")
	}

	tasks, err := dataset.LoadTasks(cfg.Dataset.Path, dataset.Filter{
		Dataset:          cfg.Dataset.Filter,
		MinContextLength: cfg.Dataset.MinContextLength,
		Limit:            cfg.Dataset.Limit,
	})
	if err != nil {
		return fmt.Errorf("loading tasks: %w", err)
	}
	if len(tasks) == 0 {
		return fmt.Errorf("no tasks matched the dataset filters")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	if err := eng.Initialize(ctx); err != nil {
		return fmt.Errorf("initializing engine: %w", err)
	}
	defer eng.Shutdown(context.Background()) //nolint:errcheck

	// Both were validated with the config.
	mode, _ := models.ParseExecutionMode(cfg.Run.Mode)    //nolint:errcheck
	kind, _ := models.ParseStrategyKind(cfg.Run.Strategy) //nolint:errcheck

	deps := strategy.Deps{Engine: eng}
	if mode == models.ModeInteractive {
		stateStore, err := taskstate.NewStore(cfg.Storage.StateDir)
		if err != nil {
			return fmt.Errorf("opening task state store: %w", err)
		}
		release, err := stateStore.AcquireLock()
		if err != nil {
			return fmt.Errorf("another run holds the handoff directory: %w", err)
		}
		defer release()

		deps.Store = stateStore
		deps.Launcher = session.NewLauncher(session.LauncherArgs{
			Model:    cfg.Run.Model,
			StateDir: cfg.Storage.StateDir,
			Timeout:  time.Duration(cfg.Run.TimeoutSec) * time.Second,
		})
		deps.InteractiveWait = time.Duration(cfg.Run.TimeoutSec) * time.Second
	}

	params := strategyParams(cfg)
	adapter, err := strategy.Create(kind, mode, deps, params)
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("opening result store: %w", err)
	}
	defer store.Close() //nolint:errcheck

	opts := []orchestration.RunnerOption{
		orchestration.WithConfidenceLevel(cfg.Stats.ConfidenceLevel),
		orchestration.WithMetadata(map[string]any{
			"dataset": cfg.Dataset.Path,
			"engine":  cfg.Run.Engine,
			"model":   cfg.Run.Model,
		}),
	}
	if cfg.CacheEnabled() {
		opts = append(opts, orchestration.WithCache(cache.New(cfg.Cache.Dir), cfg.Run.Model, params))
		if flags.verbose {
			fmt.Printf("Cache enabled: %s\n", cfg.Cache.Dir)
		}
	}

	runner := orchestration.NewRunner(adapter, store, mode, opts...)

	if flags.verbose {
		runner.OnProgress(verboseProgressListener)
	} else if term.IsTerminal(int(os.Stdout.Fd())) {
		runner.OnProgress(newTTYProgressListener(os.Stdout))
	}

	runLog, closeLog := runLogListener(flags.runLogDir, cfg)
	if runLog != nil {
		runner.OnProgress(runLog)
		defer closeLog()
	}

	fmt.Printf("Running benchmark: %s\n", cfg.Dataset.Path)
	fmt.Printf("Strategy: %s (%s)\n", cfg.Run.Strategy, cfg.Run.Mode)
	fmt.Printf("Engine: %s\n", cfg.Run.Engine)
	fmt.Printf("Model: %s\n", cfg.Run.Model)
	fmt.Printf("Tasks: %d\n\n", len(tasks))

	runID, runErr := runner.Run(ctx, tasks)
	if runErr != nil && runID == "" {
		return fmt.Errorf("benchmark failed: %w", runErr)
	}

	summary, err := runner.Summary(runID)
	if err != nil {
		return fmt.Errorf("summarizing run: %w", err)
	}

	fmt.Println()
	fmt.Print(reporting.FormatRunSummary(summary))

	if runErr != nil {
		return fmt.Errorf("run %s stopped early: %w", runID, runErr)
	}
	return nil
}

// applyRunFlags overlays non-zero flag values onto the loaded config.
func applyRunFlags(cfg *config.Config, flags *runFlags) {
	if flags.strategy != "" {
		cfg.Run.Strategy = flags.strategy
	}
	if flags.mode != "" {
		cfg.Run.Mode = flags.mode
	}
	if flags.engineType != "" {
		cfg.Run.Engine = flags.engineType
	}
	if flags.model != "" {
		cfg.Run.Model = flags.model
	}
	if flags.subcallModel != "" {
		cfg.Run.SubcallModel = flags.subcallModel
	}
	if flags.filter != "" {
		cfg.Dataset.Filter = flags.filter
	}
	if flags.minContext != 0 {
		cfg.Dataset.MinContextLength = flags.minContext
	}
	if flags.limit > 0 {
		cfg.Dataset.Limit = flags.limit
	}
	if flags.timeoutSec > 0 {
		cfg.Run.TimeoutSec = flags.timeoutSec
	}
	if flags.cacheDir != "" {
		cfg.Cache.Dir = flags.cacheDir
	}
	if flags.dbPath != "" {
		cfg.Storage.DBPath = flags.dbPath
	}
	if flags.stateDir != "" {
		cfg.Storage.StateDir = flags.stateDir
	}
	if flags.enableCache {
		cfg.SetCacheEnabled(true)
	}
	if flags.disableCache {
		cfg.SetCacheEnabled(false)
	}
}

func buildEngine(cfg *config.Config) (engine.Engine, error) {
	switch cfg.Run.Engine {
	case "cli":
		return engine.NewCLIEngine(cfg.Run.Model), nil
	case "openai":
		return engine.NewOpenAIEngine(engine.OpenAIConfig{
			APIKey:  os.Getenv(cfg.OpenAI.APIKeyEnv),
			Model:   cfg.Run.Model,
			BaseURL: cfg.OpenAI.BaseURL,
		}), nil
	case "mock":
		return engine.NewMockEngine(cfg.Run.Model), nil
	default:
		return nil, fmt.Errorf("unknown engine type: %s", cfg.Run.Engine)
	}
}

// strategyParams assembles the adapter params from the run config.
func strategyParams(cfg *config.Config) map[string]any {
	params := make(map[string]any, len(cfg.Run.Params)+3)
	for k, v := range cfg.Run.Params {
		params[k] = v
	}
	if _, ok := params["model"]; !ok {
		params["model"] = cfg.Run.Model
	}
	if _, ok := params["timeout_sec"]; !ok {
		params["timeout_sec"] = cfg.Run.TimeoutSec
	}
	if cfg.Run.Strategy == string(models.StrategyChunking) {
		if _, ok := params["subcall_model"]; !ok {
			params["subcall_model"] = cfg.Run.SubcallModel
		}
	}
	return params
}

func verboseProgressListener(event orchestration.ProgressEvent) {
	switch event.EventType {
	case orchestration.EventRunStart:
		fmt.Printf("Starting run %s with %d task(s)...\n\n", event.RunID, event.TotalTasks)
	case orchestration.EventTaskStart:
		fmt.Printf("[%d/%d] Running task: %s\n", event.TaskNum, event.TotalTasks, event.TaskID)
	case orchestration.EventTaskCached:
		fmt.Printf("[%d/%d] Task %s: score=%.4f [cached]\n", event.TaskNum, event.TotalTasks, event.TaskID, event.Score)
	case orchestration.EventTaskComplete:
		duration := time.Duration(event.DurationMs) * time.Millisecond
		fmt.Printf("[%d/%d] Task %s: score=%.4f (%v)\n", event.TaskNum, event.TotalTasks, event.TaskID, event.Score, duration)
	case orchestration.EventTaskFailed:
		fmt.Printf("[%d/%d] Task %s: FAILED: %s\n", event.TaskNum, event.TotalTasks, event.TaskID, event.Error)
	case orchestration.EventRunStopped:
		fmt.Printf("\nRun %s stopped early\n", event.RunID)
	case orchestration.EventRunComplete:
		duration := time.Duration(event.DurationMs) * time.Millisecond
		fmt.Printf("\nRun %s completed in %v\n", event.RunID, duration)
	}
}

// newTTYProgressListener prints one line per finished task and shows a
// spinner while the current task runs.
func newTTYProgressListener(w io.Writer) orchestration.ProgressListener {
	spin := spinner.New(w)

	return func(event orchestration.ProgressEvent) {
		switch event.EventType {
		case orchestration.EventTaskStart:
			spin.Start(fmt.Sprintf("[%d/%d] %s", event.TaskNum, event.TotalTasks, event.TaskID))
		case orchestration.EventTaskCached:
			spin.Stop()
			fmt.Fprintf(w, "✓ [%d/%d] %s [cached]\n", event.TaskNum, event.TotalTasks, event.TaskID) //nolint:errcheck
		case orchestration.EventTaskComplete:
			spin.Stop()
			fmt.Fprintf(w, "✓ [%d/%d] %s score=%.4f\n", event.TaskNum, event.TotalTasks, event.TaskID, event.Score) //nolint:errcheck
		case orchestration.EventTaskFailed:
			spin.Stop()
			fmt.Fprintf(w, "✗ [%d/%d] %s %s\n", event.TaskNum, event.TotalTasks, event.TaskID, event.Error) //nolint:errcheck
		case orchestration.EventRunComplete, orchestration.EventRunStopped:
			spin.Stop()
		}
	}
}

// runLogListener returns a progress listener that mirrors run events into an
// NDJSON log under dir. The logger opens lazily on the first event so the
// file can be named after the run ID.
func runLogListener(dir string, cfg *config.Config) (orchestration.ProgressListener, func()) {
	if dir == "" {
		return nil, nil
	}

	var logger session.Logger = session.NopLogger{}
	var completed, failed int
	var scoreSum float64
	listener := func(event orchestration.ProgressEvent) {
		switch event.EventType {
		case orchestration.EventRunStart:
			jl, err := session.NewJSONLogger(session.DefaultLogPath(dir, event.RunID))
			if err != nil {
				fmt.Fprintf(os.Stderr, "run log disabled: %v\n", err)
				return
			}
			logger = jl
			logger.Log(session.NewEvent(session.EventRunStart, //nolint:errcheck
				session.RunStartData(event.RunID, cfg.Run.Strategy, cfg.Run.Mode, cfg.Run.Model, event.TotalTasks)))
		case orchestration.EventTaskStart:
			logger.Log(session.NewEvent(session.EventTaskStart, //nolint:errcheck
				session.TaskStartData(event.TaskID, event.TaskNum, event.TotalTasks)))
		case orchestration.EventTaskComplete, orchestration.EventTaskCached:
			completed++
			scoreSum += event.Score
			cached := event.EventType == orchestration.EventTaskCached
			logger.Log(session.NewEvent(session.EventTaskComplete, //nolint:errcheck
				session.TaskCompleteData(event.TaskID, event.Score, cached, event.DurationMs)))
		case orchestration.EventTaskFailed:
			failed++
			logger.Log(session.NewEvent(session.EventError, //nolint:errcheck
				session.ErrorData(event.Error, map[string]any{"task_id": event.TaskID})))
		case orchestration.EventRunComplete, orchestration.EventRunStopped:
			avg := 0.0
			if completed > 0 {
				avg = scoreSum / float64(completed)
			}
			logger.Log(session.NewEvent(session.EventRunEnd, //nolint:errcheck
				session.RunCompleteData(event.TotalTasks, completed, failed, avg, event.DurationMs)))
		}
	}
	closeFn := func() { logger.Close() } //nolint:errcheck
	return listener, closeFn
}
