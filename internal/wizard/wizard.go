// Package wizard provides the interactive form behind the init command.
package wizard

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/oolongbench/oolong-pairs/internal/config"
)

// RunConfigWizard runs an interactive huh form that collects benchmark
// settings and returns a Config ready to be written as .oolong.yaml.
func RunConfigWizard(in io.Reader, out io.Writer) (*config.Config, error) {
	cfg := config.New()

	var (
		datasetPath = cfg.Dataset.Path
		filter      = cfg.Dataset.Filter
		strategy    = cfg.Run.Strategy
		mode        = cfg.Run.Mode
		engineType  = cfg.Run.Engine
		model       = cfg.Run.Model
		limitRaw    string
		useCache    bool
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Dataset path").
				Description("Path to a JSONL or CSV task corpus").
				Placeholder("data/oolong_synth.jsonl").
				Value(&datasetPath).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("dataset path is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Dataset filter").
				Description("Only load tasks from this dataset (empty for all)").
				Value(&filter),
			huh.NewSelect[string]().
				Title("Strategy").
				Options(
					huh.NewOption("truncation", "truncation"),
					huh.NewOption("chunking", "chunking"),
				).
				Value(&strategy),
			huh.NewSelect[string]().
				Title("Execution mode").
				Options(
					huh.NewOption("direct", "direct"),
					huh.NewOption("interactive", "interactive"),
				).
				Value(&mode),
			huh.NewSelect[string]().
				Title("Engine").
				Options(
					huh.NewOption("cli", "cli"),
					huh.NewOption("openai", "openai"),
					huh.NewOption("mock", "mock"),
				).
				Value(&engineType),
			huh.NewInput().
				Title("Model").
				Value(&model),
			huh.NewInput().
				Title("Task limit").
				Description("Maximum tasks per run (empty for no limit)").
				Value(&limitRaw).
				Validate(func(s string) error {
					s = strings.TrimSpace(s)
					if s == "" {
						return nil
					}
					n, err := strconv.Atoi(s)
					if err != nil || n < 0 {
						return fmt.Errorf("limit must be a non-negative integer")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Enable result caching?").
				Value(&useCache),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	cfg.Dataset.Path = strings.TrimSpace(datasetPath)
	cfg.Dataset.Filter = strings.TrimSpace(filter)
	cfg.Run.Strategy = strategy
	cfg.Run.Mode = mode
	cfg.Run.Engine = engineType
	cfg.Run.Model = strings.TrimSpace(model)
	if limit := strings.TrimSpace(limitRaw); limit != "" {
		cfg.Dataset.Limit, _ = strconv.Atoi(limit)
	}
	cfg.SetCacheEnabled(useCache)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
