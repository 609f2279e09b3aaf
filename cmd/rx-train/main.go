package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"yashubustudio/symptomrx/internal/logging"
	"yashubustudio/symptomrx/symptomrx"
)

type cliOptions struct {
	configPath  string
	dataPath    string
	modelPath   string
	metricsPath string
	table       string
	seed        uint64
	seedSet     bool
	folds       int
	workers     int
	logLevel    string
	logFormat   string
	noProgress  bool
	saveConfig  bool
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "rx-train: %v\n", err)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "rx-train: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("rx-train", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "Path to config.json (default: ./config.json)")
	fs.StringVar(&opts.dataPath, "data", "", "CSV/TSV/SQLite dataset (overrides dataset.path)")
	fs.StringVar(&opts.table, "table", "", "Table to read when --data is a SQLite database")
	fs.StringVar(&opts.modelPath, "model", "", "Where to write the trained model (overrides output.modelPath)")
	fs.StringVar(&opts.metricsPath, "metrics", "", "Prometheus textfile to write after the run")
	fs.Uint64Var(&opts.seed, "seed", 0, "Random seed for the split, folds and solvers")
	fs.IntVar(&opts.folds, "folds", 0, "Number of cross-validation folds")
	fs.IntVar(&opts.workers, "workers", 0, "Parallel fits (default: number of CPUs)")
	fs.StringVar(&opts.logLevel, "log-level", "", "debug|info|warn|error")
	fs.StringVar(&opts.logFormat, "log-format", "", "console|json")
	fs.BoolVar(&opts.noProgress, "no-progress", false, "Disable the progress bar")
	fs.BoolVar(&opts.saveConfig, "save-config", false, "Write the effective configuration back to --config")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [options]\n\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			opts.seedSet = true
		}
	})
	if fs.NArg() > 0 {
		fs.Usage()
		return opts, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	opts.configPath = strings.TrimSpace(opts.configPath)
	opts.dataPath = strings.TrimSpace(opts.dataPath)
	opts.modelPath = strings.TrimSpace(opts.modelPath)
	opts.metricsPath = strings.TrimSpace(opts.metricsPath)
	opts.table = strings.TrimSpace(opts.table)
	if opts.folds == 1 || opts.folds < 0 {
		return opts, errors.New("--folds must be at least 2")
	}
	return opts, nil
}

// applyOverrides lets explicit flags win over config.json and the environment.
func applyOverrides(cfg *symptomrx.Config, opts cliOptions) {
	if opts.dataPath != "" {
		cfg.Dataset.Path = opts.dataPath
	}
	if opts.table != "" {
		cfg.Dataset.Table = opts.table
	}
	if opts.modelPath != "" {
		cfg.Output.ModelPath = opts.modelPath
	}
	if opts.metricsPath != "" {
		cfg.Output.MetricsPath = opts.metricsPath
	}
	if opts.seedSet {
		seed := opts.seed
		cfg.Split.Seed = &seed
	}
	if opts.folds != 0 {
		cfg.Search.Folds = opts.folds
	}
	if opts.workers > 0 {
		cfg.Search.Workers = opts.workers
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Logging.Format = opts.logFormat
	}
}

func run(ctx context.Context, opts cliOptions, out io.Writer) error {
	cfg, err := symptomrx.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyOverrides(&cfg, opts)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	if opts.saveConfig {
		if err := symptomrx.SaveConfig(opts.configPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
	}

	trainer := symptomrx.NewTrainer(cfg, logger)
	total, err := trainer.TotalFits()
	if err != nil {
		return fmt.Errorf("search grid: %w", err)
	}
	if !opts.noProgress {
		bar := newProgressBar(total)
		trainer.OnFit(func() { _ = bar.Add(1) })
		defer bar.Close() //nolint:errcheck
	}

	result, err := trainer.Run(ctx)
	if err != nil {
		logger.Error("training failed", zap.String("run_id", trainer.RunID()), zap.Error(err))
		return err
	}
	printResult(out, result)
	return nil
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("cross-validating"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)
}

func printResult(w io.Writer, result *symptomrx.RunResult) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Best parameters: %s\n", result.Search.Best)
	fmt.Fprintf(w, "Cross-validated accuracy: %.2f%%\n", result.Search.BestScore*100)
	fmt.Fprintf(w, "Model accuracy: %.2f%%\n", result.Report.Accuracy*100)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Classification report:")
	fmt.Fprint(w, result.Report.String())
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Model training complete. Saved to %s (%s, %s train / %s test rows)\n",
		result.ModelPath,
		humanize.Bytes(uint64(result.ArtifactBytes)),
		humanize.Comma(int64(result.TrainSize)),
		humanize.Comma(int64(result.TestSize)),
	)
}
