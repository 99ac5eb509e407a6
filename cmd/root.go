package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/andresmejia3/willis/internal/cache"
	"github.com/andresmejia3/willis/internal/cascade"
	"github.com/andresmejia3/willis/internal/config"
	"github.com/andresmejia3/willis/internal/logging"
	"github.com/andresmejia3/willis/internal/pipeline"
	"github.com/andresmejia3/willis/internal/store"
	"github.com/andresmejia3/willis/internal/symmetry"
	"github.com/andresmejia3/willis/internal/utils"
	"github.com/andresmejia3/willis/internal/willis"
	"github.com/andresmejia3/willis/internal/worker"
)

// Options holds per-command flags shared by analyze, compare and scan.
type Options struct {
	OutputPath string
	JSON       bool
	NoSave     bool
	Mesh       bool
}

// skipStore marks commands that never touch the database.
const skipStore = "skip-store"

var (
	// cfg is the validated configuration, set in PersistentPreRunE.
	cfg *config.Config
	// DB is the analysis store shared by subcommands
	DB store.Store
	// resultCache is opened on demand by newPipeline.
	resultCache cache.Cache

	configFile string
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "willis",
	Short: "Facial proportion (Willis ratio) measurement",
	Long: `willis measures the Willis ratio (nose-to-chin over pupil-to-mouth) from
face photos and videos, and estimates jaw contour from side profiles.`,
	Version:       Version,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		teardown()
	},
}

func setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	v := viper.GetViper()
	config.Init(v, configFile)
	applyChangedFlags(v, cmd.Flags(), config.ThresholdKeys())

	var err error
	cfg, err = config.Load(v)
	if err != nil {
		return err
	}

	if _, err := logging.Setup(logging.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		NoColor: !stderrIsTerminal(),
		Caller:  cfg.LogLevel == "trace",
	}); err != nil {
		return err
	}

	if cmd.Annotations[skipStore] != "" {
		DB = store.Nop{}
		return nil
	}
	// Use the command's context (which will be cancellable) for the connection
	DB, err = store.Open(cmd.Context(), cfg.Store, cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}
	logrus.WithFields(logrus.Fields{"backend": cfg.Store}).Debug("store ready")
	return nil
}

func teardown() {
	// Use Background here because the main context might be cancelled already (due to Ctrl+C)
	// and we still need to close the connection cleanly.
	if DB != nil {
		if err := DB.Close(context.Background()); err != nil {
			logrus.WithError(err).Warn("store close failed")
		}
		DB = nil
	}
	if resultCache != nil {
		_ = resultCache.Close()
		resultCache = nil
	}
}

// applyChangedFlags copies explicitly set flags into v. Unset threshold
// flags must stay absent so the preset value applies.
func applyChangedFlags(v *viper.Viper, flags *pflag.FlagSet, keys []string) {
	for _, k := range keys {
		if f := flags.Lookup(k); f != nil && f.Changed {
			v.Set(k, f.Value.String())
		}
	}
}

// newAnalyzer builds the analyzer described by cfg.
func newAnalyzer(keepMesh bool) (*willis.Analyzer, error) {
	t, err := cfg.Thresholds()
	if err != nil {
		return nil, err
	}
	est, err := cfg.SymmetryEstimator()
	if err != nil {
		return nil, err
	}
	return willis.NewAnalyzer(willis.WithThresholds(t), willis.WithEstimator(est), willis.WithMesh(keepMesh)), nil
}

// newPipeline starts size landmark workers and wires the cache and the
// local cascade fallback. The caller closes the returned pool.
func newPipeline(ctx context.Context, size int, keepMesh bool) (*pipeline.Pipeline, *worker.Pool, error) {
	a, err := newAnalyzer(keepMesh)
	if err != nil {
		return nil, nil, err
	}

	logrus.WithField("workers", size).Debug("spawning landmark workers")
	pool, err := worker.NewPool(size, cfg.Detector, cfg.Timeout)
	if err != nil {
		return nil, nil, fmt.Errorf("worker startup failed: %w", err)
	}

	p := pipeline.New(pool, a, keepMesh)
	if cfg.Cache != "" {
		c, err := cache.New(ctx, cfg.Cache, cfg.CacheTTL)
		if err != nil {
			logrus.WithError(err).Warn("result cache disabled")
		} else {
			resultCache = c
			p.Cache = c
		}
	}

	if det, err := cascade.New(cfg.CascadeDir); err == nil {
		p.Cascade = det
	} else if !errors.Is(err, cascade.ErrUnavailable) {
		logrus.WithError(err).Warn("cascade fallback disabled")
	}
	return p, pool, nil
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var crash *worker.CrashError
		logs := ""
		if errors.As(err, &crash) {
			logs = crash.Logs
		}
		utils.ShowError(os.Stderr, errorContext(err), err, logs)
		os.Exit(1)
	}
}

func errorContext(err error) string {
	var crash *worker.CrashError
	switch {
	case errors.As(err, &crash), errors.Is(err, worker.ErrPoolExhausted):
		return "Landmark worker failed"
	case errors.Is(err, worker.ErrNoFace):
		return "No face found"
	case errors.Is(err, context.Canceled):
		return "Interrupted"
	}
	return "Command failed"
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Config file (default: .willis.yaml in ., $HOME or $XDG_CONFIG_HOME/willis)")
	pf.String("preset", willis.PresetStandardName, "Threshold preset: standard (ratio 0.90-1.10), strict (0.95-1.05)")
	pf.String("estimator", symmetry.EyeWidthName, "Symmetry estimator: "+strings.Join(symmetry.Names(), ", "))
	pf.Float64("frontal-threshold", 0, "Symmetry score at or above which a face is frontal (overrides preset)")
	pf.Float64("ratio-min", 0, "Lower bound of the normal Willis ratio (overrides preset)")
	pf.Float64("ratio-max", 0, "Upper bound of the normal Willis ratio (overrides preset)")
	pf.Float64("jaw-min", 0, "Lower bound of jaw prominence in percent (overrides preset)")
	pf.Float64("jaw-max", 0, "Upper bound of jaw prominence in percent (overrides preset)")
	pf.Float64("angle-min", 0, "Lower bound of the chin angle in degrees (overrides preset)")
	pf.Float64("angle-max", 0, "Upper bound of the chin angle in degrees (overrides preset)")
	pf.String("store", "sqlite", "Store backend: sqlite, postgres, mysql, none")
	pf.String("db", "", "Database path (sqlite) or connection string (default: $XDG_DATA_HOME/willis/willis.db)")
	pf.String("cache", "", "Redis URL for the result cache, e.g. redis://localhost:6379/0 (disabled when empty)")
	pf.Duration("cache-ttl", config.DefaultCacheTTL, "Result cache entry lifetime")
	pf.String("detector", worker.DefaultCommand, "Landmark worker command")
	pf.IntP("workers", "w", config.DefaultWorkers, "Number of parallel landmark workers")
	pf.Duration("timeout", worker.DefaultTimeout, "Timeout for a worker to process a single image")
	pf.String("cascade-dir", "", "Directory holding Haar cascade XML files")
	pf.String("font", "", "TrueType/OpenType font for overlay text")
	pf.String("log-level", "info", "Log level: trace, debug, info, warn, error")
	pf.String("log-file", "", "Also write logs to this rotating file")

	for _, name := range []string{
		"preset", "estimator", "store", "db", "cache", "cache-ttl", "detector",
		"workers", "timeout", "cascade-dir", "font", "log-level", "log-file",
	} {
		_ = viper.BindPFlag(name, pf.Lookup(name))
	}
}
