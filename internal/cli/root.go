// Package cli implements the renami command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/renami-app/renami/internal/app/renamer"
	"github.com/renami-app/renami/internal/config"
	"github.com/renami-app/renami/internal/domain"
	"github.com/renami-app/renami/internal/extract"
	"github.com/renami-app/renami/internal/infra/sqlite"
	"github.com/renami-app/renami/internal/llm"
	"github.com/renami-app/renami/internal/settings"
)

// Version is set at build time with -ldflags "-X .../cli.Version=...".
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "renami",
	Short: "Rename files from their content with an LLM",
	Long: `renami reads each file's text, asks the configured language model for a
descriptive name and renames the file in place, keeping its extension.

Credentials and naming preferences live in settings.json; runtime behavior
lives in config.toml under $RENAMI_HOME (default ~/.renami).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.toml (default $RENAMI_HOME/config.toml)")
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// ─── Wiring ─────────────────────────────────────────────────────────────────

// app is everything a command needs, built from config.toml.
type app struct {
	cfg      config.Config
	settings *settings.Store
	engine   suggestVerifier
	renamer  *renamer.Renamer
	history  *sqlite.DB // nil when history is disabled
}

// Replaced in tests to keep commands off the network and off PATH.
var (
	newSuggester = func(s domain.Settings, cfg config.Config) suggestVerifier {
		return llm.NewService(s, llm.OptionsFromConfig(cfg.LLM))
	}
	newExtractor = func(cfg config.Config) domain.Extractor {
		return extract.NewCommand(cfg.Extractor)
	}
	newFs = afero.NewOsFs
)

type suggestVerifier interface {
	domain.Suggester
	llm.Verifier
}

func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}

func openSettings(cfg config.Config) (*settings.Store, error) {
	settings.LoadDotEnv(cfg.Settings.DotEnv)
	return settings.Open(cfg.Settings.Path, cfg.Settings.EnvPrefix)
}

// loadApp builds the service graph. Callers must Close it.
func loadApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	st, err := openSettings(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, settings: st, engine: newSuggester(st, cfg)}
	a.renamer = renamer.New(renamer.ConfigFrom(cfg.Batch), newFs(), st, newExtractor(cfg), a.engine)
	if d, ok := a.engine.(domain.ImageDescriber); ok && cfg.Batch.DescribeImages {
		a.renamer.SetImageDescriber(d)
	}

	if cfg.History.Enabled {
		db, err := sqlite.Open(cfg.History.Dir)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		a.history = db
		a.renamer.SetHistory(db)
	}
	return a, nil
}

func (a *app) Close() {
	if a.history != nil {
		a.history.Close()
	}
}

// withSignals cancels ctx on SIGINT or SIGTERM.
func withSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}
