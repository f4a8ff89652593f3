package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/renami-app/renami/internal/domain"
	"github.com/renami-app/renami/internal/llm"
	"github.com/renami-app/renami/internal/settings"
)

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringP("provider", "p", "", "Provider to check (default: the active provider)")

	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsShowCmd.Flags().Bool("reveal", false, "Print API keys unmasked")
}

// ─── verify ─────────────────────────────────────────────────────────────────

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check a provider's API key with a one-token request",
	Args:  cobra.NoArgs,
	RunE:  runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("provider")

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var cfg domain.ProviderConfig
	if name == "" {
		cfg, err = settings.ActiveProvider(a.settings)
	} else {
		var id domain.ProviderID
		if id, err = domain.ParseProviderID(name); err == nil {
			cfg = settings.ProviderConfigFor(a.settings, id)
		}
	}
	if err != nil {
		return err
	}

	ctx, stop := withSignals(cmd.Context())
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Verifying %s (%s)...\n", cfg.ID.DisplayName(), cfg.Model)
	task := llm.StartVerification(ctx, a.engine, cfg, nil)
	if err := task.Wait(ctx); err != nil {
		task.Cancel()
		if ctx.Err() != nil {
			return errors.New("verification cancelled")
		}
		return errors.New(domain.UserMessage(err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ API key verified (key %s)\n", cfg.MaskedKey())
	return nil
}

// ─── settings ───────────────────────────────────────────────────────────────

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read and edit settings.json",
	Long: `Read and edit the settings store: the active provider, per-provider API
keys, base URLs and models, and naming preferences.`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print every setting",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	reveal, _ := cmd.Flags().GetBool("reveal")
	st, err := loadSettings()
	if err != nil {
		return err
	}
	snap, err := st.Snapshot()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# %s\n", st.Path())
	for _, k := range keys {
		v := snap[k]
		if settings.IsSecretKey(k) && !reveal {
			v = domain.MaskSecret(v)
		}
		fmt.Fprintf(out, "%s = %s\n", k, v)
	}
	return nil
}

var settingsGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadSettings()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), st.Get(args[0], ""))
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set KEY=VALUE...",
	Short: "Update one or more settings",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSettingsSet,
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	values := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return fmt.Errorf("expected KEY=VALUE, got %q", arg)
		}
		if k == settings.KeyLLMProvider {
			id, err := domain.ParseProviderID(v)
			if err != nil {
				return err
			}
			v = string(id)
		}
		values[k] = v
	}

	st, err := loadSettings()
	if err != nil {
		return err
	}
	if err := st.Update(values); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Updated %d setting(s) in %s\n", len(values), st.Path())
	return nil
}

func loadSettings() (*settings.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openSettings(cfg)
}
