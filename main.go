package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// envOrString returns the environment variable value if set, otherwise returns the default value.
func envOrString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

var (
	cfg        Config
	cfgFile    string
	periodFrom string
	latestOnly bool
	logger     *zap.SugaredLogger
)

var rootCmd = &cobra.Command{
	Use:   "octopus-tado-sync",
	Short: "Sync Octopus Energy gas data into Tado Energy IQ",
	Long: `octopus-tado-sync reads gas consumption and tariff data from the
Octopus Energy API and pushes it into a Tado account's Energy IQ feature.

The first run opens a browser to complete Tado's device-activation login;
the resulting token is cached for later runs.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Push every daily cumulative reading and every tariff window",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.validate(true); err != nil {
			return err
		}
		return NewApp(cmd.Context(), &cfg, logger).RunBackfill(cmd.Context())
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push only the current rate and the latest cumulative total",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.validate(true); err != nil {
			return err
		}
		return NewApp(cmd.Context(), &cfg, logger).RunSync(cmd.Context())
	},
}

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Push tariff windows only",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.validate(false); err != nil {
			return err
		}
		return NewApp(cmd.Context(), &cfg, logger).RunRates(cmd.Context(), latestOnly)
	},
}

func setup(cmd *cobra.Command, args []string) error {
	zcfg := zap.NewDevelopmentConfig()
	zcfg.OutputPaths = []string{"stdout"}
	zl, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	logger = zl.Sugar()

	if cfgFile != "" {
		if err := loadConfigFile(cfgFile, &cfg, cmd.Flags().Changed); err != nil {
			return err
		}
	}
	if periodFrom != "" {
		t, err := time.Parse(time.RFC3339, periodFrom)
		if err != nil {
			return fmt.Errorf("invalid period-from: %w", err)
		}
		cfg.PeriodFrom = &t
	}
	return nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.TadoEmail, "tado-email", envOrString("TADO_EMAIL", ""), "Tado account email")
	pf.StringVar(&cfg.TadoPassword, "tado-password", envOrString("TADO_PASSWORD", ""), "Tado account password")
	pf.StringVar(&cfg.OctopusAPIKey, "octopus-api-key", envOrString("OCTOPUS_API_KEY", ""), "Octopus API key")
	pf.StringVar(&cfg.Mprn, "mprn", envOrString("OCTOPUS_MPRN", ""), "MPRN (Meter Point Reference Number) for the gas meter")
	pf.StringVar(&cfg.GasSerial, "gas-serial-number", envOrString("OCTOPUS_GAS_SERIAL", ""), "Gas meter serial number")
	pf.StringVar(&cfg.ShortCode, "short-code", envOrString("OCTOPUS_SHORT_CODE", ""), "Short product code, usually the long one with some digits removed from start and end")
	pf.StringVar(&cfg.LongCode, "long-code", envOrString("OCTOPUS_LONG_CODE", ""), "Long product code shown on your account API data")
	pf.StringVar(&cfg.TokenFile, "token-file", defaultTokenFile, "Path for the cached Tado activation token")
	pf.StringVar(&cfg.CacheDirectory, "cache", "disable", "Directory for the Octopus HTTP cache ('disable' to disable, empty for a temporary directory)")
	pf.StringVar(&cfg.ScreenshotDir, "screenshot-dir", "", "Directory for browser-login screenshots (empty to skip)")
	pf.BoolVar(&cfg.Headless, "headless", true, "Run the login browser headless")
	pf.StringVar(&cfgFile, "config", "", "Optional YAML config file providing flag defaults")
	pf.StringVar(&periodFrom, "period-from", "", "Start of the consumption window (RFC3339; default depends on grouping)")

	ratesCmd.Flags().BoolVar(&latestOnly, "latest", false, "Send only the most recent rate")

	rootCmd.AddCommand(backfillCmd, syncCmd, ratesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
