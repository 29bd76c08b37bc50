package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-openapi/strfmt"
	"go.uber.org/zap"
)

// App manages application dependencies and logic.
type App struct {
	Config  *Config
	Octopus *OctopusService
	Submit  *submitter
	Log     *zap.SugaredLogger
}

// NewApp wires the services. Authentication happens here: the Tado session is
// established (interactively on the first run) before any data is fetched.
func NewApp(ctx context.Context, config *Config, log *zap.SugaredLogger) *App {
	// The cache only fronts the read-only Octopus endpoints; Tado pushes
	// always hit the network.
	octopusRT := http.RoundTripper(http.DefaultTransport)
	if config.CacheDirectory != "disable" {
		cacheDir := config.CacheDirectory
		if cacheDir == "" {
			cacheDir = filepath.Join(os.TempDir(), "octopus-tado-sync")
		}
		if err := os.MkdirAll(cacheDir, 0755); err != nil {
			log.Fatalf("Failed to create cache dir: %v", err)
		}
		octopusRT = &CachingRoundTripper{Next: http.DefaultTransport, CacheDir: cacheDir}
		log.Infof("HTTP caching enabled in directory: %s", cacheDir)
	}

	login := &BrowserLogin{
		Email:         config.TadoEmail,
		Password:      config.TadoPassword,
		Headless:      config.Headless,
		ScreenshotDir: config.ScreenshotDir,
		Log:           log,
	}
	auth := NewDeviceAuthenticator(config.TokenFile, login.Run, log)

	log.Info("Logging into Tado...")
	tado := NewTadoService(ctx, http.DefaultTransport, auth, log)

	return &App{
		Config:  config,
		Octopus: NewOctopusService(octopusRT, config.OctopusAPIKey, log),
		Submit:  &submitter{session: tado, log: log},
		Log:     log,
	}
}

// RunBackfill pushes every tariff window and every daily cumulative reading.
func (app *App) RunBackfill(ctx context.Context) error {
	today := strfmt.Date(time.Now().UTC())

	app.Log.Info("Fetching gas rates from Octopus Energy...")
	rates := app.Octopus.GetGasRates(ctx, app.Config.ShortCode, app.Config.LongCode)
	windows := app.normalizeRates(rates, today)

	if len(windows) > 0 {
		app.Log.Infof("Sending %d rates to Tado...", len(windows))
		summary := app.Submit.SubmitTariffs(ctx, windows)
		app.Log.Infof("Rates: %d sent, %d failed", summary.Succeeded, summary.Failed())
	} else {
		app.Log.Info("No rates found to send")
	}

	app.Log.Info("Fetching meter readings from Octopus Energy...")
	consumption := app.Octopus.GetGasConsumption(ctx, app.Config.Mprn, app.Config.GasSerial, GroupByDay, app.periodFrom())
	readings, err := buildCumulativeReadings(consumption)
	if err != nil {
		app.Log.Errorf("Stopping accumulation early: %v", err)
	}

	if len(readings) > 0 {
		app.Log.Infof("Sending %d meter readings to Tado...", len(readings))
		summary := app.Submit.SubmitReadings(ctx, readings)
		app.Log.Infof("Readings: %d sent, %d failed", summary.Succeeded, summary.Failed())
	} else {
		app.Log.Info("No consumption data found to send")
	}

	app.Log.Info("Backfill process completed!")
	return nil
}

// RunSync pushes only the current rate and the latest cumulative total,
// derived from quarterly consumption over the meter's whole history.
func (app *App) RunSync(ctx context.Context) error {
	today := strfmt.Date(time.Now().UTC())

	app.Log.Info("Fetching quarterly consumption from Octopus Energy...")
	consumption := app.Octopus.GetGasConsumption(ctx, app.Config.Mprn, app.Config.GasSerial, GroupByQuarter, app.periodFrom())
	readings, err := buildCumulativeReadings(consumption)
	if err != nil {
		app.Log.Errorf("Stopping accumulation early: %v", err)
	}

	if len(readings) > 0 {
		latest := readings[len(readings)-1]
		app.Log.Infof("Total consumption is %f", latest.Total)
		summary := app.Submit.SubmitReadings(ctx, readings[len(readings)-1:])
		app.Log.Infof("Readings: %d sent, %d failed", summary.Succeeded, summary.Failed())
	} else {
		app.Log.Info("No consumption data found to send")
	}

	app.Log.Info("Fetching gas rates from Octopus Energy...")
	rates := app.Octopus.GetGasRates(ctx, app.Config.ShortCode, app.Config.LongCode)
	windows := app.normalizeRates(rates, today)

	if len(windows) > 0 {
		// Rates arrive most recent first; only the current one is pushed.
		summary := app.Submit.SubmitTariffs(ctx, windows[:1])
		app.Log.Infof("Rates: %d sent, %d failed", summary.Succeeded, summary.Failed())
	} else {
		app.Log.Info("No rates found to send")
	}
	return nil
}

// RunRates pushes tariff windows only; latestOnly restricts it to the most
// recent rate.
func (app *App) RunRates(ctx context.Context, latestOnly bool) error {
	today := strfmt.Date(time.Now().UTC())

	app.Log.Info("Fetching gas rates from Octopus Energy...")
	rates := app.Octopus.GetGasRates(ctx, app.Config.ShortCode, app.Config.LongCode)
	windows := app.normalizeRates(rates, today)
	if len(windows) == 0 {
		app.Log.Info("No rates found to send")
		return nil
	}
	if latestOnly {
		windows = windows[:1]
	}

	summary := app.Submit.SubmitTariffs(ctx, windows)
	app.Log.Infof("Rates: %d sent, %d failed", summary.Succeeded, summary.Failed())
	return nil
}

// normalizeRates converts each rate into an inclusive tariff window, skipping
// records that do not form a valid window.
func (app *App) normalizeRates(rates []RateRecord, today strfmt.Date) []TariffWindow {
	windows := make([]TariffWindow, 0, len(rates))
	for _, r := range rates {
		w, err := normalizeRateWindow(r, today)
		if err != nil {
			app.Log.Errorf("Error processing rate: %v", err)
			continue
		}
		windows = append(windows, w)
	}
	return windows
}

func (app *App) periodFrom() time.Time {
	if app.Config.PeriodFrom != nil {
		return *app.Config.PeriodFrom
	}
	return time.Time{}
}
