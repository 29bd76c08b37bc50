package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains configuration for the application.
type Config struct {
	TadoEmail     string
	TadoPassword  string
	Mprn          string
	GasSerial     string
	OctopusAPIKey string
	ShortCode     string
	LongCode      string

	TokenFile      string
	CacheDirectory string
	ScreenshotDir  string
	Headless       bool

	PeriodFrom *time.Time
}

// fileConfig is the YAML shape of the optional config file. Headless is a
// pointer so an absent key is distinguishable from an explicit false.
type fileConfig struct {
	TadoEmail     string `yaml:"tadoEmail"`
	TadoPassword  string `yaml:"tadoPassword"`
	Mprn          string `yaml:"mprn"`
	GasSerial     string `yaml:"gasSerialNumber"`
	OctopusAPIKey string `yaml:"octopusApiKey"`
	ShortCode     string `yaml:"shortCode"`
	LongCode      string `yaml:"longCode"`

	TokenFile      string `yaml:"tokenFile"`
	CacheDirectory string `yaml:"cacheDirectory"`
	ScreenshotDir  string `yaml:"screenshotDir"`
	Headless       *bool  `yaml:"headless"`
}

// loadConfigFile overlays values from a YAML file onto cfg. The file provides
// defaults: a value applies unless its flag was given explicitly, which
// flagChanged reports by flag name (nil means no flag was given).
func loadConfigFile(path string, cfg *Config, flagChanged func(name string) bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if flagChanged == nil {
		flagChanged = func(string) bool { return false }
	}
	merge := func(flag string, dst *string, src string) {
		if src != "" && !flagChanged(flag) {
			*dst = src
		}
	}
	merge("tado-email", &cfg.TadoEmail, file.TadoEmail)
	merge("tado-password", &cfg.TadoPassword, file.TadoPassword)
	merge("mprn", &cfg.Mprn, file.Mprn)
	merge("gas-serial-number", &cfg.GasSerial, file.GasSerial)
	merge("octopus-api-key", &cfg.OctopusAPIKey, file.OctopusAPIKey)
	merge("short-code", &cfg.ShortCode, file.ShortCode)
	merge("long-code", &cfg.LongCode, file.LongCode)
	merge("token-file", &cfg.TokenFile, file.TokenFile)
	merge("cache", &cfg.CacheDirectory, file.CacheDirectory)
	merge("screenshot-dir", &cfg.ScreenshotDir, file.ScreenshotDir)
	if file.Headless != nil && !flagChanged("headless") {
		cfg.Headless = *file.Headless
	}
	return nil
}

// validate reports the first missing required value. The meter identifiers
// are only required by the commands that fetch consumption.
func (c *Config) validate(needsMeter bool) error {
	required := []struct {
		name, value string
	}{
		{"tado-email", c.TadoEmail},
		{"tado-password", c.TadoPassword},
		{"octopus-api-key", c.OctopusAPIKey},
		{"short-code", c.ShortCode},
		{"long-code", c.LongCode},
	}
	if needsMeter {
		required = append(required,
			struct{ name, value string }{"mprn", c.Mprn},
			struct{ name, value string }{"gas-serial-number", c.GasSerial},
		)
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("required flag --%s missing", r.name)
		}
	}
	return nil
}
