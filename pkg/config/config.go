// Package config loads the importer settings. Sources, lowest priority
// first: defaults, config file, EZIMPORT_* environment (a .env file in the
// working directory included), command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"github.com/yurifrl/ezimport/pkg/marker"
	"github.com/yurifrl/ezimport/pkg/models"
)

const EnvPrefix = "EZIMPORT"

// EnvFile is loaded into the process environment before reading settings.
var EnvFile = ".env"

// FlagKeys binds command-line flag names to configuration keys.
var FlagKeys = map[string]string{
	"api-url":        "api.url",
	"api-token":      "api.token",
	"timezone":       "api.timezone",
	"json-folder":    "import.folder",
	"min-date":       "import.min_date",
	"tolerance-days": "import.tolerance_days",
	"log-level":      "log.level",
	"log-file":       "log.file",
}

type Config struct {
	API        APIConfig
	Import     ImportConfig
	Markers    MarkersConfig
	Categories CategoriesConfig
	Log        LogConfig
}

type APIConfig struct {
	URL      string
	Token    string
	Timeout  time.Duration
	PageSize int
	Timezone string
}

type ImportConfig struct {
	Folder           string
	MinDate          string
	ToleranceDays    int
	TransferCategory string
	ExternalPrefix   string
	TransferPrefix   string
}

type MarkersConfig struct {
	TransactionTag string
	AccountTag     string
}

type CategoriesConfig struct {
	GroupTerms   []string
	BankTerms    []string
	ExternalTerm string
}

type LogConfig struct {
	Level string
	File  string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.url", "http://localhost:8080/api/v1")
	v.SetDefault("api.token", "")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.page_size", 50)
	v.SetDefault("api.timezone", "Europe/Berlin")

	v.SetDefault("import.folder", "")
	v.SetDefault("import.min_date", "2024-01-15")
	v.SetDefault("import.tolerance_days", 3)
	v.SetDefault("import.transfer_category", "Umbuchung")
	v.SetDefault("import.external_prefix", "[Extern] ")
	v.SetDefault("import.transfer_prefix", "Transfer: ")

	v.SetDefault("markers.transaction_tag", marker.TransactionTag)
	v.SetDefault("markers.account_tag", marker.AccountTag)

	v.SetDefault("categories.group_terms", []string{"allgemein", "transfer"})
	v.SetDefault("categories.bank_terms", []string{"bank", "weisung"})
	v.SetDefault("categories.external_term", "extern")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "ezimport.log")
}

// Build assembles the configuration. flags may be nil; only flags listed in
// FlagKeys that exist in the set are bound. The result is not validated.
func Build(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	if err := gotenv.Load(EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", EnvFile, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range FlagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	return &Config{
		API: APIConfig{
			URL:      v.GetString("api.url"),
			Token:    v.GetString("api.token"),
			Timeout:  v.GetDuration("api.timeout"),
			PageSize: v.GetInt("api.page_size"),
			Timezone: v.GetString("api.timezone"),
		},
		Import: ImportConfig{
			Folder:           v.GetString("import.folder"),
			MinDate:          v.GetString("import.min_date"),
			ToleranceDays:    v.GetInt("import.tolerance_days"),
			TransferCategory: v.GetString("import.transfer_category"),
			ExternalPrefix:   v.GetString("import.external_prefix"),
			TransferPrefix:   v.GetString("import.transfer_prefix"),
		},
		Markers: MarkersConfig{
			TransactionTag: v.GetString("markers.transaction_tag"),
			AccountTag:     v.GetString("markers.account_tag"),
		},
		Categories: CategoriesConfig{
			GroupTerms:   v.GetStringSlice("categories.group_terms"),
			BankTerms:    v.GetStringSlice("categories.bank_terms"),
			ExternalTerm: v.GetString("categories.external_term"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
			File:  v.GetString("log.file"),
		},
	}, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if c.API.Token == "" {
		problems = append(problems, "api.token is required")
	}
	if u, err := url.Parse(c.API.URL); c.API.URL == "" || err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("api.url %q is not a valid URL", c.API.URL))
	}
	if c.API.Timeout <= 0 {
		problems = append(problems, "api.timeout must be greater than 0")
	}
	if c.API.PageSize <= 0 {
		problems = append(problems, "api.page_size must be greater than 0")
	}
	if _, err := time.LoadLocation(c.API.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("api.timezone %q is unknown", c.API.Timezone))
	}

	if c.Import.Folder == "" {
		problems = append(problems, "import.folder is required")
	} else if info, err := os.Stat(c.Import.Folder); err != nil || !info.IsDir() {
		problems = append(problems, fmt.Sprintf("import.folder %q is not a directory", c.Import.Folder))
	}
	if _, err := c.MinDate(); err != nil {
		problems = append(problems, fmt.Sprintf("import.min_date %q must be YYYY-MM-DD", c.Import.MinDate))
	}
	if c.Import.ToleranceDays < 0 {
		problems = append(problems, "import.tolerance_days must not be negative")
	}
	if c.Import.TransferCategory == "" {
		problems = append(problems, "import.transfer_category is required")
	}

	if _, err := marker.New(c.Markers.TransactionTag); err != nil {
		problems = append(problems, "markers.transaction_tag: "+err.Error())
	}
	if _, err := marker.New(c.Markers.AccountTag); err != nil {
		problems = append(problems, "markers.account_tag: "+err.Error())
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, fmt.Sprintf("log.level %q is unknown", c.Log.Level))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, ", "))
	}
	return nil
}

// MinDate parses import.min_date. An empty value disables the filter.
func (c *Config) MinDate() (time.Time, error) {
	if c.Import.MinDate == "" {
		return time.Time{}, nil
	}
	return time.Parse(models.DateLayout, c.Import.MinDate)
}

// Location is the configured timezone, UTC when it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.API.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) LogLevel() log.Level {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
