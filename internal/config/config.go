package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned for configuration that cannot be used to run a pipeline.
var ErrInvalidConfig = errors.New("invalid config")

// CronParser accepts the six-field expressions used by the scheduler.
var CronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Config holds all application configuration.
type Config struct {
	Rates struct {
		Tolerance time.Duration `yaml:"tolerance" validate:"gt=0"`
	} `yaml:"rates"`
	Stdev struct {
		Frequency  time.Duration `yaml:"frequency" validate:"gt=0"`
		Window     int           `yaml:"window" validate:"gt=0"`
		MinPeriods int           `yaml:"min_periods" validate:"gte=1,ltefield=Window"`
	} `yaml:"stdev"`
	Workers    int `yaml:"workers" validate:"gte=0"`
	Validation struct {
		AllowIdenticalDuplicates bool `yaml:"allow_identical_duplicates"`
	} `yaml:"validation"`
	Input struct {
		PricesPath          string `yaml:"prices_path" validate:"required"`
		SpotRatesPath       string `yaml:"spot_rates_path" validate:"required"`
		ConversionRulesPath string `yaml:"conversion_rules_path" validate:"required"`
		SnapshotsPath       string `yaml:"snapshots_path" validate:"required"`
	} `yaml:"input"`
	Output struct {
		Dir            string `yaml:"dir" validate:"required"`
		PricedRowsFile string `yaml:"priced_rows_file"`
		StatRowsFile   string `yaml:"stat_rows_file"`
		XLSX           string `yaml:"xlsx"`
	} `yaml:"output"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Schedule struct {
		RatesCron string `yaml:"rates_cron" validate:"cron"`
		StdevCron string `yaml:"stdev_cron" validate:"cron"`
	} `yaml:"schedule"`
	Server struct {
		Addr string `yaml:"addr" validate:"required"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" validate:"oneof=panic fatal error warn warning info debug trace"`
		Format string `yaml:"format" validate:"oneof=text json"`
	} `yaml:"log"`
}

// Load starts from the defaults, then applies the YAML file and environment variable overrides.
// A missing file is not an error. Explicit zero values are kept so Validate can reject them.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse config: %v", ErrInvalidConfig, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.Stdev.MinPeriods == 0 {
		cfg.Stdev.MinPeriods = cfg.Stdev.Window
	}
	return cfg, nil
}

// overrides lists the environment variables that take precedence over the file.
type overrides struct {
	RatesTolerance  *time.Duration `envconfig:"RATES_TOLERANCE"`
	StdevFrequency  *time.Duration `envconfig:"STDEV_FREQUENCY"`
	StdevWindow     *int           `envconfig:"STDEV_WINDOW"`
	StdevMinPeriods *int           `envconfig:"STDEV_MIN_PERIODS"`
	Workers         *int           `envconfig:"WORKERS"`
	OutputDir       *string        `envconfig:"OUTPUT_DIR"`
	SQLitePath      *string        `envconfig:"SQLITE_PATH"`
	ServerAddr      *string        `envconfig:"SERVER_ADDR"`
	LogLevel        *string        `envconfig:"LOG_LEVEL"`
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func (c *Config) applyEnv() error {
	var o overrides
	if err := envconfig.Process("", &o); err != nil {
		return fmt.Errorf("%w: environment: %v", ErrInvalidConfig, err)
	}
	set(&c.Rates.Tolerance, o.RatesTolerance)
	set(&c.Stdev.Frequency, o.StdevFrequency)
	set(&c.Stdev.Window, o.StdevWindow)
	set(&c.Stdev.MinPeriods, o.StdevMinPeriods)
	set(&c.Workers, o.Workers)
	set(&c.Output.Dir, o.OutputDir)
	set(&c.Database.SQLitePath, o.SQLitePath)
	set(&c.Server.Addr, o.ServerAddr)
	set(&c.Log.Level, o.LogLevel)
	return nil
}

// Defaults returns the configuration used for keys absent from the file and environment.
// MinPeriods is left at 0, meaning equal to the window.
func Defaults() *Config {
	c := &Config{}
	c.Rates.Tolerance = time.Hour
	c.Stdev.Frequency = time.Hour
	c.Stdev.Window = 20
	c.Input.PricesPath = "data/prices.csv"
	c.Input.SpotRatesPath = "data/spot_rates.csv"
	c.Input.ConversionRulesPath = "data/conversion_rules.csv"
	c.Input.SnapshotsPath = "data/snapshots.csv"
	c.Output.Dir = "results"
	c.Output.PricedRowsFile = "priced_rows.csv"
	c.Output.StatRowsFile = "stat_rows.csv"
	c.Schedule.RatesCron = "0 0 * * * *"
	c.Schedule.StdevCron = "0 5 * * * *"
	c.Server.Addr = ":9090"
	c.Log.Level = "info"
	c.Log.Format = "text"
	return c
}

func validCron(fl validator.FieldLevel) bool {
	_, err := CronParser.Parse(fl.Field().String())
	return err == nil
}

// Validate checks option ranges. All failures wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.RegisterValidation("cron", validCron); err != nil {
		return err
	}
	if err := v.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("%w: %s failed %s (value %v)", ErrInvalidConfig, fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
