// Package config resolves settings from flags, WILLIS_* environment
// variables, an optional .env file and .willis.yaml into a validated Config.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/andresmejia3/willis/internal/symmetry"
	"github.com/andresmejia3/willis/internal/willis"
	"github.com/andresmejia3/willis/internal/worker"
)

const (
	EnvPrefix       = "WILLIS"
	FileName        = ".willis"
	DefaultWorkers  = 4
	DefaultCacheTTL = 24 * time.Hour
)

// thresholdKeys override individual fields of the selected preset.
var thresholdKeys = []string{
	"frontal-threshold", "ratio-min", "ratio-max",
	"jaw-min", "jaw-max", "angle-min", "angle-max",
}

// Config is the validated, final configuration.
type Config struct {
	Preset    string `mapstructure:"preset" validate:"oneof=standard strict"`
	Estimator string `mapstructure:"estimator" validate:"oneof=eye-width nose-deviation"`

	FrontalThreshold *float64 `mapstructure:"frontal-threshold" validate:"omitempty,gte=0,lte=1"`
	RatioMin         *float64 `mapstructure:"ratio-min" validate:"omitempty,gte=0"`
	RatioMax         *float64 `mapstructure:"ratio-max" validate:"omitempty,gte=0"`
	JawMin           *float64 `mapstructure:"jaw-min" validate:"omitempty,gte=0,lte=100"`
	JawMax           *float64 `mapstructure:"jaw-max" validate:"omitempty,gte=0,lte=100"`
	AngleMin         *float64 `mapstructure:"angle-min" validate:"omitempty,gte=0,lte=180"`
	AngleMax         *float64 `mapstructure:"angle-max" validate:"omitempty,gte=0,lte=180"`

	Store string `mapstructure:"store" validate:"oneof=sqlite postgres mysql none"`
	DB    string `mapstructure:"db" validate:"required_unless=Store none"`

	Cache    string        `mapstructure:"cache" validate:"omitempty,url"`
	CacheTTL time.Duration `mapstructure:"cache-ttl" validate:"gte=0"`

	Detector   string        `mapstructure:"detector" validate:"required"`
	Workers    int           `mapstructure:"workers" validate:"gte=1,lte=64"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gt=0"`
	CascadeDir string        `mapstructure:"cascade-dir"`

	Font     string `mapstructure:"font"`
	LogLevel string `mapstructure:"log-level" validate:"oneof=trace debug info warn error"`
	LogFile  string `mapstructure:"log-file"`
}

// Init registers the config file search path, env binding and defaults on v.
// configFile, when set, replaces the search path.
func Init(v *viper.Viper, configFile string) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		v.AddConfigPath(filepath.Join(XDGConfigHome(), "willis"))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("preset", willis.PresetStandardName)
	v.SetDefault("estimator", symmetry.EyeWidthName)
	v.SetDefault("store", "sqlite")
	v.SetDefault("db", DefaultDBPath())
	v.SetDefault("cache", "")
	v.SetDefault("cache-ttl", DefaultCacheTTL)
	v.SetDefault("detector", worker.DefaultCommand)
	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("timeout", worker.DefaultTimeout)
	v.SetDefault("cascade-dir", DefaultCascadeDir())
	v.SetDefault("font", "")
	v.SetDefault("log-level", "info")
	v.SetDefault("log-file", "")

	// Overrides have no default, so AutomaticEnv alone would not surface them
	// in Unmarshal.
	for _, k := range thresholdKeys {
		_ = v.BindEnv(k)
	}
}

// LoadDotEnv loads a .env file into the process environment. A missing
// file is not an error.
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading .env file: %w", err)
	}
	return nil
}

// Load reads the config file if present, then unmarshals and validates
// everything v has resolved.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}
	cfg.Preset = strings.ToLower(strings.TrimSpace(cfg.Preset))
	cfg.Estimator = strings.ToLower(strings.TrimSpace(cfg.Estimator))
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks struct constraints and the resolved threshold set.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fieldMessage(fe))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return err
	}
	if _, err := cfg.Thresholds(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	case "required", "required_unless":
		return fmt.Sprintf("%s is required", fe.Field())
	case "url":
		return fmt.Sprintf("%s must be a URL such as redis://localhost:6379/0", fe.Field())
	}
	return fmt.Sprintf("%s failed %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
}

// Thresholds returns the selected preset with any individual overrides applied.
func (c *Config) Thresholds() (willis.Thresholds, error) {
	t, err := willis.Preset(c.Preset)
	if err != nil {
		return willis.Thresholds{}, err
	}
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&t.FrontalSymmetry, c.FrontalThreshold)
	set(&t.NormalRatioMin, c.RatioMin)
	set(&t.NormalRatioMax, c.RatioMax)
	set(&t.JawProminenceMin, c.JawMin)
	set(&t.JawProminenceMax, c.JawMax)
	set(&t.ChinAngleMin, c.AngleMin)
	set(&t.ChinAngleMax, c.AngleMax)
	if err := t.Validate(); err != nil {
		return willis.Thresholds{}, err
	}
	return t, nil
}

// SymmetryEstimator returns the configured estimator.
func (c *Config) SymmetryEstimator() (symmetry.Estimator, error) {
	return symmetry.ByName(c.Estimator)
}

// ThresholdKeys lists the keys that override preset fields.
func ThresholdKeys() []string {
	return append([]string(nil), thresholdKeys...)
}
