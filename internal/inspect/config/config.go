package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "INSPECT_"

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// Workers is the fixed number of inspection workers.
	Workers int `koanf:"workers" validate:"required,gte=1,lte=1024"`

	// QueueSize bounds the number of records waiting for a worker.
	QueueSize int `koanf:"queue_size" validate:"required,gte=1"`

	// DrainTimeout bounds the wait for queued records at shutdown.
	// Zero waits until every record is inspected.
	DrainTimeout time.Duration `koanf:"drain_timeout" validate:"gte=0"`

	// RateLimit is the number of records a source may send before its
	// traffic is blocked.
	RateLimit int64 `koanf:"rate_limit" validate:"required,gte=1"`

	// SuspicionThreshold is the block count at which a source is flagged.
	SuspicionThreshold int64 `koanf:"suspicion_threshold" validate:"required,gte=1"`

	// RuleCacheSize is the capacity of the rule match cache; 0 disables it.
	RuleCacheSize int `koanf:"rule_cache_size" validate:"gte=0"`

	// BloomFPRate is the target false-positive rate of the rule pre-filters.
	BloomFPRate float64 `koanf:"bloom_fp_rate" validate:"fp_rate"`

	// IngestRate caps records read per second; 0 means unthrottled.
	IngestRate float64 `koanf:"ingest_rate" validate:"gte=0"`

	// StatsFile is where the JSON statistics report is written.
	StatsFile string `koanf:"stats_file" validate:"required"`

	// HistoryDB is the bbolt file for snapshot history; empty disables it.
	HistoryDB string `koanf:"history_db"`

	// LogFile receives a copy of every log event; empty logs to the console only.
	LogFile string `koanf:"log_file"`
}

// DEFAULT_APP_CONFIG defines the default application configuration settings.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:                "prod",
	LogLevel:           "info",
	Workers:            4,
	QueueSize:          1024,
	DrainTimeout:       30 * time.Second,
	RateLimit:          5,
	SuspicionThreshold: 3,
	RuleCacheSize:      1024,
	BloomFPRate:        0.01,
	IngestRate:         0,
	StatsFile:          "stats.json",
	HistoryDB:          "",
	LogFile:            "",
}

// validFPRate accepts false-positive rates strictly between 0 and 1.
func validFPRate(fl validator.FieldLevel) bool {
	p := fl.Field().Float()
	return p > 0 && p < 1
}

// dotenvFile is the optional dotenv file read before the environment.
var dotenvFile = ".env"

// dotenvLoader copies variables from a dotenv file into the process
// environment without overriding ones already set. A missing file is not an
// error. It can be mocked in tests.
var dotenvLoader = func(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// envLoader loads environment variables with the prefix "INSPECT_".
// It lowercases the keys and removes the prefix, and can be mocked in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
			return key, strings.TrimSpace(value)
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG through the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation registers the "fp_rate" tag with the provided validator.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("fp_rate", validFPRate)
}

// Load reads defaults, an optional .env file and INSPECT_* environment
// variables, in increasing precedence, and validates the result.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	err := defaultLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	err = dotenvLoader(dotenvFile)
	if err != nil {
		return nil, fmt.Errorf("error loading %s: %w", dotenvFile, err)
	}

	err = envLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	err = registerValidation(validate)
	if err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	err = validate.Struct(&cfg)
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
