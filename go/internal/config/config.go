package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/mcdev12/retroboard/go/internal/dbconfig"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string        `env:"LOG_FORMAT" envDefault:"console"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	BoardConfig    string        `env:"BOARD_CONFIG"`
	PollInterval   time.Duration `env:"POLL_INTERVAL" envDefault:"1s"`

	DB       dbconfig.Config
	EventLog EventLogConfig
	Timers   TimerConfig
	NATS     NATSConfig
}

type EventLogConfig struct {
	MaxEvents     int           `env:"EVENT_LOG_MAX_EVENTS" envDefault:"100"`
	Retention     time.Duration `env:"EVENT_LOG_RETENTION" envDefault:"5m"`
	SweepInterval time.Duration `env:"EVENT_LOG_SWEEP_INTERVAL" envDefault:"1m"`
}

// TimerConfig bounds how long idle session timers stay cached.
type TimerConfig struct {
	IdleTTL       time.Duration `env:"TIMER_IDLE_TTL" envDefault:"10m"`
	SweepInterval time.Duration `env:"TIMER_SWEEP_INTERVAL" envDefault:"1m"`
}

type NATSConfig struct {
	Enabled       bool   `env:"NATS_ENABLED" envDefault:"false"`
	URL           string `env:"NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	Stream        string `env:"NATS_STREAM" envDefault:"RETRO_EVENTS"`
	SubjectPrefix string `env:"NATS_SUBJECT_PREFIX" envDefault:"retro.events"`
}

// Board is the optional YAML board file.
type Board struct {
	Categories []string `yaml:"categories"`
	Timer      struct {
		MaxDuration     int `yaml:"max_duration"`
		DefaultDuration int `yaml:"default_duration"`
	} `yaml:"timer"`
}

// Load reads .env (if present) and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// LoadBoard reads the board file. An empty path yields the zero Board.
func LoadBoard(path string) (Board, error) {
	var board Board
	if path == "" {
		return board, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return board, fmt.Errorf("failed to read board config: %w", err)
	}
	if err := yaml.Unmarshal(data, &board); err != nil {
		return board, fmt.Errorf("failed to parse board config: %w", err)
	}

	seen := make(map[string]bool, len(board.Categories))
	for i, c := range board.Categories {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			return board, fmt.Errorf("board config: invalid or duplicate category %q", board.Categories[i])
		}
		seen[c] = true
		board.Categories[i] = c
	}
	if board.Timer.MaxDuration < 0 {
		return board, fmt.Errorf("board config: timer.max_duration must not be negative")
	}
	return board, nil
}

// SetupLogger configures the global zerolog logger.
func SetupLogger(cfg Config, out io.Writer) error {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFormat == "json" {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}
	return nil
}
