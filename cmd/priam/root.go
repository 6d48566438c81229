package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/koustreak/priam/internal/config"
	"github.com/koustreak/priam/internal/consistency"
	"github.com/koustreak/priam/internal/database/cassandra"
	"github.com/koustreak/priam/internal/logger"
	"github.com/koustreak/priam/internal/metrics"
)

var (
	configFile     string
	keyspace       string
	contactPoints  []string
	username       string
	password       string
	consistencyArg string
	logLevel       string
	logFormat      string
	connectWait    time.Duration
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "priam",
	Short:         "Run CQL against a Cassandra cluster",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		dir := ""
		if configFile != "" {
			dir = filepath.Dir(configFile)
		}
		return config.LoadDotEnv(filepath.Join(dir, ".env.local"), filepath.Join(dir, ".env"))
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&configFile, "config", "c", "", "Path to a priam YAML config file")
	f.StringVarP(&keyspace, "keyspace", "k", "", "Keyspace (overrides config)")
	f.StringSliceVar(&contactPoints, "hosts", nil, "Contact points, host or host:port (overrides config)")
	f.StringVarP(&username, "username", "u", "", "Username for plain-text auth")
	f.StringVarP(&password, "password", "p", "", "Password for plain-text auth (prefer ${VAR} in the config file)")
	f.StringVar(&consistencyArg, "consistency", "", "Default consistency level, e.g. LOCAL_QUORUM")
	f.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error, disabled")
	f.StringVar(&logFormat, "log-format", "", "Log format: json or console")
	f.DurationVar(&connectWait, "connect-wait", 30*time.Second, "How long to wait for the pool to connect")
}

// resolveConfig loads the config file (if any) and applies flag overrides.
func resolveConfig() (*config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if keyspace != "" {
		cfg.Pool.Keyspace = keyspace
	}
	if len(contactPoints) > 0 {
		cfg.Pool.ContactPoints = contactPoints
	}
	if username != "" {
		cfg.Pool.Username = username
	}
	if password != "" {
		cfg.Pool.Password = password
	}
	if consistencyArg != "" {
		cfg.Pool.ConsistencyLevel = consistencyArg
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app is what every subcommand needs once the config is resolved.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	registry *prometheus.Registry
	driver   *cassandra.Driver
	manager  *cassandra.Manager
}

func newApp() (*app, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return nil, err
	}

	log := logger.New(&logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		TimeFormat: "rfc3339",
		Output:     os.Stderr,
		Component:  "priam.driver",
	})

	registry := prometheus.NewRegistry()
	driver := cassandra.New(&cassandra.Config{
		Logger:  log,
		Emitter: metrics.NewObserver(registry),
	})

	return &app{
		cfg:      cfg,
		log:      log,
		registry: registry,
		driver:   driver,
		manager:  cassandra.NewManager(driver),
	}, nil
}

// session waits for a ready pool and returns an executor bound to it.
func (a *app) session(ctx context.Context) (*cassandra.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, connectWait)
	defer cancel()

	pool, err := a.manager.Get(ctx, a.cfg.Pool)
	if err != nil {
		return nil, fmt.Errorf("connecting to %v: %w", a.cfg.Pool.ContactPoints, err)
	}

	level := consistency.Unset
	if a.cfg.Pool.ConsistencyLevel != "" {
		level, err = consistency.Parse(a.cfg.Pool.ConsistencyLevel)
		if err != nil {
			return nil, err
		}
	}
	return a.driver.Session(pool, level), nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.manager.CloseAll(ctx); err != nil {
		a.log.ErrorWith("priam: closing pools", err, nil)
	}
}
