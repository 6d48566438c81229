// Package config loads priam's YAML configuration file.
//
// A file has three sections:
//
//	cassandra:            # pool settings, legacy key names accepted
//	  keyspace: app
//	  contactPoints: ["10.0.0.1:9042", "10.0.0.2"]
//	  password: ${CASSANDRA_PASSWORD}
//	logging:
//	  level: info
//	  format: json
//	server:
//	  addr: ":8080"
//
// String values may reference environment variables as ${VAR} or
// {{ env.VAR }}; a referenced variable that is not set is an error.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"go.yaml.in/yaml/v3"

	"github.com/koustreak/priam/internal/database"
	"github.com/koustreak/priam/internal/database/cassandra"
	"github.com/koustreak/priam/internal/errs"
)

// Config is the fully decoded and validated configuration.
type Config struct {
	Pool    *database.PoolConfig
	Logging LoggingConfig
	Server  ServerConfig
}

// LoggingConfig selects the logger level and output format.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error disabled"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json console"`
}

// ServerConfig configures the health and metrics listener.
type ServerConfig struct {
	Addr string `mapstructure:"addr" validate:"omitempty,hostname_port"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Pool:    database.DefaultPoolConfig(),
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Server:  ServerConfig{Addr: ":8080"},
	}
}

var validate = validator.New()

// Load reads, expands and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConfiguration, fmt.Sprintf("reading %s", path), err)
	}
	return Parse(data)
}

// Parse decodes a YAML document on top of Default and validates it.
func Parse(data []byte) (*Config, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errs.Wrap(errs.ErrKindConfiguration, "parsing yaml", err)
	}

	expanded, err := expandEnv(doc)
	if err != nil {
		return nil, err
	}
	root, _ := expanded.(map[string]any)

	cfg := Default()

	if raw, ok := root["cassandra"]; ok {
		section, ok := raw.(map[string]any)
		if !ok {
			return nil, errs.New(errs.ErrKindConfiguration, "cassandra section must be a mapping")
		}
		pool, err := cassandra.DecodePoolConfig(section, cfg.Pool)
		if err != nil {
			return nil, err
		}
		cfg.Pool = pool
	}

	if err := decodeSection(root, "logging", &cfg.Logging); err != nil {
		return nil, err
	}
	if err := decodeSection(root, "server", &cfg.Server); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeSection(root map[string]any, name string, out any) error {
	raw, ok := root[name]
	if !ok || raw == nil {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return errs.Wrap(errs.ErrKindConfiguration, "building decoder", err)
	}
	if err := dec.Decode(raw); err != nil {
		return errs.Wrap(errs.ErrKindConfiguration, fmt.Sprintf("invalid %s section", name), err)
	}
	return nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	for _, v := range []any{c.Pool, c.Logging, c.Server} {
		if err := validate.Struct(v); err != nil {
			return validationError(err)
		}
	}
	return nil
}

func validationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errs.Wrap(errs.ErrKindConfiguration, "invalid configuration", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}
	return errs.Wrap(errs.ErrKindConfiguration, "invalid configuration: "+strings.Join(fields, ", "), err)
}

// LoadDotEnv loads each existing file into the environment. Variables that
// are already set keep their value; missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return errs.Wrap(errs.ErrKindConfiguration, fmt.Sprintf("loading %s", p), err)
		}
	}
	return nil
}
