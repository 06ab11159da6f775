// Package config loads the coordinator's YAML configuration document.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	pkgerrors "github.com/endomorphosis/ipfs-kit-py-sub032/pkg/errors"
	"github.com/endomorphosis/ipfs-kit-py-sub032/pkg/log/conf"
)

// Config is the coordinator daemon's full configuration.
type Config struct {
	// PeerID identifies this coordinator instance in the Merkle clock and
	// the peer roster.
	PeerID string `json:"peerId" yaml:"peerId"`

	// DataDir holds the durable snapshot files (§4.E).
	DataDir string `json:"dataDir" yaml:"dataDir"`

	// HTTPAddr is the bind address for the RPC facade, e.g. ":8080".
	HTTPAddr string `json:"httpAddr" yaml:"httpAddr"`

	// AssignInterval is how often the periodic assignment trigger runs.
	AssignInterval time.Duration `json:"assignInterval" yaml:"assignInterval"`

	// SaveTimeout bounds a single snapshot write (§5.1).
	SaveTimeout time.Duration `json:"saveTimeout" yaml:"saveTimeout"`

	// InitialPeers seeds the roster on first boot.
	InitialPeers []string `json:"initialPeers" yaml:"initialPeers"`

	Log *LogConfig `json:"log" yaml:"log"`
}

// LogConfig mirrors pkg/log/conf.LogConfig with YAML tags for embedding in
// the top-level document.
type LogConfig struct {
	Core      string `json:"core" yaml:"core"`
	Level     string `json:"level" yaml:"level"`
	Formatter string `json:"formatter" yaml:"formatter"`
}

// DefaultConfig returns the configuration used when no file is supplied.
func DefaultConfig() *Config {
	return &Config{
		PeerID:         "",
		DataDir:        "./data",
		HTTPAddr:       ":8080",
		AssignInterval: 10 * time.Second,
		SaveTimeout:    5 * time.Second,
		InitialPeers:   nil,
		Log: &LogConfig{
			Core:      string(conf.LogrusCore),
			Level:     string(conf.InfoLevel),
			Formatter: string(conf.JSONFormatter),
		},
	}
}

// LogConfigOrDefault returns cfg.Log, falling back to a default when unset.
func (c *Config) LogConfigOrDefault() *conf.LogConfig {
	if c.Log == nil {
		return conf.DefaultConfig()
	}
	return &conf.LogConfig{
		Core:      conf.Core(c.Log.Core),
		Level:     conf.Level(c.Log.Level),
		Formatter: conf.Formatter(c.Log.Formatter),
	}
}

// Load reads and parses a YAML config file at path. An empty path falls
// back to the CONFIG_PATH environment variable, then "config.yaml".
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config.yaml"
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, pkgerrors.NewError().
			WithCode(pkgerrors.CodeInitializeError).
			WithMessage("failed to open config file").
			WithError(err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, pkgerrors.NewError().
			WithCode(pkgerrors.CodeInitializeError).
			WithMessage("failed to parse config file").
			WithError(err)
	}
	if cfg.PeerID == "" {
		return nil, pkgerrors.NewError().
			WithCode(pkgerrors.CodeLackOfConfig).
			WithMessage(fmt.Sprintf("config %q is missing peerId", path))
	}
	return cfg, nil
}
