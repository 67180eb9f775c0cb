package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// RPCConfig defines the aria2 endpoint and call timeouts.
type RPCConfig struct {
	Endpoint          string `toml:"endpoint"`
	Secret            string `toml:"secret"`
	TimeoutSeconds    int    `toml:"timeoutSeconds"`
	ExtTimeoutSeconds int    `toml:"extendedTimeoutSeconds"`
	NotifyBuffer      int    `toml:"notifyBuffer"`
}

// HistoryConfig defines the terminal-event journal.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	DBPath  string `toml:"dbPath"`
}

// LoggingConfig defines basic logging knobs.
type LoggingConfig struct {
	Level       string `toml:"level"`
	FilePath    string `toml:"filePath"`
	FileMaxSize int    `toml:"fileMaxSizeMB"`
	FileBackups int    `toml:"fileMaxBackups"`
}

// ProfileConfig aggregates client configuration for a profile.
type ProfileConfig struct {
	ProfileName string        `toml:"profileName"`
	RPC         RPCConfig     `toml:"rpc"`
	History     HistoryConfig `toml:"history"`
	Logging     LoggingConfig `toml:"logging"`
}

// DefaultProfile returns a config pointing at a local aria2.
func DefaultProfile(name string) *ProfileConfig {
	return &ProfileConfig{
		ProfileName: name,
		RPC: RPCConfig{
			Endpoint:          "ws://127.0.0.1:6800/jsonrpc",
			TimeoutSeconds:    10,
			ExtTimeoutSeconds: 120,
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  "history.db",
		},
	}
}

// Load reads a config.toml from the provided path.
func Load(path string) (*ProfileConfig, error) {
	var cfg ProfileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadProfile reads config.toml from a profile directory.
func LoadProfile(dir string) (*ProfileConfig, error) {
	return Load(filepath.Join(dir, "config.toml"))
}

// Save writes the config as TOML.
func Save(path string, cfg *ProfileConfig) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// ResolvePath resolves a possibly-relative config path against the profile
// directory.
func ResolvePath(profileDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(profileDir, path)
}

func (cfg *ProfileConfig) validate() error {
	if cfg.ProfileName == "" {
		return fmt.Errorf("profileName required")
	}
	if cfg.RPC.Endpoint == "" {
		return fmt.Errorf("rpc.endpoint required")
	}
	if cfg.RPC.TimeoutSeconds <= 0 {
		cfg.RPC.TimeoutSeconds = 10
	}
	if cfg.RPC.ExtTimeoutSeconds <= 0 {
		cfg.RPC.ExtTimeoutSeconds = 120
	}
	if cfg.History.Enabled && cfg.History.DBPath == "" {
		cfg.History.DBPath = "history.db"
	}
	return nil
}
