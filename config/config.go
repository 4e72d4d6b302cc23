// Package config handles node configuration.
//
// All settings here are operational: they control how this node runs, not
// what the registry's rules are. Registry semantics are fixed in code.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Config holds node-specific runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// RPC server
	RPC RPCConfig

	// Registry collection settings
	Registry RegistryConfig

	// Receiver notification delivery
	Receiver ReceiverConfig

	// Logging
	Log LogConfig
}

// RPCConfig holds RPC server settings.
type RPCConfig struct {
	Enabled       bool     `conf:"rpc.enabled"`
	Addr          string   `conf:"rpc.addr"`
	Port          int      `conf:"rpc.port"`
	AllowedIPs    []string `conf:"rpc.allowed"`
	CORSOrigins   []string `conf:"rpc.cors"` // Allowed CORS origins ("*" = all).
	RequireSigned bool     `conf:"rpc.requiresigned"`
}

// RegistryConfig holds collection metadata and minting policy.
type RegistryConfig struct {
	Name          string `conf:"registry.name"`
	Symbol        string `conf:"registry.symbol"`
	BaseURI       string `conf:"registry.baseuri"`
	Admin         string `conf:"registry.admin"` // Bootstrap admin address.
	AdminOnlyMint bool   `conf:"registry.adminonlymint"`
}

// ReceiverConfig holds acknowledgment delivery settings.
type ReceiverConfig struct {
	// TimeoutSeconds bounds one receiver notification round-trip.
	TimeoutSeconds int `conf:"receiver.timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.sigil
//	macOS:   ~/Library/Application Support/Sigil
//	Windows: %APPDATA%\Sigil
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sigil"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Sigil")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Sigil")
		}
		return filepath.Join(home, "AppData", "Roaming", "Sigil")
	default:
		return filepath.Join(home, ".sigil")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// RegistryDir returns the registry database directory.
func (c *Config) RegistryDir() string {
	return filepath.Join(c.NetworkDataDir(), "registry")
}

// KeystoreDir returns the keystore directory.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.NetworkDataDir(), "keystore")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "sigil.conf")
}
