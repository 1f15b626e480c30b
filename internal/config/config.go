// Package config loads and hot-reloads the telnetd server's JSON
// configuration: one struct per file, a Load* function that fills in
// defaults before unmarshalling, log.Printf("INFO/WARN/ERROR: ...") at each
// step.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// ServerConfig is the root configuration for the telnet daemon.
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`

	// SessionIdleTimeoutMinutes bounds how long a session may sit with no
	// application-level traffic before the reaper closes it. 0 disables
	// the reaper entirely.
	SessionIdleTimeoutMinutes int `json:"sessionIdleTimeoutMinutes"`

	// EnableAuthentication gates whether the password AuthCallbacks
	// collaborator is wired into new connections, a runtime switch in place
	// of a build-time one. EnableEncrypt is loaded but not read by
	// cmd/telnetd; no EncryptCallbacks collaborator is wired either way.
	EnableAuthentication bool `json:"enableAuthentication"`
	EnableEncrypt        bool `json:"enableEncrypt"`

	// OfferNewEnviron is loaded but not read by the server: Conn.Negotiate
	// always sends DO NEW-ENVIRON (RFC 1572) and never DO OLD-ENVIRON
	// (RFC 1408). Both are decoded when the peer sends them.
	OfferNewEnviron bool `json:"offerNewEnviron"`

	// EnableCP437 wraps PTY output in the UTF-8→CP437 transliterating
	// writer, for legacy DOS door compatibility. Off by default: ANSI
	// terminals expect their own byte stream untouched.
	EnableCP437 bool `json:"enableCP437"`

	// MaxConnections is loaded but not read by the server; the accept loop
	// does not cap concurrent sessions.
	MaxConnections int `json:"maxConnections"`
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:                      "0.0.0.0",
		Port:                      2323,
		SessionIdleTimeoutMinutes: 15,
		EnableAuthentication:      false,
		EnableEncrypt:             false,
		OfferNewEnviron:           true,
		EnableCP437:               false,
		MaxConnections:            100,
	}
}

// LoadServerConfig loads the server configuration from config.json under
// configPath, falling back to defaults if the file is absent.
func LoadServerConfig(configPath string) (ServerConfig, error) {
	filePath := filepath.Join(configPath, "config.json")
	log.Printf("INFO: Loading server configuration from %s", filePath)

	cfg := defaultServerConfig()

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("WARN: config.json not found at %s. Using default settings.", filePath)
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		log.Printf("ERROR: Failed to parse config JSON from %s: %v. Using default settings.", filePath, err)
		return defaultServerConfig(), fmt.Errorf("failed to parse config JSON from %s: %w", filePath, err)
	}

	log.Printf("INFO: Successfully loaded server configuration from %s", filePath)
	return cfg, nil
}

// SaveServerConfig writes cfg back to config.json under configPath, used by
// admin tooling and by tests that round-trip a modified configuration.
func SaveServerConfig(configPath string, cfg ServerConfig) error {
	filePath := filepath.Join(configPath, "config.json")
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal server config: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", filePath, err)
	}
	return nil
}
