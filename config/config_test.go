package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sigil.conf")
	content := `# comment
network = testnet
rpc.port = 9000
rpc.allowed = 127.0.0.1, 10.0.0.0/8
registry.name = "Event Badges"
registry.adminonlymint = yes

log.level = debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	values, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	cfg := Default(Mainnet)
	if err := ApplyFileConfig(cfg, values); err != nil {
		t.Fatalf("ApplyFileConfig: %v", err)
	}

	if cfg.Network != Testnet {
		t.Errorf("Network = %s, want testnet", cfg.Network)
	}
	if cfg.RPC.Port != 9000 {
		t.Errorf("RPC.Port = %d, want 9000", cfg.RPC.Port)
	}
	if len(cfg.RPC.AllowedIPs) != 2 || cfg.RPC.AllowedIPs[1] != "10.0.0.0/8" {
		t.Errorf("AllowedIPs = %v", cfg.RPC.AllowedIPs)
	}
	if cfg.Registry.Name != "Event Badges" {
		t.Errorf("Registry.Name = %q (quotes should be stripped)", cfg.Registry.Name)
	}
	if !cfg.Registry.AdminOnlyMint {
		t.Error("AdminOnlyMint not set")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	values, err := LoadFile(filepath.Join(t.TempDir(), "absent.conf"))
	if err != nil {
		t.Fatalf("LoadFile on missing file: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("missing file produced %d values", len(values))
	}
}

func TestLoadFile_BadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.conf")
	if err := os.WriteFile(path, []byte("no equals sign here\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("malformed line accepted")
	}
}

func TestDefaults(t *testing.T) {
	main := Default(Mainnet)
	test := Default(Testnet)

	if main.RPC.Port == test.RPC.Port {
		t.Error("mainnet and testnet share an RPC port")
	}
	if err := Validate(main); err != nil {
		t.Errorf("Validate(mainnet defaults): %v", err)
	}
	if err := Validate(test); err != nil {
		t.Errorf("Validate(testnet defaults): %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad network", func(c *Config) { c.Network = "devnet" }, true},
		{"bad rpc port", func(c *Config) { c.RPC.Port = 70000 }, true},
		{"negative timeout", func(c *Config) { c.Receiver.TimeoutSeconds = -1 }, true},
		{"bad admin", func(c *Config) { c.Registry.Admin = "nonsense" }, true},
		{"relative base uri", func(c *Config) { c.Registry.BaseURI = "tokens/" }, true},
		{"good base uri", func(c *Config) { c.Registry.BaseURI = "https://x.example/t/" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default(Mainnet)
			tt.mutate(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
