package config

import (
	"fmt"
	"net/url"

	"github.com/sigilnet/sigil/pkg/types"
)

// Validate checks runtime node config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}
	if cfg.Receiver.TimeoutSeconds < 0 {
		return fmt.Errorf("receiver.timeout must not be negative")
	}

	if cfg.Registry.Admin != "" {
		addr, err := types.ParseAddress(cfg.Registry.Admin)
		if err != nil {
			return fmt.Errorf("registry.admin: %w", err)
		}
		if addr.IsZero() {
			return fmt.Errorf("registry.admin must not be the null address")
		}
	}
	if cfg.Registry.BaseURI != "" {
		u, err := url.Parse(cfg.Registry.BaseURI)
		if err != nil || u.Scheme == "" {
			return fmt.Errorf("registry.baseuri must be an absolute URL")
		}
	}

	return nil
}
