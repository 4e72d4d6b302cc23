// Package receiver maintains the directory of active receiver accounts and
// delivers token-received notifications to their HTTP endpoints.
//
// An account registered here is an active receiver: safe transfers and
// mints to it only commit after its endpoint acknowledges delivery with
// the expected code. Unregistered accounts are passive holders.
package receiver

import (
	"fmt"
	"net/url"
	"sort"

	"github.com/rs/zerolog"

	klog "github.com/sigilnet/sigil/internal/log"
	"github.com/sigilnet/sigil/internal/storage"
	"github.com/sigilnet/sigil/pkg/types"
)

// ErrNotRegistered is returned when an account has no receiver endpoint.
var ErrNotRegistered = fmt.Errorf("receiver: account not registered")

// Registration binds a receiver account to its notification endpoint.
type Registration struct {
	Address  types.Address `json:"address"`
	Endpoint string        `json:"endpoint"`
}

// Directory is the durable receiver registry. Keys are raw account bytes;
// values are endpoint URLs.
type Directory struct {
	db     storage.DB
	logger zerolog.Logger
}

// NewDirectory creates a directory over the given database.
func NewDirectory(db storage.DB) *Directory {
	return &Directory{db: db, logger: klog.Receiver}
}

// Register records an account as an active receiver reachable at the
// given HTTP endpoint. Re-registering replaces the endpoint.
func (d *Directory) Register(addr types.Address, endpoint string) error {
	if addr.IsZero() {
		return fmt.Errorf("receiver: null account cannot be a receiver")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("receiver: invalid endpoint: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("receiver: endpoint must be an http(s) URL, got %q", endpoint)
	}

	if err := d.db.Put(addr.Bytes(), []byte(endpoint)); err != nil {
		return fmt.Errorf("receiver: register: %w", err)
	}
	d.logger.Info().
		Str("address", addr.String()).
		Str("endpoint", endpoint).
		Msg("receiver registered")
	return nil
}

// Unregister removes an account from the directory, demoting it to a
// passive holder. Removing an unknown account is not an error.
func (d *Directory) Unregister(addr types.Address) error {
	if err := d.db.Delete(addr.Bytes()); err != nil {
		return fmt.Errorf("receiver: unregister: %w", err)
	}
	d.logger.Info().Str("address", addr.String()).Msg("receiver unregistered")
	return nil
}

// Endpoint returns the registered endpoint for an account.
func (d *Directory) Endpoint(addr types.Address) (string, error) {
	ok, err := d.db.Has(addr.Bytes())
	if err != nil {
		return "", fmt.Errorf("receiver: lookup: %w", err)
	}
	if !ok {
		return "", ErrNotRegistered
	}
	raw, err := d.db.Get(addr.Bytes())
	if err != nil {
		return "", fmt.Errorf("receiver: lookup: %w", err)
	}
	return string(raw), nil
}

// List returns all registrations ordered by address.
func (d *Directory) List() ([]Registration, error) {
	var out []Registration
	err := d.db.ForEach(nil, func(key, value []byte) error {
		if len(key) != types.AddressSize {
			return fmt.Errorf("receiver: corrupt directory key %x", key)
		}
		var addr types.Address
		copy(addr[:], key)
		out = append(out, Registration{Address: addr, Endpoint: string(value)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Address.Hex() < out[j].Address.Hex()
	})
	return out, nil
}

// IsReceiver reports whether the account is a registered active receiver.
// Lookup failures classify the account as passive; the safe-transfer path
// treats the directory as advisory.
func (d *Directory) IsReceiver(addr types.Address) bool {
	ok, err := d.db.Has(addr.Bytes())
	if err != nil {
		d.logger.Error().Err(err).Str("address", addr.String()).Msg("receiver lookup failed")
		return false
	}
	return ok
}
