package registry

import (
	"fmt"

	"github.com/sigilnet/sigil/internal/storage"
	"github.com/sigilnet/sigil/pkg/types"
)

// keyAdmin holds the persisted admin address (20 raw bytes).
var keyAdmin = []byte("admin")

// Store persists registry metadata that is not derivable from the event
// log. Today that is only the admin account: admin changes emit no domain
// event, so replay alone cannot recover them.
type Store struct {
	db storage.DB
}

// NewStore creates a metadata store over the given database.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

// SaveAdmin records the admin address.
func (s *Store) SaveAdmin(addr types.Address) error {
	if err := s.db.Put(keyAdmin, addr.Bytes()); err != nil {
		return fmt.Errorf("save admin: %w", err)
	}
	return nil
}

// LoadAdmin returns the persisted admin address, with found=false when
// the registry has never been bootstrapped.
func (s *Store) LoadAdmin() (types.Address, bool, error) {
	ok, err := s.db.Has(keyAdmin)
	if err != nil {
		return types.Address{}, false, fmt.Errorf("load admin: %w", err)
	}
	if !ok {
		return types.Address{}, false, nil
	}
	raw, err := s.db.Get(keyAdmin)
	if err != nil {
		return types.Address{}, false, fmt.Errorf("load admin: %w", err)
	}
	if len(raw) != types.AddressSize {
		return types.Address{}, false, fmt.Errorf("load admin: corrupt record (%d bytes)", len(raw))
	}
	var addr types.Address
	copy(addr[:], raw)
	return addr, true, nil
}
