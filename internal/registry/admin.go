package registry

import (
	"fmt"

	"github.com/sigilnet/sigil/pkg/types"
)

// Bootstrap sets the registry admin exactly once. Subsequent calls fail
// regardless of caller; the admin can only change via SetAdmin afterwards.
func (r *Registry) Bootstrap(admin types.Address) error {
	if r.state.initialized {
		return ErrBootstrapped
	}
	if admin.IsZero() {
		return fmt.Errorf("%w: null admin", ErrInvalidAccount)
	}

	r.state.admin = admin
	r.state.initialized = true
	if r.meta != nil {
		if err := r.meta.SaveAdmin(admin); err != nil {
			r.state.admin = types.Address{}
			r.state.initialized = false
			return fmt.Errorf("persist admin: %w", err)
		}
	}

	r.logger.Info().Str("admin", admin.String()).Msg("registry bootstrapped")
	return nil
}

// Admin returns the registry admin (zero before Bootstrap).
func (r *Registry) Admin() types.Address {
	return r.state.admin
}

// SetAdmin reassigns the registry admin. Only the current admin may call
// it. No domain event is emitted; admin changes are administrative, not
// part of the token event stream.
func (r *Registry) SetAdmin(caller, newAdmin types.Address) error {
	if !r.state.initialized || caller != r.state.admin {
		return fmt.Errorf("%w: caller is not the registry admin", ErrUnauthorized)
	}
	if newAdmin.IsZero() {
		return fmt.Errorf("%w: null admin", ErrInvalidAccount)
	}

	prev := r.state.admin
	r.state.admin = newAdmin
	if r.meta != nil {
		if err := r.meta.SaveAdmin(newAdmin); err != nil {
			r.state.admin = prev
			return fmt.Errorf("persist admin: %w", err)
		}
	}

	r.logger.Info().
		Str("previous", prev.String()).
		Str("admin", newAdmin.String()).
		Msg("registry admin reassigned")
	return nil
}

// RestoreAdmin loads a previously persisted admin from the meta store,
// typically at startup after replaying the event log. A registry that
// was never bootstrapped stays uninitialized.
func (r *Registry) RestoreAdmin() error {
	if r.meta == nil {
		return nil
	}
	admin, found, err := r.meta.LoadAdmin()
	if err != nil {
		return fmt.Errorf("load admin: %w", err)
	}
	if !found {
		return nil
	}
	r.state.admin = admin
	r.state.initialized = true
	return nil
}
