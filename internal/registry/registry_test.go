package registry

import (
	"errors"
	"testing"

	"github.com/sigilnet/sigil/internal/events"
	"github.com/sigilnet/sigil/pkg/types"
)

// --- Test fixtures ---

func addr(b byte) types.Address {
	return types.Address{b}
}

var (
	alice = addr(0xa1)
	bob   = addr(0xb0)
	carol = addr(0xc4)
	dave  = addr(0xd7)
)

// fakeOracle marks a fixed set of accounts as active receivers.
type fakeOracle struct {
	receivers map[types.Address]bool
}

func (f *fakeOracle) IsReceiver(a types.Address) bool {
	return f.receivers[a]
}

// delivery records one acknowledgment channel call.
type delivery struct {
	operator, from, to types.Address
	token              types.TokenID
	data               []byte
}

// fakeChannel returns a fixed code or error, recording deliveries.
// onDeliver, when set, runs before returning (used for reentrancy tests).
type fakeChannel struct {
	code      AckCode
	err       error
	calls     []delivery
	onDeliver func(d delivery)
}

func (f *fakeChannel) Deliver(operator, from, to types.Address, id types.TokenID, data []byte) (AckCode, error) {
	d := delivery{operator: operator, from: from, to: to, token: id, data: data}
	f.calls = append(f.calls, d)
	if f.onDeliver != nil {
		f.onDeliver(d)
	}
	return f.code, f.err
}

// memorySink collects committed events.
type memorySink struct {
	evs  []events.Event
	fail bool
}

func (m *memorySink) Append(evs []events.Event) error {
	if m.fail {
		return errors.New("sink unavailable")
	}
	m.evs = append(m.evs, evs...)
	return nil
}

// newTestRegistry builds a registry with a recording sink and no receiver
// wiring. Mints are unrestricted.
func newTestRegistry(t *testing.T) (*Registry, *memorySink) {
	t.Helper()
	sink := &memorySink{}
	r := New(Options{Events: sink})
	return r, sink
}

// mustMint mints a token to the given account or fails the test.
func mustMint(t *testing.T, r *Registry, to types.Address) types.TokenID {
	t.Helper()
	id, err := r.Mint(to, to, MintOptions{})
	if err != nil {
		t.Fatalf("Mint(%s): %v", to, err)
	}
	return id
}

// checkInvariants verifies that every account's balance equals the number
// of tokens it owns, and that approvals refer only to existing tokens.
func checkInvariants(t *testing.T, r *Registry) {
	t.Helper()

	counts := make(map[types.Address]uint64)
	for id, owner := range r.state.owners {
		if owner.IsZero() {
			t.Errorf("token %s owned by null account", id)
		}
		counts[owner]++
	}
	for a, want := range counts {
		if got := r.state.balances[a]; got != want {
			t.Errorf("balance(%s) = %d, but owns %d tokens", a, got, want)
		}
	}
	for a, bal := range r.state.balances {
		if counts[a] != bal {
			t.Errorf("balance(%s) = %d with only %d owned tokens", a, bal, counts[a])
		}
	}
	for id := range r.state.approvals {
		if _, ok := r.state.owners[id]; !ok {
			t.Errorf("approval dangling for nonexistent token %s", id)
		}
	}
	if len(r.txns) != 0 {
		t.Errorf("transaction stack not empty: %d open", len(r.txns))
	}
}

// --- Query tests ---

func TestBalanceOf_NullAccount(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.BalanceOf(types.Address{})
	if !errors.Is(err, ErrInvalidAccount) {
		t.Errorf("BalanceOf(null) error = %v, want ErrInvalidAccount", err)
	}
}

func TestBalanceOf_NeverOwned(t *testing.T) {
	r, _ := newTestRegistry(t)
	bal, err := r.BalanceOf(alice)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if bal != 0 {
		t.Errorf("BalanceOf = %d, want 0", bal)
	}
}

func TestOwnerOf_NotFound(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.OwnerOf(types.NewTokenID(1))
	if !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("OwnerOf error = %v, want ErrTokenNotFound", err)
	}
}

func TestGetApproved_NotFound(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.GetApproved(types.NewTokenID(99))
	if !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("GetApproved error = %v, want ErrTokenNotFound", err)
	}
}

func TestGetApproved_NoneSet(t *testing.T) {
	r, _ := newTestRegistry(t)
	id := mustMint(t, r, alice)

	got, err := r.GetApproved(id)
	if err != nil {
		t.Fatalf("GetApproved: %v", err)
	}
	if !got.IsZero() {
		t.Errorf("GetApproved = %s, want null", got)
	}
}

func TestIsApprovedForAll_Default(t *testing.T) {
	r, _ := newTestRegistry(t)
	if r.IsApprovedForAll(alice, bob) {
		t.Error("unset operator pair should be false")
	}
}

func TestTokenURI(t *testing.T) {
	sink := &memorySink{}
	r := New(Options{
		Events:     sink,
		Collection: Collection{Name: "Badges", Symbol: "BDG", BaseURI: "https://badges.example/meta/"},
	})
	id := mustMint(t, r, alice)

	uri, err := r.TokenURI(id)
	if err != nil {
		t.Fatalf("TokenURI: %v", err)
	}
	if uri != "https://badges.example/meta/1" {
		t.Errorf("TokenURI = %q", uri)
	}

	if _, err := r.TokenURI(types.NewTokenID(42)); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("TokenURI for absent token = %v, want ErrTokenNotFound", err)
	}
}

func TestTokenURI_NoBaseURI(t *testing.T) {
	r, _ := newTestRegistry(t)
	id := mustMint(t, r, alice)

	uri, err := r.TokenURI(id)
	if err != nil {
		t.Fatalf("TokenURI: %v", err)
	}
	if uri != "" {
		t.Errorf("TokenURI = %q, want empty without base URI", uri)
	}
}

func TestCollection_NameSymbol(t *testing.T) {
	r := New(Options{Collection: Collection{Name: "Badges", Symbol: "BDG"}})
	if r.Name() != "Badges" || r.Symbol() != "BDG" {
		t.Errorf("Name/Symbol = %q/%q", r.Name(), r.Symbol())
	}
}

// --- Capability tests ---

func TestSupportsCapability(t *testing.T) {
	for _, id := range []Selector{CapRegistry, CapMetadata, CapReceiverAck} {
		if !SupportsCapability(id) {
			t.Errorf("capability %s should be supported", id)
		}
	}
	if SupportsCapability(DeriveSelector("sigil.unknown.v1")) {
		t.Error("unknown capability should not be supported")
	}
}

func TestDeriveSelector_Deterministic(t *testing.T) {
	a := DeriveSelector("tokenReceived(operator,from,to,tokenId,data)")
	if a != AckTokenReceived {
		t.Error("selector derivation should be deterministic")
	}
	if a == DeriveSelector("other()") {
		t.Error("different signatures should produce different selectors")
	}
}

func TestParseSelector(t *testing.T) {
	sel := DeriveSelector("sigil.registry.v1")
	parsed, err := ParseSelector(sel.String())
	if err != nil {
		t.Fatalf("ParseSelector: %v", err)
	}
	if parsed != sel {
		t.Errorf("roundtrip mismatch: %s != %s", parsed, sel)
	}

	if _, err := ParseSelector("zz"); err == nil {
		t.Error("invalid hex should fail")
	}
	if _, err := ParseSelector("aabbcc"); err == nil {
		t.Error("short selector should fail")
	}
}

// --- Scenario test ---

// TestScenario_BadgeLifecycle walks a full lifecycle: mint, approve,
// delegated transfer, burn.
func TestScenario_BadgeLifecycle(t *testing.T) {
	r, sink := newTestRegistry(t)

	// Mint badge #1 to Alice.
	id, err := r.Mint(alice, alice, MintOptions{})
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if id.Uint64() != 1 {
		t.Fatalf("first mint ID = %s, want 1", id)
	}
	if owner, _ := r.OwnerOf(id); owner != alice {
		t.Fatalf("OwnerOf = %s, want alice", owner)
	}
	if bal, _ := r.BalanceOf(alice); bal != 1 {
		t.Fatalf("BalanceOf(alice) = %d, want 1", bal)
	}

	// Alice approves Bob.
	if err := r.Approve(alice, bob, id); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if got, _ := r.GetApproved(id); got != bob {
		t.Fatalf("GetApproved = %s, want bob", got)
	}

	// Bob moves the badge from Alice to Carol.
	if err := r.Transfer(bob, alice, carol, id, TransferOptions{}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if owner, _ := r.OwnerOf(id); owner != carol {
		t.Errorf("OwnerOf = %s, want carol", owner)
	}
	if bal, _ := r.BalanceOf(alice); bal != 0 {
		t.Errorf("BalanceOf(alice) = %d, want 0", bal)
	}
	if bal, _ := r.BalanceOf(carol); bal != 1 {
		t.Errorf("BalanceOf(carol) = %d, want 1", bal)
	}
	if got, _ := r.GetApproved(id); !got.IsZero() {
		t.Errorf("approval should be cleared by transfer, got %s", got)
	}

	// Carol burns the badge.
	if err := r.Burn(carol, id); err != nil {
		t.Fatalf("Burn: %v", err)
	}
	if _, err := r.OwnerOf(id); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("OwnerOf after burn = %v, want ErrTokenNotFound", err)
	}
	if bal, _ := r.BalanceOf(carol); bal != 0 {
		t.Errorf("BalanceOf(carol) = %d, want 0", bal)
	}

	checkInvariants(t, r)

	// Event stream: mint, approval, transfer, burn.
	wantTypes := []events.Type{
		events.TypeTransfer,
		events.TypeApproval,
		events.TypeTransfer,
		events.TypeTransfer,
	}
	if len(sink.evs) != len(wantTypes) {
		t.Fatalf("got %d events, want %d", len(sink.evs), len(wantTypes))
	}
	for i, want := range wantTypes {
		if sink.evs[i].Type != want {
			t.Errorf("event %d type = %s, want %s", i, sink.evs[i].Type, want)
		}
	}
	if !sink.evs[0].IsMint() {
		t.Error("first event should be a mint transfer")
	}
	if !sink.evs[3].IsBurn() {
		t.Error("last event should be a burn transfer")
	}
}

// TestScenario_RoundTrip transfers a token away and back, checking the
// registry returns to its original state.
func TestScenario_RoundTrip(t *testing.T) {
	r, _ := newTestRegistry(t)
	id := mustMint(t, r, alice)

	if err := r.Transfer(alice, alice, bob, id, TransferOptions{}); err != nil {
		t.Fatalf("Transfer out: %v", err)
	}
	if err := r.Transfer(bob, bob, alice, id, TransferOptions{}); err != nil {
		t.Fatalf("Transfer back: %v", err)
	}

	if owner, _ := r.OwnerOf(id); owner != alice {
		t.Errorf("OwnerOf = %s, want alice", owner)
	}
	if bal, _ := r.BalanceOf(alice); bal != 1 {
		t.Errorf("BalanceOf(alice) = %d, want 1", bal)
	}
	if bal, _ := r.BalanceOf(bob); bal != 0 {
		t.Errorf("BalanceOf(bob) = %d, want 0", bal)
	}
	if got, _ := r.GetApproved(id); !got.IsZero() {
		t.Errorf("approval should be clear after round trip, got %s", got)
	}
	checkInvariants(t, r)
}
