package registry

import (
	"errors"
	"testing"

	"github.com/sigilnet/sigil/pkg/types"
)

// --- Transfer Tests ---

func TestTransfer_ByOwner(t *testing.T) {
	r, sink := newTestRegistry(t)
	id := mustMint(t, r, alice)

	if err := r.Transfer(alice, alice, bob, id, TransferOptions{}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if owner, _ := r.OwnerOf(id); owner != bob {
		t.Errorf("OwnerOf = %s, want bob", owner)
	}

	last := sink.evs[len(sink.evs)-1]
	if last.From != alice || last.To != bob || last.Token != id {
		t.Errorf("transfer event = %+v", last)
	}
	checkInvariants(t, r)
}

func TestTransfer_ByOperator(t *testing.T) {
	r, _ := newTestRegistry(t)
	id := mustMint(t, r, alice)

	if err := r.SetApprovalForAll(alice, dave, true); err != nil {
		t.Fatalf("SetApprovalForAll: %v", err)
	}
	if err := r.Transfer(dave, alice, bob, id, TransferOptions{}); err != nil {
		t.Fatalf("Transfer by operator: %v", err)
	}
	if owner, _ := r.OwnerOf(id); owner != bob {
		t.Errorf("OwnerOf = %s, want bob", owner)
	}
	// Blanket approval survives the transfer.
	if !r.IsApprovedForAll(alice, dave) {
		t.Error("operator approval should persist across transfers")
	}
	checkInvariants(t, r)
}

func TestTransfer_TokenNotFound(t *testing.T) {
	r, _ := newTestRegistry(t)
	err := r.Transfer(alice, alice, bob, types.NewTokenID(7), TransferOptions{})
	if !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("error = %v, want ErrTokenNotFound", err)
	}
}

func TestTransfer_Unauthorized(t *testing.T) {
	r, sink := newTestRegistry(t)
	id := mustMint(t, r, alice)
	before := len(sink.evs)

	err := r.Transfer(carol, alice, bob, id, TransferOptions{})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
	if owner, _ := r.OwnerOf(id); owner != alice {
		t.Errorf("owner changed on unauthorized transfer: %s", owner)
	}
	if len(sink.evs) != before {
		t.Errorf("unauthorized transfer emitted %d events", len(sink.evs)-before)
	}
	checkInvariants(t, r)
}

func TestTransfer_OwnerMismatch(t *testing.T) {
	r, _ := newTestRegistry(t)
	id := mustMint(t, r, alice)

	err := r.Transfer(alice, bob, carol, id, TransferOptions{})
	if !errors.Is(err, ErrOwnerMismatch) {
		t.Errorf("error = %v, want ErrOwnerMismatch", err)
	}
	if owner, _ := r.OwnerOf(id); owner != alice {
		t.Errorf("owner changed: %s", owner)
	}
}

func TestTransfer_ToNullAccount(t *testing.T) {
	r, _ := newTestRegistry(t)
	id := mustMint(t, r, alice)

	err := r.Transfer(alice, alice, types.Address{}, id, TransferOptions{})
	if !errors.Is(err, ErrInvalidAccount) {
		t.Errorf("error = %v, want ErrInvalidAccount", err)
	}
}

func TestTransfer_ToSelf(t *testing.T) {
	r, _ := newTestRegistry(t)
	id := mustMint(t, r, alice)

	if err := r.Transfer(alice, alice, alice, id, TransferOptions{}); err != nil {
		t.Fatalf("self transfer: %v", err)
	}
	if bal, _ := r.BalanceOf(alice); bal != 1 {
		t.Errorf("BalanceOf(alice) = %d, want 1", bal)
	}
	checkInvariants(t, r)
}

func TestTransfer_ClearsApproval(t *testing.T) {
	r, _ := newTestRegistry(t)
	id := mustMint(t, r, alice)

	if err := r.Approve(alice, bob, id); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if err := r.Transfer(bob, alice, carol, id, TransferOptions{}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if got, _ := r.GetApproved(id); !got.IsZero() {
		t.Errorf("approval survived transfer: %s", got)
	}
	// Bob's authority was consumed with the approval.
	err := r.Transfer(bob, carol, alice, id, TransferOptions{})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("stale delegate transfer error = %v, want ErrUnauthorized", err)
	}
}

// --- Safe Transfer Tests ---

func TestTransfer_Safe_PassiveHolder(t *testing.T) {
	// A safe transfer to a non-receiver skips the acknowledgment round-trip.
	oracle := &fakeOracle{receivers: map[types.Address]bool{}}
	ch := &fakeChannel{code: AckTokenReceived}
	sink := &memorySink{}
	r := New(Options{Oracle: oracle, Channel: ch, Events: sink})
	id := mustMint(t, r, alice)

	if err := r.Transfer(alice, alice, bob, id, TransferOptions{ExpectAck: true}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if len(ch.calls) != 0 {
		t.Errorf("channel called %d times for passive holder", len(ch.calls))
	}
	if owner, _ := r.OwnerOf(id); owner != bob {
		t.Errorf("OwnerOf = %s, want bob", owner)
	}
}

func TestTransfer_Safe_Acknowledged(t *testing.T) {
	oracle := &fakeOracle{receivers: map[types.Address]bool{bob: true}}
	ch := &fakeChannel{code: AckTokenReceived}
	sink := &memorySink{}
	r := New(Options{Oracle: oracle, Channel: ch, Events: sink})
	id := mustMint(t, r, alice)

	data := []byte("hello")
	if err := r.Transfer(alice, alice, bob, id, TransferOptions{ExpectAck: true, Data: data}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	if len(ch.calls) != 1 {
		t.Fatalf("channel called %d times, want 1", len(ch.calls))
	}
	got := ch.calls[0]
	if got.operator != alice || got.from != alice || got.to != bob || got.token != id {
		t.Errorf("delivery = %+v", got)
	}
	if string(got.data) != "hello" {
		t.Errorf("delivery data = %q", got.data)
	}
	if owner, _ := r.OwnerOf(id); owner != bob {
		t.Errorf("OwnerOf = %s, want bob", owner)
	}
	checkInvariants(t, r)
}

func TestTransfer_Safe_Rejected(t *testing.T) {
	oracle := &fakeOracle{receivers: map[types.Address]bool{bob: true}}
	ch := &fakeChannel{code: DeriveSelector("wrong()")}
	sink := &memorySink{}
	r := New(Options{Oracle: oracle, Channel: ch, Events: sink})
	id := mustMint(t, r, alice)
	before := len(sink.evs)

	err := r.Transfer(alice, alice, bob, id, TransferOptions{ExpectAck: true})
	if !errors.Is(err, ErrReceiverRejected) {
		t.Fatalf("error = %v, want ErrReceiverRejected", err)
	}
	if owner, _ := r.OwnerOf(id); owner != alice {
		t.Errorf("rejected transfer moved the token to %s", owner)
	}
	if got, _ := r.BalanceOf(bob); got != 0 {
		t.Errorf("BalanceOf(bob) = %d after rejection", got)
	}
	if len(sink.evs) != before {
		t.Errorf("rejected transfer emitted %d events", len(sink.evs)-before)
	}
	checkInvariants(t, r)
}

func TestTransfer_Safe_DeliveryError(t *testing.T) {
	oracle := &fakeOracle{receivers: map[types.Address]bool{bob: true}}
	ch := &fakeChannel{err: errors.New("connection refused")}
	r := New(Options{Oracle: oracle, Channel: ch, Events: &memorySink{}})
	id := mustMint(t, r, alice)

	err := r.Transfer(alice, alice, bob, id, TransferOptions{ExpectAck: true})
	if !errors.Is(err, ErrReceiverRejected) {
		t.Fatalf("error = %v, want ErrReceiverRejected", err)
	}
	if owner, _ := r.OwnerOf(id); owner != alice {
		t.Errorf("owner = %s after failed delivery", owner)
	}
}

func TestTransfer_Safe_NoChannel(t *testing.T) {
	// Active receiver but no delivery channel: the receiver is unreachable.
	oracle := &fakeOracle{receivers: map[types.Address]bool{bob: true}}
	r := New(Options{Oracle: oracle, Events: &memorySink{}})
	id := mustMint(t, r, alice)

	err := r.Transfer(alice, alice, bob, id, TransferOptions{ExpectAck: true})
	if !errors.Is(err, ErrReceiverRejected) {
		t.Errorf("error = %v, want ErrReceiverRejected", err)
	}
}

func TestTransfer_Unsafe_SkipsReceiver(t *testing.T) {
	// A plain transfer never consults the oracle or channel.
	oracle := &fakeOracle{receivers: map[types.Address]bool{bob: true}}
	ch := &fakeChannel{code: DeriveSelector("wrong()")}
	r := New(Options{Oracle: oracle, Channel: ch, Events: &memorySink{}})
	id := mustMint(t, r, alice)

	if err := r.Transfer(alice, alice, bob, id, TransferOptions{}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if len(ch.calls) != 0 {
		t.Errorf("channel called %d times", len(ch.calls))
	}
}

// --- Reentrancy Tests ---

func TestTransfer_Safe_ReentrantCommit(t *testing.T) {
	// The receiver callback performs its own transfer before acknowledging.
	// State must be consistent during the callback, and both operations
	// commit.
	oracle := &fakeOracle{receivers: map[types.Address]bool{bob: true}}
	sink := &memorySink{}
	ch := &fakeChannel{code: AckTokenReceived}
	r := New(Options{Oracle: oracle, Channel: ch, Events: sink})

	outer := mustMint(t, r, alice)
	inner := mustMint(t, r, bob)

	ch.onDeliver = func(d delivery) {
		// The outer transfer is already applied.
		if owner, _ := r.OwnerOf(d.token); owner != bob {
			t.Errorf("mid-callback owner = %s, want bob", owner)
		}
		if err := r.Transfer(bob, bob, carol, inner, TransferOptions{}); err != nil {
			t.Errorf("re-entrant transfer: %v", err)
		}
	}

	if err := r.Transfer(alice, alice, bob, outer, TransferOptions{ExpectAck: true}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if owner, _ := r.OwnerOf(outer); owner != bob {
		t.Errorf("outer token owner = %s, want bob", owner)
	}
	if owner, _ := r.OwnerOf(inner); owner != carol {
		t.Errorf("inner token owner = %s, want carol", owner)
	}
	checkInvariants(t, r)

	// Both transfers reached the sink, inner buffered inside the outer
	// operation.
	var transfers int
	for _, ev := range sink.evs {
		if !ev.IsMint() {
			transfers++
		}
	}
	if transfers != 2 {
		t.Errorf("sink holds %d transfer events, want 2", transfers)
	}
}

func TestTransfer_Safe_ReentrantRollback(t *testing.T) {
	// A rejected acknowledgment must undo the re-entrant call's effects too,
	// and none of the buffered events may reach the sink.
	oracle := &fakeOracle{receivers: map[types.Address]bool{bob: true}}
	sink := &memorySink{}
	ch := &fakeChannel{code: DeriveSelector("wrong()")}
	r := New(Options{Oracle: oracle, Channel: ch, Events: sink})

	outer := mustMint(t, r, alice)
	inner := mustMint(t, r, bob)
	before := len(sink.evs)

	ch.onDeliver = func(d delivery) {
		if err := r.Transfer(bob, bob, carol, inner, TransferOptions{}); err != nil {
			t.Errorf("re-entrant transfer: %v", err)
		}
	}

	err := r.Transfer(alice, alice, bob, outer, TransferOptions{ExpectAck: true})
	if !errors.Is(err, ErrReceiverRejected) {
		t.Fatalf("error = %v, want ErrReceiverRejected", err)
	}
	if owner, _ := r.OwnerOf(outer); owner != alice {
		t.Errorf("outer token owner = %s, want alice", owner)
	}
	if owner, _ := r.OwnerOf(inner); owner != bob {
		t.Errorf("inner token owner = %s, want bob (rolled back)", owner)
	}
	if len(sink.evs) != before {
		t.Errorf("rolled-back operation leaked %d events", len(sink.evs)-before)
	}
	checkInvariants(t, r)
}

// --- Sink Failure Tests ---

func TestTransfer_SinkFailureRollsBack(t *testing.T) {
	r, sink := newTestRegistry(t)
	id := mustMint(t, r, alice)

	sink.fail = true
	err := r.Transfer(alice, alice, bob, id, TransferOptions{})
	if err == nil {
		t.Fatal("expected error from failing sink")
	}
	if owner, _ := r.OwnerOf(id); owner != alice {
		t.Errorf("state diverged from log: owner = %s", owner)
	}
	checkInvariants(t, r)
}
