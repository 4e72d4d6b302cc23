package receiver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sigilnet/sigil/internal/registry"
	"github.com/sigilnet/sigil/internal/storage"
	"github.com/sigilnet/sigil/pkg/types"
)

func addr(b byte) types.Address {
	return types.Address{b}
}

// --- Directory Tests ---

func TestDirectory_RegisterLookup(t *testing.T) {
	dir := NewDirectory(storage.NewMemory())
	a := addr(1)

	if dir.IsReceiver(a) {
		t.Error("unregistered account classified as receiver")
	}
	if _, err := dir.Endpoint(a); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("Endpoint error = %v, want ErrNotRegistered", err)
	}

	if err := dir.Register(a, "http://127.0.0.1:9000/hook"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !dir.IsReceiver(a) {
		t.Error("registered account not classified as receiver")
	}
	got, err := dir.Endpoint(a)
	if err != nil {
		t.Fatalf("Endpoint: %v", err)
	}
	if got != "http://127.0.0.1:9000/hook" {
		t.Errorf("Endpoint = %q", got)
	}
}

func TestDirectory_RegisterReplaces(t *testing.T) {
	dir := NewDirectory(storage.NewMemory())
	a := addr(1)

	if err := dir.Register(a, "http://old.example/hook"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := dir.Register(a, "https://new.example/hook"); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	got, _ := dir.Endpoint(a)
	if got != "https://new.example/hook" {
		t.Errorf("Endpoint = %q, want replacement", got)
	}
}

func TestDirectory_RegisterValidation(t *testing.T) {
	dir := NewDirectory(storage.NewMemory())

	if err := dir.Register(types.Address{}, "http://x.example/"); err == nil {
		t.Error("null account accepted")
	}
	for _, bad := range []string{"", "not a url", "ftp://x.example/", "http://"} {
		if err := dir.Register(addr(1), bad); err == nil {
			t.Errorf("endpoint %q accepted", bad)
		}
	}
}

func TestDirectory_Unregister(t *testing.T) {
	dir := NewDirectory(storage.NewMemory())
	a := addr(1)

	if err := dir.Register(a, "http://x.example/hook"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := dir.Unregister(a); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if dir.IsReceiver(a) {
		t.Error("unregistered account still classified as receiver")
	}
	// Unregistering again is a no-op.
	if err := dir.Unregister(a); err != nil {
		t.Errorf("repeat Unregister: %v", err)
	}
}

func TestDirectory_List(t *testing.T) {
	dir := NewDirectory(storage.NewMemory())

	regs, err := dir.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(regs) != 0 {
		t.Errorf("empty directory lists %d entries", len(regs))
	}

	for i := byte(3); i >= 1; i-- {
		if err := dir.Register(addr(i), fmt.Sprintf("http://r%d.example/hook", i)); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	regs, err = dir.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(regs) != 3 {
		t.Fatalf("List returned %d entries, want 3", len(regs))
	}
	for i, reg := range regs {
		if reg.Address != addr(byte(i+1)) {
			t.Errorf("entry %d address = %s, want sorted order", i, reg.Address)
		}
	}
}

// --- Channel Tests ---

// ackServer runs an httptest receiver endpoint answering with the given
// code, recording the last notification.
func ackServer(t *testing.T, code string) (*httptest.Server, *notification) {
	t.Helper()
	var last notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&last); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(ackResponse{Code: code})
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func TestChannel_Deliver(t *testing.T) {
	srv, last := ackServer(t, registry.AckTokenReceived.String())

	db := storage.NewMemory()
	dir := NewDirectory(db)
	to := addr(2)
	if err := dir.Register(to, srv.URL); err != nil {
		t.Fatalf("Register: %v", err)
	}

	ch := NewChannel(dir, 2*time.Second)
	code, err := ch.Deliver(addr(1), addr(1), to, types.NewTokenID(7), []byte("payload"))
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if code != registry.AckTokenReceived {
		t.Errorf("code = %s, want %s", code, registry.AckTokenReceived)
	}
	if last.Operator != addr(1) || last.To != to {
		t.Errorf("notification = %+v", last)
	}
	if last.Token.Uint64() != 7 {
		t.Errorf("notification token = %s, want 7", last.Token)
	}
	if string(last.Data) != "payload" {
		t.Errorf("notification data = %q", last.Data)
	}
}

func TestChannel_WrongCodePassedThrough(t *testing.T) {
	// The channel reports whatever code the receiver returned; rejecting
	// it is the registry's call.
	wrong := registry.DeriveSelector("unexpected()")
	srv, _ := ackServer(t, wrong.String())

	dir := NewDirectory(storage.NewMemory())
	to := addr(2)
	if err := dir.Register(to, srv.URL); err != nil {
		t.Fatalf("Register: %v", err)
	}

	code, err := NewChannel(dir, 2*time.Second).Deliver(addr(1), addr(1), to, types.NewTokenID(1), nil)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if code != wrong {
		t.Errorf("code = %s, want %s", code, wrong)
	}
}

func TestChannel_Failures(t *testing.T) {
	dir := NewDirectory(storage.NewMemory())
	ch := NewChannel(dir, 2*time.Second)
	to := addr(2)

	// Unregistered destination.
	if _, err := ch.Deliver(addr(1), addr(1), to, types.NewTokenID(1), nil); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("error = %v, want ErrNotRegistered", err)
	}

	// Endpoint answers with a non-200 status.
	srv500 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv500.Close)
	if err := dir.Register(to, srv500.URL); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := ch.Deliver(addr(1), addr(1), to, types.NewTokenID(1), nil); err == nil {
		t.Error("500 response accepted")
	}

	// Endpoint answers with garbage.
	srvBad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json")
	}))
	t.Cleanup(srvBad.Close)
	if err := dir.Register(to, srvBad.URL); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := ch.Deliver(addr(1), addr(1), to, types.NewTokenID(1), nil); err == nil {
		t.Error("non-JSON response accepted")
	}

	// Endpoint answers with a malformed code.
	srvCode := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ackResponse{Code: "xyz"})
	}))
	t.Cleanup(srvCode.Close)
	if err := dir.Register(to, srvCode.URL); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := ch.Deliver(addr(1), addr(1), to, types.NewTokenID(1), nil); err == nil {
		t.Error("malformed code accepted")
	}

	// Endpoint unreachable.
	if err := dir.Register(to, "http://127.0.0.1:1/hook"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := ch.Deliver(addr(1), addr(1), to, types.NewTokenID(1), nil); err == nil {
		t.Error("unreachable endpoint accepted")
	}
}

// TestChannel_EndToEnd exercises the full safe-transfer loop: registry,
// directory and a live HTTP receiver.
func TestChannel_EndToEnd(t *testing.T) {
	srv, _ := ackServer(t, registry.AckTokenReceived.String())

	dir := NewDirectory(storage.NewMemory())
	ch := NewChannel(dir, 2*time.Second)
	r := registry.New(registry.Options{Oracle: dir, Channel: ch})

	owner := addr(1)
	receiverAcct := addr(2)
	if err := dir.Register(receiverAcct, srv.URL); err != nil {
		t.Fatalf("Register: %v", err)
	}

	id, err := r.Mint(owner, owner, registry.MintOptions{})
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := r.Transfer(owner, owner, receiverAcct, id, registry.TransferOptions{ExpectAck: true}); err != nil {
		t.Fatalf("safe transfer: %v", err)
	}
	got, err := r.OwnerOf(id)
	if err != nil {
		t.Fatalf("OwnerOf: %v", err)
	}
	if got != receiverAcct {
		t.Errorf("OwnerOf = %s, want receiver", got)
	}
}
