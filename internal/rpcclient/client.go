// Package rpcclient provides a JSON-RPC 2.0 client for sigil registry
// nodes, with typed helpers for every registry method.
package rpcclient

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sigilnet/sigil/internal/events"
	"github.com/sigilnet/sigil/internal/receiver"
	"github.com/sigilnet/sigil/internal/rpc"
	"github.com/sigilnet/sigil/pkg/crypto"
)

// Client is a JSON-RPC 2.0 HTTP client. When a signing key is set,
// mutation requests carry a Schnorr signature over the request fields.
type Client struct {
	endpoint string
	http     *http.Client
	key      *crypto.PrivateKey
}

// New creates a new RPC client targeting the given endpoint URL.
func New(endpoint string) *Client {
	return NewWithTimeout(endpoint, 10*time.Second)
}

// NewWithTimeout creates a new RPC client with a custom HTTP timeout.
// Safe transfers block on the receiver acknowledgment, so callers that
// issue them should allow more than the default.
func NewWithTimeout(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetKey attaches a signing key. Subsequent mutations are signed and
// the caller address must match the key.
func (c *Client) SetKey(key *crypto.PrivateKey) {
	c.key = key
}

// request is a JSON-RPC 2.0 request.
type request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      int         `json:"id"`
}

// response is a JSON-RPC 2.0 response.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      int             `json:"id"`
}

// rpcError is a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RPCError is returned when the server responds with an error.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Call invokes a JSON-RPC method and unmarshals the result into the
// provided pointer. If result is nil, the response result is discarded.
func (c *Client) Call(method string, params, result interface{}) error {
	req := request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.http.Post(c.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var rpcResp response
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if rpcResp.Error != nil {
		return &RPCError{
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
		}
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}

	return nil
}

// sign produces an Auth for a mutation, or nil when no key is set.
func (c *Client) sign(method string, fields ...string) (*rpc.Auth, error) {
	if c.key == nil {
		return nil, nil
	}
	sig, err := c.key.Sign(rpc.SigningDigest(method, fields...))
	if err != nil {
		return nil, fmt.Errorf("sign %s: %w", method, err)
	}
	return &rpc.Auth{
		PubKey:    hex.EncodeToString(c.key.PublicKey()),
		Signature: hex.EncodeToString(sig),
	}, nil
}

// --- Query Methods ---

// RegistryInfo returns the collection name, symbol, and supply counters.
func (c *Client) RegistryInfo() (*rpc.RegistryInfoResult, error) {
	var res rpc.RegistryInfoResult
	if err := c.Call("registry_getInfo", struct{}{}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Admin returns the registry admin account, if bootstrapped.
func (c *Client) Admin() (*rpc.AdminResult, error) {
	var res rpc.AdminResult
	if err := c.Call("registry_getAdmin", struct{}{}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// BalanceOf returns the number of tokens an account holds.
func (c *Client) BalanceOf(account string) (uint64, error) {
	var res rpc.BalanceResult
	if err := c.Call("nft_balanceOf", rpc.AccountParam{Account: account}, &res); err != nil {
		return 0, err
	}
	return res.Balance, nil
}

// OwnerOf returns the owner of a token.
func (c *Client) OwnerOf(token string) (string, error) {
	var res rpc.OwnerResult
	if err := c.Call("nft_ownerOf", rpc.TokenParam{Token: token}, &res); err != nil {
		return "", err
	}
	return res.Owner, nil
}

// GetApproved returns the delegate approved for a token, or the empty
// string when none is set.
func (c *Client) GetApproved(token string) (string, error) {
	var res rpc.ApprovedResult
	if err := c.Call("nft_getApproved", rpc.TokenParam{Token: token}, &res); err != nil {
		return "", err
	}
	return res.Delegate, nil
}

// IsApprovedForAll reports whether operator may act on all of owner's
// tokens.
func (c *Client) IsApprovedForAll(owner, operator string) (bool, error) {
	var res rpc.OperatorResult
	if err := c.Call("nft_isApprovedForAll", rpc.OperatorQueryParam{Owner: owner, Operator: operator}, &res); err != nil {
		return false, err
	}
	return res.Approved, nil
}

// TokenURI returns the metadata URI for a token.
func (c *Client) TokenURI(token string) (string, error) {
	var res rpc.TokenURIResult
	if err := c.Call("nft_tokenUri", rpc.TokenParam{Token: token}, &res); err != nil {
		return "", err
	}
	return res.URI, nil
}

// SupportsCapability reports whether the registry implements the
// capability named by an 8-character hex selector.
func (c *Client) SupportsCapability(capability string) (bool, error) {
	var res rpc.CapabilityResult
	if err := c.Call("nft_supportsCapability", rpc.CapabilityParam{Capability: capability}, &res); err != nil {
		return false, err
	}
	return res.Supported, nil
}

// Events returns committed events starting at sequence from. A limit of
// zero returns everything.
func (c *Client) Events(from, limit uint64) ([]events.Event, error) {
	var res []events.Event
	if err := c.Call("events_list", rpc.EventsListParam{From: from, Limit: limit}, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// Receivers lists registered active receivers.
func (c *Client) Receivers() ([]receiver.Registration, error) {
	var res []receiver.Registration
	if err := c.Call("receiver_list", struct{}{}, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// --- Mutation Methods ---

// Approve sets delegate as the approved account for a token. An empty
// delegate clears the approval.
func (c *Client) Approve(caller, delegate, token string) error {
	auth, err := c.sign("nft_approve", caller, delegate, token)
	if err != nil {
		return err
	}
	return c.Call("nft_approve", rpc.ApproveParam{
		Caller: caller, Delegate: delegate, Token: token, Auth: auth,
	}, nil)
}

// SetApprovalForAll grants or revokes operator over every token caller
// owns.
func (c *Client) SetApprovalForAll(caller, operator string, approved bool) error {
	auth, err := c.sign("nft_setApprovalForAll", caller, operator, fmt.Sprintf("%t", approved))
	if err != nil {
		return err
	}
	return c.Call("nft_setApprovalForAll", rpc.SetApprovalForAllParam{
		Caller: caller, Operator: operator, Approved: approved, Auth: auth,
	}, nil)
}

// Transfer moves a token from one account to another without the
// receiver acknowledgment round-trip.
func (c *Client) Transfer(caller, from, to, token string) error {
	auth, err := c.sign("nft_transfer", caller, from, to, token)
	if err != nil {
		return err
	}
	return c.Call("nft_transfer", rpc.TransferParam{
		Caller: caller, From: from, To: to, Token: token, Auth: auth,
	}, nil)
}

// SafeTransfer moves a token and requires an acknowledgment when the
// destination is an active receiver.
func (c *Client) SafeTransfer(caller, from, to, token string, data []byte) error {
	auth, err := c.sign("nft_safeTransfer", caller, from, to, token)
	if err != nil {
		return err
	}
	return c.Call("nft_safeTransfer", rpc.TransferParam{
		Caller: caller, From: from, To: to, Token: token, Data: data, Auth: auth,
	}, nil)
}

// Mint creates the next sequentially numbered token for to. Minting
// always runs the receiver acknowledgment round-trip; data is the
// payload forwarded to an active receiver.
func (c *Client) Mint(caller, to string, data []byte) (*rpc.MintResult, error) {
	auth, err := c.sign("nft_mint", caller, to)
	if err != nil {
		return nil, err
	}
	var res rpc.MintResult
	if err := c.Call("nft_mint", rpc.MintParam{Caller: caller, To: to, Data: data, Auth: auth}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Burn destroys a token. Its ID is never reused.
func (c *Client) Burn(caller, token string) error {
	auth, err := c.sign("nft_burn", caller, token)
	if err != nil {
		return err
	}
	return c.Call("nft_burn", rpc.BurnParam{Caller: caller, Token: token, Auth: auth}, nil)
}

// Bootstrap claims the one-time admin slot.
func (c *Client) Bootstrap(admin string) error {
	return c.Call("registry_bootstrap", rpc.BootstrapParam{Admin: admin}, nil)
}

// SetAdmin hands the admin role to another account.
func (c *Client) SetAdmin(caller, admin string) error {
	auth, err := c.sign("registry_setAdmin", caller, admin)
	if err != nil {
		return err
	}
	return c.Call("registry_setAdmin", rpc.SetAdminParam{Caller: caller, Admin: admin, Auth: auth}, nil)
}

// RegisterReceiver marks an account as an active receiver reachable at
// an HTTP endpoint.
func (c *Client) RegisterReceiver(address, endpoint string) error {
	return c.Call("receiver_register", rpc.ReceiverRegisterParam{Address: address, Endpoint: endpoint}, nil)
}

// UnregisterReceiver reverts an account to a passive holder.
func (c *Client) UnregisterReceiver(address string) error {
	return c.Call("receiver_unregister", rpc.AccountParam{Account: address}, nil)
}
