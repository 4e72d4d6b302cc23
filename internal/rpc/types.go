package rpc

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
	CodeUnauthorized   = -32001
	CodeRejected       = -32002
	CodeConflict       = -32003
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// Auth carries an optional Schnorr signature over a mutation request.
// The pubkey must hash to the caller address.
type Auth struct {
	PubKey    string `json:"pubkey"`    // 33-byte compressed, hex
	Signature string `json:"signature"` // 64-byte Schnorr, hex
}

// AccountParam is used by endpoints that take a single account address.
type AccountParam struct {
	Account string `json:"account"`
}

// TokenParam is used by endpoints that take a single token ID.
type TokenParam struct {
	Token string `json:"token"`
}

// OperatorQueryParam is used by nft_isApprovedForAll.
type OperatorQueryParam struct {
	Owner    string `json:"owner"`
	Operator string `json:"operator"`
}

// CapabilityParam is used by nft_supportsCapability.
type CapabilityParam struct {
	Capability string `json:"capability"` // 4-byte selector, hex
}

// ApproveParam is used by nft_approve.
type ApproveParam struct {
	Caller   string `json:"caller"`
	Delegate string `json:"delegate"`
	Token    string `json:"token"`
	Auth     *Auth  `json:"auth,omitempty"`
}

// SetApprovalForAllParam is used by nft_setApprovalForAll.
type SetApprovalForAllParam struct {
	Caller   string `json:"caller"`
	Operator string `json:"operator"`
	Approved bool   `json:"approved"`
	Auth     *Auth  `json:"auth,omitempty"`
}

// TransferParam is used by nft_transfer and nft_safeTransfer.
type TransferParam struct {
	Caller string `json:"caller"`
	From   string `json:"from"`
	To     string `json:"to"`
	Token  string `json:"token"`
	Data   []byte `json:"data,omitempty"`
	Auth   *Auth  `json:"auth,omitempty"`
}

// MintParam is used by nft_mint.
type MintParam struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
	Data   []byte `json:"data,omitempty"`
	Auth   *Auth  `json:"auth,omitempty"`
}

// BurnParam is used by nft_burn.
type BurnParam struct {
	Caller string `json:"caller"`
	Token  string `json:"token"`
	Auth   *Auth  `json:"auth,omitempty"`
}

// BootstrapParam is used by registry_bootstrap.
type BootstrapParam struct {
	Admin string `json:"admin"`
}

// SetAdminParam is used by registry_setAdmin.
type SetAdminParam struct {
	Caller string `json:"caller"`
	Admin  string `json:"admin"`
	Auth   *Auth  `json:"auth,omitempty"`
}

// ReceiverRegisterParam is used by receiver_register.
type ReceiverRegisterParam struct {
	Address  string `json:"address"`
	Endpoint string `json:"endpoint"`
}

// EventsListParam is used by events_list.
type EventsListParam struct {
	From  uint64 `json:"from"`
	Limit uint64 `json:"limit"`
}

// ── Result types ────────────────────────────────────────────────────────

// RegistryInfoResult is returned by registry_getInfo.
type RegistryInfoResult struct {
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	TotalSupply   uint64 `json:"total_supply"`
	LastID        string `json:"last_id"`
	Admin         string `json:"admin,omitempty"`
	Events        uint64 `json:"events"`
	AdminOnlyMint bool   `json:"admin_only_mint"`
}

// BalanceResult is returned by nft_balanceOf.
type BalanceResult struct {
	Account string `json:"account"`
	Balance uint64 `json:"balance"`
}

// OwnerResult is returned by nft_ownerOf.
type OwnerResult struct {
	Token string `json:"token"`
	Owner string `json:"owner"`
}

// ApprovedResult is returned by nft_getApproved.
type ApprovedResult struct {
	Token    string `json:"token"`
	Delegate string `json:"delegate,omitempty"`
}

// OperatorResult is returned by nft_isApprovedForAll.
type OperatorResult struct {
	Owner    string `json:"owner"`
	Operator string `json:"operator"`
	Approved bool   `json:"approved"`
}

// TokenURIResult is returned by nft_tokenUri.
type TokenURIResult struct {
	Token string `json:"token"`
	URI   string `json:"uri"`
}

// CapabilityResult is returned by nft_supportsCapability.
type CapabilityResult struct {
	Capability string `json:"capability"`
	Supported  bool   `json:"supported"`
}

// MintResult is returned by nft_mint.
type MintResult struct {
	Token string `json:"token"`
	Owner string `json:"owner"`
}

// AckResult is returned by mutation endpoints.
type AckResult struct {
	OK bool `json:"ok"`
}

// AdminResult is returned by registry_getAdmin.
type AdminResult struct {
	Admin       string `json:"admin,omitempty"`
	Initialized bool   `json:"initialized"`
}
