package rpc

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/sigilnet/sigil/internal/receiver"
	"github.com/sigilnet/sigil/internal/registry"
	"github.com/sigilnet/sigil/pkg/types"
)

// parseAddr decodes a required address parameter.
func parseAddr(field, value string) (types.Address, *Error) {
	if value == "" {
		return types.Address{}, &Error{Code: CodeInvalidParams, Message: field + " is required"}
	}
	addr, err := types.ParseAddress(value)
	if err != nil {
		return types.Address{}, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid %s: %v", field, err)}
	}
	return addr, nil
}

// parseOptionalAddr decodes an address parameter where empty means the
// null address.
func parseOptionalAddr(field, value string) (types.Address, *Error) {
	if value == "" {
		return types.Address{}, nil
	}
	return parseAddr(field, value)
}

// parseToken decodes a decimal token ID parameter.
func parseToken(value string) (types.TokenID, *Error) {
	if value == "" {
		return types.TokenID{}, &Error{Code: CodeInvalidParams, Message: "token is required"}
	}
	id, err := types.ParseTokenID(value)
	if err != nil {
		return types.TokenID{}, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid token: %v", err)}
	}
	return id, nil
}

// domainError maps registry sentinel errors onto JSON-RPC error codes.
func domainError(err error) *Error {
	code := CodeInternalError
	switch {
	case errors.Is(err, registry.ErrTokenNotFound):
		code = CodeNotFound
	case errors.Is(err, registry.ErrUnauthorized):
		code = CodeUnauthorized
	case errors.Is(err, registry.ErrReceiverRejected):
		code = CodeRejected
	case errors.Is(err, registry.ErrBootstrapped), errors.Is(err, registry.ErrTokenExists):
		code = CodeConflict
	case errors.Is(err, registry.ErrInvalidAccount),
		errors.Is(err, registry.ErrSelfApproval),
		errors.Is(err, registry.ErrOwnerMismatch):
		code = CodeInvalidParams
	}
	return &Error{Code: code, Message: err.Error()}
}

// ── Query endpoints ─────────────────────────────────────────────────────

func (s *Server) handleBalanceOf(req *Request) (interface{}, *Error) {
	var params AccountParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr, rpcErr := parseAddr("account", params.Account)
	if rpcErr != nil {
		return nil, rpcErr
	}
	bal, err := s.reg.BalanceOf(addr)
	if err != nil {
		return nil, domainError(err)
	}
	return &BalanceResult{Account: addr.String(), Balance: bal}, nil
}

func (s *Server) handleOwnerOf(req *Request) (interface{}, *Error) {
	var params TokenParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	id, rpcErr := parseToken(params.Token)
	if rpcErr != nil {
		return nil, rpcErr
	}
	owner, err := s.reg.OwnerOf(id)
	if err != nil {
		return nil, domainError(err)
	}
	return &OwnerResult{Token: id.String(), Owner: owner.String()}, nil
}

func (s *Server) handleGetApproved(req *Request) (interface{}, *Error) {
	var params TokenParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	id, rpcErr := parseToken(params.Token)
	if rpcErr != nil {
		return nil, rpcErr
	}
	delegate, err := s.reg.GetApproved(id)
	if err != nil {
		return nil, domainError(err)
	}
	res := &ApprovedResult{Token: id.String()}
	if !delegate.IsZero() {
		res.Delegate = delegate.String()
	}
	return res, nil
}

func (s *Server) handleIsApprovedForAll(req *Request) (interface{}, *Error) {
	var params OperatorQueryParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	owner, rpcErr := parseAddr("owner", params.Owner)
	if rpcErr != nil {
		return nil, rpcErr
	}
	operator, rpcErr := parseAddr("operator", params.Operator)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return &OperatorResult{
		Owner:    owner.String(),
		Operator: operator.String(),
		Approved: s.reg.IsApprovedForAll(owner, operator),
	}, nil
}

func (s *Server) handleTokenURI(req *Request) (interface{}, *Error) {
	var params TokenParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	id, rpcErr := parseToken(params.Token)
	if rpcErr != nil {
		return nil, rpcErr
	}
	uri, err := s.reg.TokenURI(id)
	if err != nil {
		return nil, domainError(err)
	}
	return &TokenURIResult{Token: id.String(), URI: uri}, nil
}

func (s *Server) handleSupportsCapability(req *Request) (interface{}, *Error) {
	var params CapabilityParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	sel, err := registry.ParseSelector(params.Capability)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid capability: %v", err)}
	}
	return &CapabilityResult{
		Capability: sel.String(),
		Supported:  registry.SupportsCapability(sel),
	}, nil
}

func (s *Server) handleRegistryGetInfo(req *Request) (interface{}, *Error) {
	info := &RegistryInfoResult{
		Name:          s.reg.Name(),
		Symbol:        s.reg.Symbol(),
		TotalSupply:   s.reg.TotalSupply(),
		LastID:        s.reg.LastID().String(),
		AdminOnlyMint: s.adminOnlyMint,
	}
	if admin := s.reg.Admin(); !admin.IsZero() {
		info.Admin = admin.String()
	}
	if s.log != nil {
		info.Events = s.log.Len()
	}
	return info, nil
}

func (s *Server) handleRegistryGetAdmin(req *Request) (interface{}, *Error) {
	res := &AdminResult{}
	if admin := s.reg.Admin(); !admin.IsZero() {
		res.Admin = admin.String()
		res.Initialized = true
	}
	return res, nil
}

func (s *Server) handleEventsList(req *Request) (interface{}, *Error) {
	if s.log == nil {
		return nil, &Error{Code: CodeNotFound, Message: "event log not enabled"}
	}
	var params EventsListParam
	if req.Params != nil {
		if err := parseParams(req, &params); err != nil {
			return nil, err
		}
	}
	evs, err := s.log.List(params.From, params.Limit)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return evs, nil
}

func (s *Server) handleReceiverList(req *Request) (interface{}, *Error) {
	if s.dir == nil {
		return nil, &Error{Code: CodeNotFound, Message: "receiver directory not enabled"}
	}
	regs, err := s.dir.List()
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	if regs == nil {
		regs = []receiver.Registration{}
	}
	return regs, nil
}

// ── Mutation endpoints ──────────────────────────────────────────────────

func (s *Server) handleApprove(req *Request) (interface{}, *Error) {
	var params ApproveParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAddr("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	delegate, rpcErr := parseOptionalAddr("delegate", params.Delegate)
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := parseToken(params.Token)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := s.checkAuth(caller, params.Auth, "nft_approve",
		params.Caller, params.Delegate, params.Token); rpcErr != nil {
		return nil, rpcErr
	}

	if err := s.reg.Approve(caller, delegate, id); err != nil {
		return nil, domainError(err)
	}
	return &AckResult{OK: true}, nil
}

func (s *Server) handleSetApprovalForAll(req *Request) (interface{}, *Error) {
	var params SetApprovalForAllParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAddr("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	operator, rpcErr := parseAddr("operator", params.Operator)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := s.checkAuth(caller, params.Auth, "nft_setApprovalForAll",
		params.Caller, params.Operator, strconv.FormatBool(params.Approved)); rpcErr != nil {
		return nil, rpcErr
	}

	if err := s.reg.SetApprovalForAll(caller, operator, params.Approved); err != nil {
		return nil, domainError(err)
	}
	return &AckResult{OK: true}, nil
}

func (s *Server) handleTransfer(req *Request, safe bool) (interface{}, *Error) {
	var params TransferParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAddr("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	from, rpcErr := parseAddr("from", params.From)
	if rpcErr != nil {
		return nil, rpcErr
	}
	to, rpcErr := parseAddr("to", params.To)
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := parseToken(params.Token)
	if rpcErr != nil {
		return nil, rpcErr
	}
	method := "nft_transfer"
	if safe {
		method = "nft_safeTransfer"
	}
	if rpcErr := s.checkAuth(caller, params.Auth, method,
		params.Caller, params.From, params.To, params.Token); rpcErr != nil {
		return nil, rpcErr
	}

	opts := registry.TransferOptions{ExpectAck: safe, Data: params.Data}
	if err := s.reg.Transfer(caller, from, to, id, opts); err != nil {
		return nil, domainError(err)
	}
	return &AckResult{OK: true}, nil
}

func (s *Server) handleMint(req *Request) (interface{}, *Error) {
	var params MintParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAddr("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	to, rpcErr := parseAddr("to", params.To)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := s.checkAuth(caller, params.Auth, "nft_mint",
		params.Caller, params.To); rpcErr != nil {
		return nil, rpcErr
	}

	opts := registry.MintOptions{
		AdminOnly: s.adminOnlyMint,
		Data:      params.Data,
	}
	id, err := s.reg.Mint(caller, to, opts)
	if err != nil {
		return nil, domainError(err)
	}
	return &MintResult{Token: id.String(), Owner: to.String()}, nil
}

func (s *Server) handleBurn(req *Request) (interface{}, *Error) {
	var params BurnParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAddr("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := parseToken(params.Token)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := s.checkAuth(caller, params.Auth, "nft_burn",
		params.Caller, params.Token); rpcErr != nil {
		return nil, rpcErr
	}

	if err := s.reg.Burn(caller, id); err != nil {
		return nil, domainError(err)
	}
	return &AckResult{OK: true}, nil
}

func (s *Server) handleRegistryBootstrap(req *Request) (interface{}, *Error) {
	var params BootstrapParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	admin, rpcErr := parseAddr("admin", params.Admin)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.reg.Bootstrap(admin); err != nil {
		return nil, domainError(err)
	}
	return &AdminResult{Admin: admin.String(), Initialized: true}, nil
}

func (s *Server) handleRegistrySetAdmin(req *Request) (interface{}, *Error) {
	var params SetAdminParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	caller, rpcErr := parseAddr("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	admin, rpcErr := parseAddr("admin", params.Admin)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := s.checkAuth(caller, params.Auth, "registry_setAdmin",
		params.Caller, params.Admin); rpcErr != nil {
		return nil, rpcErr
	}

	if err := s.reg.SetAdmin(caller, admin); err != nil {
		return nil, domainError(err)
	}
	return &AdminResult{Admin: admin.String(), Initialized: true}, nil
}

func (s *Server) handleReceiverRegister(req *Request) (interface{}, *Error) {
	if s.dir == nil {
		return nil, &Error{Code: CodeNotFound, Message: "receiver directory not enabled"}
	}
	var params ReceiverRegisterParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr, rpcErr := parseAddr("address", params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.dir.Register(addr, params.Endpoint); err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	return &AckResult{OK: true}, nil
}

func (s *Server) handleReceiverUnregister(req *Request) (interface{}, *Error) {
	if s.dir == nil {
		return nil, &Error{Code: CodeNotFound, Message: "receiver directory not enabled"}
	}
	var params AccountParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr, rpcErr := parseAddr("account", params.Account)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.dir.Unregister(addr); err != nil {
		return nil, &Error{Code: CodeInternalError, Message: err.Error()}
	}
	return &AckResult{OK: true}, nil
}
