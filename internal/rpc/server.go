// Package rpc implements the JSON-RPC 2.0 API server for the registry.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sigilnet/sigil/config"
	"github.com/sigilnet/sigil/internal/events"
	klog "github.com/sigilnet/sigil/internal/log"
	"github.com/sigilnet/sigil/internal/receiver"
	"github.com/sigilnet/sigil/internal/registry"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// Server is the JSON-RPC 2.0 HTTP server.
//
// The registry is guarded by mu: mutations take the write lock, queries
// the read lock. The write lock is held across the receiver
// acknowledgment round-trip, so no query or interleaved mutation can
// observe an applied-but-unacknowledged operation that may still roll
// back. Re-entrant registry calls happen in-process through the
// acknowledgment channel, never back through this server.
type Server struct {
	addr          string
	reg           *registry.Registry
	log           *events.Log
	dir           *receiver.Directory // nil = receiver endpoints disabled
	adminOnlyMint bool
	requireSigned bool
	server        *http.Server
	logger        zerolog.Logger
	ln            net.Listener
	allowedNets   []*net.IPNet // Empty = allow all.
	corsOrigins   []string     // Empty = no CORS headers.

	mu sync.RWMutex
}

// New creates a new RPC server. The rpcCfg parameter controls IP
// filtering, CORS, and signature requirements. A zero-value RPCConfig
// allows all IPs, disables CORS, and trusts unsigned callers.
func New(addr string, reg *registry.Registry, eventLog *events.Log, rpcCfg ...config.RPCConfig) *Server {
	s := &Server{
		addr:   addr,
		reg:    reg,
		log:    eventLog,
		logger: klog.RPC,
	}

	if len(rpcCfg) > 0 {
		s.allowedNets = parseAllowedIPs(rpcCfg[0].AllowedIPs)
		s.corsOrigins = rpcCfg[0].CORSOrigins
		s.requireSigned = rpcCfg[0].RequireSigned
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRequest)

	s.server = &http.Server{
		Handler:     mux,
		ReadTimeout: 30 * time.Second,
		// Safe transfers block on the receiver acknowledgment round-trip.
		WriteTimeout: 2 * time.Minute,
	}

	return s
}

// SetReceiverDirectory enables the receiver_* endpoints.
func (s *Server) SetReceiverDirectory(dir *receiver.Directory) {
	s.dir = dir
}

// SetAdminOnlyMint restricts nft_mint to the registry admin.
func (s *Server) SetAdminOnlyMint(v bool) {
	s.adminOnlyMint = v
}

// parseAllowedIPs converts string IP/CIDR entries into net.IPNet.
func parseAllowedIPs(entries []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, entry := range entries {
		_, ipNet, err := net.ParseCIDR(entry)
		if err == nil {
			nets = append(nets, ipNet)
			continue
		}
		// Try as a single IP (add /32 or /128).
		ip := net.ParseIP(entry)
		if ip == nil {
			continue
		}
		bits := 32
		if ip.To4() == nil {
			bits = 128
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets
}

// Start begins listening and serving in a background goroutine.
// It returns immediately after the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("rpc listen: %w", err)
	}
	s.ln = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("RPC server error")
		}
	}()

	return nil
}

// Addr returns the listener address (useful when bound to :0).
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// handleRequest is the main HTTP handler for JSON-RPC requests.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	// IP filtering.
	if len(s.allowedNets) > 0 {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		ip := net.ParseIP(host)
		if ip == nil || !s.isIPAllowed(ip) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}

	// CORS headers.
	s.setCORSHeaders(w, r)

	// Handle CORS preflight.
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, nil, CodeInvalidRequest, "only POST method is allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		writeError(w, nil, CodeParseError, "failed to read request body")
		return
	}
	if len(body) > maxBodySize {
		writeError(w, nil, CodeInvalidRequest, "request body too large")
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, nil, CodeParseError, "invalid JSON")
		return
	}

	if req.JSONRPC != "2.0" {
		writeError(w, req.ID, CodeInvalidRequest, "jsonrpc must be \"2.0\"")
		return
	}

	result, rpcErr := s.dispatch(&req)
	if rpcErr != nil {
		writeJSON(w, Response{
			JSONRPC: "2.0",
			Error:   rpcErr,
			ID:      req.ID,
		})
		return
	}

	writeJSON(w, Response{
		JSONRPC: "2.0",
		Result:  result,
		ID:      req.ID,
	})
}

// dispatch routes a request to the appropriate handler. Queries share
// the read lock; mutations serialize under the write lock, which stays
// held across the receiver acknowledgment round-trip so queries only
// ever see committed state.
func (s *Server) dispatch(req *Request) (interface{}, *Error) {
	if h := s.queryHandler(req.Method); h != nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return h(req)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.Method {
	case "nft_approve":
		return s.handleApprove(req)
	case "nft_setApprovalForAll":
		return s.handleSetApprovalForAll(req)
	case "nft_transfer":
		return s.handleTransfer(req, false)
	case "nft_safeTransfer":
		return s.handleTransfer(req, true)
	case "nft_mint":
		return s.handleMint(req)
	case "nft_burn":
		return s.handleBurn(req)
	case "registry_bootstrap":
		return s.handleRegistryBootstrap(req)
	case "registry_setAdmin":
		return s.handleRegistrySetAdmin(req)
	case "receiver_register":
		return s.handleReceiverRegister(req)
	case "receiver_unregister":
		return s.handleReceiverUnregister(req)
	default:
		return nil, &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("method %q not found", req.Method)}
	}
}

// queryHandler returns the handler for a read-only method, or nil for
// mutations and unknown methods.
func (s *Server) queryHandler(method string) func(*Request) (interface{}, *Error) {
	switch method {
	case "nft_balanceOf":
		return s.handleBalanceOf
	case "nft_ownerOf":
		return s.handleOwnerOf
	case "nft_getApproved":
		return s.handleGetApproved
	case "nft_isApprovedForAll":
		return s.handleIsApprovedForAll
	case "nft_tokenUri":
		return s.handleTokenURI
	case "nft_supportsCapability":
		return s.handleSupportsCapability
	case "registry_getInfo":
		return s.handleRegistryGetInfo
	case "registry_getAdmin":
		return s.handleRegistryGetAdmin
	case "events_list":
		return s.handleEventsList
	case "receiver_list":
		return s.handleReceiverList
	}
	return nil
}

// writeJSON writes a JSON-RPC response.
func writeJSON(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// writeError writes a JSON-RPC error response.
func writeError(w http.ResponseWriter, id interface{}, code int, message string) {
	writeJSON(w, Response{
		JSONRPC: "2.0",
		Error:   &Error{Code: code, Message: message},
		ID:      id,
	})
}

// isIPAllowed checks if the IP is in the allowed networks list.
func (s *Server) isIPAllowed(ip net.IP) bool {
	for _, n := range s.allowedNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// setCORSHeaders adds CORS headers based on the configured origins.
func (s *Server) setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	if len(s.corsOrigins) == 0 {
		return
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}

	// Check if origin is allowed.
	allowed := false
	for _, o := range s.corsOrigins {
		if o == "*" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			allowed = true
			break
		}
		if o == origin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			allowed = true
			break
		}
	}

	if allowed {
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	}
}

// parseParams unmarshals the request params into the given target.
func parseParams(req *Request, target interface{}) *Error {
	if req.Params == nil {
		return &Error{Code: CodeInvalidParams, Message: "params required"}
	}

	data, err := json.Marshal(req.Params)
	if err != nil {
		return &Error{Code: CodeInvalidParams, Message: "invalid params"}
	}

	if err := json.Unmarshal(data, target); err != nil {
		return &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
	}
	return nil
}
