// Package node provides a reusable registry node that can be embedded
// in any binary.
package node

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/sigilnet/sigil/config"
	"github.com/sigilnet/sigil/internal/events"
	klog "github.com/sigilnet/sigil/internal/log"
	"github.com/sigilnet/sigil/internal/receiver"
	"github.com/sigilnet/sigil/internal/registry"
	"github.com/sigilnet/sigil/internal/rpc"
	"github.com/sigilnet/sigil/internal/storage"
	"github.com/sigilnet/sigil/pkg/types"
)

// Node is a fully-initialized registry node.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	// Core
	db  storage.DB
	reg *registry.Registry
	log *events.Log
	dir *receiver.Directory

	// RPC
	rpcServer *rpc.Server
}

// New creates and initializes a new Node. It opens storage, replays the
// event log, and restores the admin, but does NOT start serving. Call
// Start() for that.
func New(cfg *config.Config) (*Node, error) {
	// Address HRP first, so every address below renders correctly.
	if cfg.Network == config.Testnet {
		types.SetAddressHRP(types.TestnetHRP)
	} else {
		types.SetAddressHRP(types.MainnetHRP)
	}

	logFile := cfg.Log.File
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = logsDir + "/sigil.log"
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.WithComponent("node")

	logger.Info().
		Str("network", string(cfg.Network)).
		Str("name", cfg.Registry.Name).
		Str("symbol", cfg.Registry.Symbol).
		Msg("Starting Sigil Registry Node")

	db, err := storage.NewBadger(cfg.RegistryDir())
	if err != nil {
		return nil, fmt.Errorf("open database at %s: %w", cfg.RegistryDir(), err)
	}
	logger.Info().Str("path", cfg.RegistryDir()).Msg("Database opened")

	eventLog, err := events.NewLog(storage.NewPrefixDB(db, []byte("events/")))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open event log: %w", err)
	}

	dir := receiver.NewDirectory(storage.NewPrefixDB(db, []byte("receiver/")))
	meta := registry.NewStore(storage.NewPrefixDB(db, []byte("meta/")))

	reg := registry.New(registry.Options{
		Oracle:  dir,
		Channel: receiver.NewChannel(dir, time.Duration(cfg.Receiver.TimeoutSeconds)*time.Second),
		Events:  eventLog,
		Meta:    meta,
		Collection: registry.Collection{
			Name:    cfg.Registry.Name,
			Symbol:  cfg.Registry.Symbol,
			BaseURI: cfg.Registry.BaseURI,
		},
	})

	// Rebuild token state from the durable log, then restore the admin,
	// which lives outside the event stream.
	if err := reg.Replay(eventLog); err != nil {
		db.Close()
		return nil, fmt.Errorf("replay event log: %w", err)
	}
	if err := reg.RestoreAdmin(); err != nil {
		db.Close()
		return nil, fmt.Errorf("restore admin: %w", err)
	}
	logger.Info().
		Uint64("events", eventLog.Len()).
		Uint64("tokens", reg.TotalSupply()).
		Msg("State rebuilt from event log")

	// A configured admin bootstraps a fresh registry. An already
	// bootstrapped registry keeps its persisted admin.
	if cfg.Registry.Admin != "" && reg.Admin().IsZero() {
		admin, err := types.ParseAddress(cfg.Registry.Admin)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("parse registry.admin: %w", err)
		}
		if err := reg.Bootstrap(admin); err != nil {
			db.Close()
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	n := &Node{
		cfg:    cfg,
		logger: logger,
		db:     db,
		reg:    reg,
		log:    eventLog,
		dir:    dir,
	}

	if cfg.RPC.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.RPC.Addr, cfg.RPC.Port)
		n.rpcServer = rpc.New(addr, reg, eventLog, cfg.RPC)
		n.rpcServer.SetReceiverDirectory(dir)
		n.rpcServer.SetAdminOnlyMint(cfg.Registry.AdminOnlyMint)
	}

	return n, nil
}

// Start begins serving RPC requests.
func (n *Node) Start() error {
	if n.rpcServer == nil {
		n.logger.Warn().Msg("RPC disabled, node serves nothing")
		return nil
	}
	if err := n.rpcServer.Start(); err != nil {
		return fmt.Errorf("start rpc server: %w", err)
	}
	n.logger.Info().Str("addr", n.rpcServer.Addr()).Msg("RPC server listening")
	return nil
}

// Stop shuts down the RPC server and closes storage.
func (n *Node) Stop() {
	if n.rpcServer != nil {
		if err := n.rpcServer.Stop(); err != nil {
			n.logger.Error().Err(err).Msg("RPC shutdown failed")
		}
	}
	if err := n.db.Close(); err != nil {
		n.logger.Error().Err(err).Msg("Database close failed")
	}
	n.logger.Info().Msg("Node stopped")
}

// Registry exposes the registry for embedders.
func (n *Node) Registry() *registry.Registry { return n.reg }

// Events exposes the durable event log.
func (n *Node) Events() *events.Log { return n.log }

// Receivers exposes the receiver directory.
func (n *Node) Receivers() *receiver.Directory { return n.dir }

// RPCAddr returns the bound RPC address, or "" when RPC is disabled.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}
