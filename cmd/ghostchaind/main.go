// Command ghostchaind runs a single ghostchain node: the ledger, the
// validator set, the contract executor, and an RPC surface over HTTP and
// WebSocket.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/time/rate"

	"ghostchain/auth"
	"ghostchain/core"
	"ghostchain/naming"
	"ghostchain/pkg/config"
	"ghostchain/pool"
	"ghostchain/rpc"
)

func main() {
	if _, err := maxprocs.Set(maxprocs.Logger(log.Debugf)); err != nil {
		log.WithError(err).Warn("failed to set GOMAXPROCS")
	}

	root := newRootCmd()
	if err := root.Execute(); err != nil {
		log.WithError(err).Fatal("ghostchaind exited with error")
	}
}

func newRootCmd() *cobra.Command {
	var envName string

	cmd := &cobra.Command{
		Use:   "ghostchaind",
		Short: "ghostchaind runs a permissioned ghostchain node",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(envName)
		},
	}
	cmd.Flags().StringVar(&envName, "env", "", "configuration overlay to merge (e.g. production)")
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the ghostchaind version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Println("ghostchaind dev")
			return nil
		},
	}
}

func run(envName string) error {
	cfg, err := config.Load(envName)
	if err != nil {
		return err
	}

	level, err := log.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = log.InfoLevel
	}
	logger := log.StandardLogger()
	logger.SetLevel(level)

	ledger, err := core.OpenLedger(core.LedgerConfig{
		DataDir:          cfg.Storage.DataDir,
		SnapshotInterval: cfg.Storage.SnapshotInterval,
	}, logger)
	if err != nil {
		return err
	}

	chain := core.NewChain(ledger, core.ConsensusParams{
		MinStake:      cfg.MinStakeBig(),
		MaxValidators: cfg.Chain.MaxValidators,
		EpochLength:   cfg.Chain.EpochLength,
		SlashingRate:  cfg.Chain.SlashingRate,
		BlockTimeMS:   cfg.Chain.BlockTimeMS,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chain.Start(ctx)
	defer chain.Stop()

	bridges := pool.NewPool(bridgeFactory, cfg.Pool.MaxConnections,
		time.Duration(cfg.Pool.IdleTimeoutSec)*time.Second)

	resolver := naming.NewResolver(chain.Executor, time.Duration(cfg.Cache.TTLSeconds)*time.Second, logger)
	resolver.AddRoute("did:", &naming.DIDBackend{Executor: chain.Executor})
	resolver.AddRoute("eth", bridgeBackend(bridges, "ens"))
	resolver.AddRoute("crypto", bridgeBackend(bridges, "unstoppable"))
	resolver.AddRoute("nft", bridgeBackend(bridges, "unstoppable"))
	resolver.AddRoute("x", bridgeBackend(bridges, "unstoppable"))

	authMgr := auth.NewManager(rate.Limit(cfg.Auth.RateLimit), cfg.Auth.Burst,
		time.Duration(cfg.Auth.SessionTTLSeconds)*time.Second)

	srv := rpc.NewServer(chain, resolver, authMgr, bridges, rpc.Config{
		ChainID:         cfg.Chain.ID,
		ListenAddr:      cfg.RPC.ListenAddr,
		RequestTimeout:  time.Duration(cfg.RPC.RequestTimeoutMS) * time.Millisecond,
		AccountCacheTTL: time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		EnableContracts: cfg.Features.EnableContracts,
		EnableDomains:   cfg.Features.EnableDomains,
	}, logger)
	go func() {
		if err := srv.ListenAndServe(cfg.RPC.ListenAddr); err != nil {
			logger.WithError(err).Error("rpc server stopped")
		}
	}()

	logger.WithFields(log.Fields{"addr": cfg.RPC.ListenAddr, "chain_id": cfg.Chain.ID}).Info("ghostchaind started")

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// bridgeConn is a placeholder pooled connection for an external naming
// system. No live ENS/Unstoppable Domains client ships with this node, but
// the pool is wired so a real transport can be dropped into bridgeFactory
// without touching the resolver or its routes.
type bridgeConn struct{ endpoint string }

func (bridgeConn) Close() error { return nil }

func bridgeFactory(ctx context.Context, endpoint string) (pool.Conn, error) {
	return bridgeConn{endpoint: endpoint}, nil
}

// bridgeBackend wires a naming.BridgeBackend that checks out a pooled
// connection for name before reporting it unresolved, so the connection cap
// and idle reaping apply uniformly across every external naming route even
// though no upstream bridge is configured yet.
func bridgeBackend(bridges *pool.Pool, name string) *naming.BridgeBackend {
	return &naming.BridgeBackend{
		BackendName: name,
		Resolve_: func(ctx context.Context, domain string) (naming.Record, error) {
			conn, err := bridges.Acquire(ctx, name)
			if err != nil {
				return naming.Record{}, err
			}
			defer bridges.Release(name, conn)
			return naming.Record{}, errors.New("naming: " + name + " bridge not configured")
		},
	}
}
