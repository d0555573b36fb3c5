// Command world-chain-builder runs the PBH sidecar: it loads the
// configuration, opens the nullifier store, keeps the root FIFO current
// from World ID tree-update logs, constructs the PBH validator, pool
// and block stamper, and serves health and metrics over HTTP. It has no
// transaction-submission or head-update interface: nothing in this
// command calls Pool.Submit or Pool.NotifyHead, and the stamper is not
// invoked. Block execution is not done here (§1 Non-goals).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	pbhconfig "github.com/worldcoin/world-chain-builder/pkg/config"
	"github.com/worldcoin/world-chain-builder/pkg/health"
	"github.com/worldcoin/world-chain-builder/pkg/kvdb"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/audit"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/hash"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/pool"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/root"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/stamp"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/store"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/validate"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/verify"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the builder's YAML configuration file")
	auditDSN := flag.String("audit-dsn", "", "optional Postgres DSN for the nullifier audit sink")
	flag.Parse()

	logger := log.New(os.Stderr, "[world-chain-builder] ", log.LstdFlags)

	cfg, err := pbhconfig.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL)
	if err != nil {
		logger.Fatalf("dial execution client: %v", err)
	}

	kv, err := openStore(cfg.Store)
	if err != nil {
		logger.Fatalf("open nullifier store: %v", err)
	}
	nullifierStore := store.New(kv)

	rootValidator := root.NewValidator(cfg.PBH.RootHistorySize)
	watcherCfg := root.DefaultWatcherConfig(common.HexToAddress(cfg.Chain.WorldIDAddress))
	watcher := root.NewWatcher(client, rootValidator, watcherCfg)

	vkBytes, err := os.ReadFile(cfg.PBH.VerifyingKeyPath)
	if err != nil {
		logger.Fatalf("read verifying key: %v", err)
	}
	verifier, err := verify.NewVerifier(vkBytes)
	if err != nil {
		logger.Fatalf("construct proof verifier: %v", err)
	}

	validateCfg := validate.DefaultConfig()
	validateCfg.GracePeriod = cfg.PBH.GracePeriod.Duration()
	if cfg.PBH.MaxNoncePerPeriod > 0 {
		validateCfg.MaxNoncePerPeriod = cfg.PBH.MaxNoncePerPeriod
	}
	validator := validate.New(validate.NoopInner{}, nullifierStore, rootValidator, verifier, hash.Poseidon{}, validateCfg)

	pbhPool := pool.New(validator, nullifierStore)

	dsn := *auditDSN
	if dsn != "" {
		sink, err := audit.New(audit.Config{DSN: dsn}, log.New(os.Stderr, "[pbh-audit] ", log.LstdFlags))
		if err != nil {
			logger.Printf("audit sink unavailable, continuing without one: %v", err)
		} else {
			defer sink.Close()
			pbhPool.WithAuditSink(sink)
		}
	}

	signerKey, err := builderSignerKey(cfg.Builder)
	if err != nil {
		logger.Fatalf("resolve builder signer: %v", err)
	}
	async := stamp.NewAsyncSigner()
	defer async.Close()
	stamper, err := stamp.New(signerKey, common.HexToAddress(cfg.Builder.BlockRegistryAddress), client, async)
	if err != nil {
		logger.Fatalf("construct block stamper: %v", err)
	}
	logger.Printf("block stamper signer address: %s", stamper.Signer())

	healthSrv := health.NewServer()
	healthSrv.Register("chain-client", func() error {
		_, err := client.BlockNumber(ctx)
		return err
	})
	healthSrv.Register("root-validator", func() error {
		if _, ok := rootValidator.Latest(); !ok {
			return fmt.Errorf("no root observed yet")
		}
		return nil
	})

	pbhPool.Run(ctx)
	go runWatcher(ctx, watcher, logger)
	go serveHTTP(ctx, cfg.Server.HealthAddr, healthSrv.Handler(), "health", logger)
	go serveHTTP(ctx, cfg.Server.MetricsAddr, promhttp.Handler(), "metrics", logger)
	healthSrv.Start()

	logger.Printf("world-chain-builder started (chain_id=%d)", cfg.Chain.ChainID)
	<-ctx.Done()
	logger.Printf("shutting down")
	pbhPool.Stop()
}

func openStore(cfg pbhconfig.StoreConfig) (kvdb.KV, error) {
	if cfg.Backend == "goleveldb" {
		return kvdb.Open("pbh-nullifiers", cfg.DataDir)
	}
	return kvdb.NewAdapter(newMemDB()), nil
}

func runWatcher(ctx context.Context, w *root.Watcher, logger *log.Logger) {
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Printf("root watcher stopped: %v", err)
	}
}

func serveHTTP(ctx context.Context, addr string, handler http.Handler, name string, logger *log.Logger) {
	if addr == "" {
		return
	}
	srv := &http.Server{Addr: addr, Handler: handler}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Printf("%s server stopped: %v", name, err)
	}
}
