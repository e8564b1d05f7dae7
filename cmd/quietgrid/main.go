package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/allowance"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/api"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/audit"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/config"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/governance"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/noise"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/observability"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/permit"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/trading"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/zone"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	addr := flag.String("addr", ":"+cfg.Port, "listen address")
	dbDriver := flag.String("db-driver", cfg.DatabaseDriver, "database driver (sqlite or postgres)")
	dbURL := flag.String("db", cfg.DatabaseURL, "database path or DSN")
	profilePath := flag.String("profile", cfg.ProfilePath, "district profile YAML to seed zones from")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(*dbDriver, *dbURL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	logger.Info("database ready", "driver", *dbDriver)

	zoneStore, err := zone.NewSQLStore(db)
	if err != nil {
		return fmt.Errorf("zone store: %w", err)
	}
	allowanceStore, err := allowance.NewSQLStore(db)
	if err != nil {
		return fmt.Errorf("allowance store: %w", err)
	}
	permitStore, err := permit.NewSQLStore(db)
	if err != nil {
		return fmt.Errorf("permit store: %w", err)
	}
	tradeStore, err := trading.NewSQLStore(db)
	if err != nil {
		return fmt.Errorf("trade store: %w", err)
	}
	govStore, err := governance.NewSQLStore(db)
	if err != nil {
		return fmt.Errorf("governance store: %w", err)
	}
	noiseStore, err := noise.NewSQLStore(db)
	if err != nil {
		return fmt.Errorf("noise store: %w", err)
	}
	receiptStore, err := audit.NewSQLReceipts(db)
	if err != nil {
		return fmt.Errorf("receipt store: %w", err)
	}

	var premiums zone.PremiumIndex = zone.NewMemoryPremiums()
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		premiums = zone.NewRedisPremiums(client, "quietgrid:premium")
		logger.Info("premium index on redis", "addr", cfg.RedisAddr)
	}

	blocks := contracts.NewIntervalBlocks(cfg.GenesisTime, cfg.BlockInterval)
	recorder := audit.NewStoreRecorder(receiptStore, blocks)

	zones := zone.NewRegistry(zoneStore, premiums).WithRecorder(recorder)
	allowances := allowance.NewLedger(allowanceStore, zones, blocks).WithRecorder(recorder)
	permits := permit.NewManager(permitStore, zones, blocks).WithRecorder(recorder)
	market := trading.NewEngine(tradeStore, allowances, trading.NewMemoryTokens("")).WithRecorder(recorder)
	gov := governance.NewEngine(govStore, zones, blocks).WithRecorder(recorder)
	monitor := noise.NewMonitor(noiseStore, zones, blocks).WithRecorder(recorder)

	if *profilePath != "" {
		if err := seedZones(ctx, logger, zones, *profilePath); err != nil {
			return err
		}
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.OTLPEndpoint = cfg.OTLPEndpoint
	obs, err := observability.New(ctx, obsCfg)
	if err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()

	server := api.NewServer(zones, allowances, permits, market, gov, monitor, logger).
		WithTracer(obs.Tracer())

	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, all authenticated endpoints will reject")
	}
	handler := api.AuthMiddleware(api.NewJWTValidator(cfg.JWTSecret))(server.Handler())
	handler = api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).Middleware(handler)
	handler = api.RequestID(api.CORS(handler))

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", *addr, "block_height", blocks.Height())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}

func openDatabase(driver, url string) (*sql.DB, error) {
	switch driver {
	case "sqlite":
		return sql.Open("sqlite", url)
	case "postgres":
		return sql.Open("postgres", url)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}

// seedZones registers the zones a district profile declares, under the
// profile's operator principal. Seeding only runs against an empty registry
// so a restart does not register the district twice.
func seedZones(ctx context.Context, logger *slog.Logger, zones *zone.Registry, path string) error {
	profile, err := config.LoadProfile(path)
	if err != nil {
		return err
	}
	if _, err := zones.Get(ctx, 1); err == nil {
		logger.Info("registry already seeded, skipping profile", "district", profile.District)
		return nil
	}
	operator := contracts.Principal(profile.Operator)
	for _, seed := range profile.Zones {
		id, err := zones.CreateZone(ctx, operator, seed.Name, seed.MaxDecibel, seed.IsQuietZone)
		if err != nil {
			return fmt.Errorf("seed zone %q: %w", seed.Name, err)
		}
		logger.Info("seeded zone", "district", profile.District, "zone_id", id, "name", seed.Name)
	}
	return nil
}
