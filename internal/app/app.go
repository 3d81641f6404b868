package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fleetwatch/fleetwatch/internal/adapters/objectstore"
	"github.com/fleetwatch/fleetwatch/internal/adapters/openvas"
	"github.com/fleetwatch/fleetwatch/internal/adapters/storage"
	"github.com/fleetwatch/fleetwatch/internal/adapters/wazuh"
	"github.com/fleetwatch/fleetwatch/internal/adapters/web"
	"github.com/fleetwatch/fleetwatch/internal/config"
	"github.com/fleetwatch/fleetwatch/internal/core/services/aggregation"
	"github.com/fleetwatch/fleetwatch/internal/core/services/anomaly"
	"github.com/fleetwatch/fleetwatch/internal/core/services/coordinator"
	"github.com/fleetwatch/fleetwatch/internal/core/services/registry"
	"github.com/fleetwatch/fleetwatch/internal/telemetry"
)

// App owns the wired component graph.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	server *web.Server
	store  *storage.SQLiteAdapter
}

// New wires every component from configuration.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	telemetry.InitMetrics()

	reg := registry.NewNodeRegistry(cfg.StalenessWindow, cfg.HistoryCap)
	detector := anomaly.NewDetector(reg, cfg.ZScoreThreshold)
	coord := coordinator.New(reg, aggregation.NewEngine(), detector)

	store, err := storage.NewSQLiteAdapter(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	provider := wazuh.NewClient(wazuh.Config{
		APIURL:             cfg.WazuhAPIURL,
		IndexerURL:         cfg.WazuhIndexerURL,
		Username:           cfg.WazuhUser,
		Password:           cfg.WazuhPassword,
		IndexerUsername:    cfg.IndexerUser,
		IndexerPassword:    cfg.IndexerPassword,
		InsecureSkipVerify: cfg.WazuhSkipVerify,
	}, logger)

	scanner := openvas.NewClient(openvas.Config{
		Host:     cfg.ScannerHost,
		Port:     cfg.ScannerPort,
		Username: cfg.ScannerUser,
		Password: cfg.ScannerPassword,
	}, logger)

	objects, err := objectstore.NewStore(ctx, objectstore.Config{
		Endpoint:      cfg.S3Endpoint,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		Bucket:        cfg.S3Bucket,
		UseSSL:        cfg.S3UseSSL,
		PublicBaseURL: cfg.S3PublicURL,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("object store init failed: %w", err)
	}

	wsManager := web.NewWSManager(coord, cfg.SnapshotEvery, logger)
	coord.SetNotifier(wsManager)

	server := web.NewServer(web.ServerOptions{
		Addr:        cfg.Addr,
		Coordinator: coord,
		Telemetry:   store,
		Vulns:       store,
		Provider:    provider,
		Scanner:     scanner,
		Objects:     objects,
		WSManager:   wsManager,
		Logger:      logger,
	})

	return &App{
		cfg:    cfg,
		logger: logger,
		server: server,
		store:  store,
	}, nil
}

// Run blocks serving requests until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("fleetwatch starting",
		"addr", a.cfg.Addr,
		"staleness_window", a.cfg.StalenessWindow,
		"zscore_threshold", a.cfg.ZScoreThreshold,
	)
	defer a.cleanup()
	return a.server.Run(ctx)
}

func (a *App) cleanup() {
	a.logger.Info("cleaning up resources")
	if err := a.store.Close(); err != nil {
		a.logger.Error("database close failed", "error", err)
	}
}
