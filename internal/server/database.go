package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/lexiscan/internal/common"
	repo "github.com/joseph-ayodele/lexiscan/internal/repository"
)

// AuditLog is an open audit-log database and its repository.
type AuditLog struct {
	DB   *repo.DB
	Runs repo.AnalysisRunRepository
}

// ConnectAuditLog opens the analysis audit log and creates its table. It returns
// (nil, nil) when the driver is "none" or empty.
func ConnectAuditLog(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*AuditLog, error) {
	if cfg.Driver == "" || cfg.Driver == "none" {
		logger.Info("audit log disabled")
		return nil, nil
	}
	db, err := repo.Open(ctx, repo.Config{
		Driver:          cfg.Driver,
		DSN:             cfg.DSN,
		MaxConns:        cfg.MaxConns,
		MaxConnLifetime: 30 * time.Minute,
		DialTimeout:     cfg.DialTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	runs := repo.NewAnalysisRunRepository(db, logger)
	if err := runs.Migrate(ctx); err != nil {
		db.Close(logger)
		return nil, err
	}
	logger.Info("audit log ready", "driver", cfg.Driver)
	return &AuditLog{DB: db, Runs: runs}, nil
}

// Ping is a HealthChecker for the audit log database.
func (a *AuditLog) Ping(timeout time.Duration, logger *slog.Logger) HealthChecker {
	return func(ctx context.Context) error {
		logger.Debug("pinging database")
		if err := a.DB.HealthCheck(ctx, timeout); err != nil {
			logger.Error("database ping failed", "error", err)
			return err
		}
		return nil
	}
}

// Close closes the database connections.
func (a *AuditLog) Close(logger *slog.Logger) {
	if a == nil || a.DB == nil {
		return
	}
	a.DB.Close(logger)
}
