package main

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/lexiscan/internal/analysis"
	"github.com/joseph-ayodele/lexiscan/internal/bootstrap"
	"github.com/joseph-ayodele/lexiscan/internal/common"
	"github.com/joseph-ayodele/lexiscan/internal/export"
	"github.com/joseph-ayodele/lexiscan/internal/server"
	"github.com/joseph-ayodele/lexiscan/internal/services/cases"
)

// components is everything a command opened, closed in reverse order.
type components struct {
	svc      *cases.Service
	audit    *server.AuditLog
	cleanups []bootstrap.Cleanup
}

func (c *components) Close(logger *slog.Logger) {
	for i := len(c.cleanups) - 1; i >= 0; i-- {
		c.cleanups[i]()
	}
	c.audit.Close(logger)
}

// buildService wires the case service. withOCR=false skips the OCR engines for
// commands that never read files.
func buildService(ctx context.Context, cfg *common.Config, logger *slog.Logger, withOCR bool) (*components, error) {
	c := &components{}
	fail := func(err error) (*components, error) {
		c.Close(logger)
		return nil, err
	}

	var docs cases.DocumentProcessor
	if withOCR {
		p, cleanup, err := bootstrap.Pipeline(ctx, cfg.OCR, logger)
		if err != nil {
			return fail(err)
		}
		c.cleanups = append(c.cleanups, cleanup)
		docs = p
	}

	model, cleanup, err := bootstrap.ChatModel(ctx, cfg.LLM, cfg.OCR.VisionCredentialsFile, logger)
	if err != nil {
		return fail(err)
	}
	c.cleanups = append(c.cleanups, cleanup)

	slot, cleanup, err := bootstrap.Slot(ctx, cfg.Slot, logger)
	if err != nil {
		return fail(err)
	}
	c.cleanups = append(c.cleanups, cleanup)

	opts := []cases.Option{cases.WithMaxUpload(cfg.MaxUploadBytes())}
	audit, err := server.ConnectAuditLog(ctx, cfg.Database, logger)
	if err != nil {
		logger.Warn("audit log unavailable, continuing without history", "error", err)
	} else if audit != nil {
		c.audit = audit
		opts = append(opts,
			cases.WithAuditLog(audit.Runs),
			cases.WithExporter(export.NewService(audit.Runs, logger)),
		)
	}

	c.svc = cases.NewService(docs,
		analysis.NewOrchestrator(model, logger),
		analysis.NewQA(model, slot, logger),
		slot, logger, opts...)
	return c, nil
}
