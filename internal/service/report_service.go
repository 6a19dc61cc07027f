package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"inventory-ledger/internal/auth"
	"inventory-ledger/internal/report"
	"inventory-ledger/internal/store"
	"inventory-ledger/internal/util"
)

// ReportService exports the current inventory
type ReportService struct {
	inventory *InventoryService
	renderer  report.Renderer
	now       func() time.Time
}

// NewReportService creates a new report service
func NewReportService(inventory *InventoryService, renderer report.Renderer) *ReportService {
	return &ReportService{
		inventory: inventory,
		renderer:  renderer,
		now:       time.Now,
	}
}

// ExportInventoryCSV writes the inventory table in its stored CSV format
func (s *ReportService) ExportInventoryCSV(ctx context.Context, sess *auth.Session, w io.Writer) error {
	ctx, span := util.StartSpan(ctx, "ReportService.ExportInventoryCSV")
	defer span.End()

	products, err := s.inventory.ViewProducts(ctx, sess)
	if err != nil {
		return err
	}
	if err := store.WriteInventoryCSV(w, products); err != nil {
		return fmt.Errorf("failed to export inventory csv: %w", err)
	}
	return nil
}

// ExportInventoryPDF writes the inventory report with its stock chart
func (s *ReportService) ExportInventoryPDF(ctx context.Context, sess *auth.Session, w io.Writer) error {
	ctx, span := util.StartSpan(ctx, "ReportService.ExportInventoryPDF")
	defer span.End()

	products, err := s.inventory.ViewProducts(ctx, sess)
	if err != nil {
		return err
	}
	if err := s.renderer.InventoryReport(w, products, s.now()); err != nil {
		return fmt.Errorf("failed to export inventory pdf: %w", err)
	}
	return nil
}
