package service

import (
	"context"
	"fmt"
	"io"

	"inventory-ledger/internal/auth"
	"inventory-ledger/internal/forecast"
	"inventory-ledger/internal/report"
	"inventory-ledger/internal/util"

	"go.uber.org/zap"
)

// ForecastService projects demand from the sales ledger
type ForecastService struct {
	inventory *InventoryService
	renderer  report.Renderer
	logger    *zap.Logger
}

// NewForecastService creates a new forecast service
func NewForecastService(inventory *InventoryService, renderer report.Renderer) *ForecastService {
	return &ForecastService{
		inventory: inventory,
		renderer:  renderer,
		logger:    util.Named("service.forecast"),
	}
}

// Predict fits the product's monthly sales and projects periods months ahead
func (s *ForecastService) Predict(ctx context.Context, sess *auth.Session, product string, periods int) (*forecast.Forecast, error) {
	ctx, span := util.StartSpan(ctx, "ForecastService.Predict")
	defer span.End()

	sales, err := s.inventory.ViewSales(ctx, sess)
	if err != nil {
		return nil, err
	}

	f, err := forecast.Predict(sales, product, periods)
	if err != nil {
		return nil, fmt.Errorf("failed to forecast %s: %w", product, err)
	}

	util.ForecastsTotal.Inc()
	s.logger.Debug("Forecast computed",
		zap.String("product", product),
		zap.Int("periods", periods),
		zap.Float64("slope", f.Slope),
		zap.Float64("intercept", f.Intercept))
	return f, nil
}

// RenderChart computes the forecast and writes its chart to w
func (s *ForecastService) RenderChart(ctx context.Context, sess *auth.Session, w io.Writer, product string, periods int) (*forecast.Forecast, error) {
	ctx, span := util.StartSpan(ctx, "ForecastService.RenderChart")
	defer span.End()

	f, err := s.Predict(ctx, sess, product, periods)
	if err != nil {
		return nil, err
	}
	if err := s.renderer.ForecastChart(w, f); err != nil {
		return nil, fmt.Errorf("failed to render forecast chart: %w", err)
	}
	return f, nil
}
