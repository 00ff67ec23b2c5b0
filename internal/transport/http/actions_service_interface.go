package http

import (
	"context"

	"simdash/internal/services"
	"simdash/internal/sources"
	"simdash/pkg/contracts/domain"
)

// ActionsServiceInterface is the part of services.ActionsService the HTTP
// and websocket handlers depend on
type ActionsServiceInterface interface {
	MaxRowsLimit() int
	ListDataSources(ctx context.Context) ([]sources.DataSource, error)
	ProcessDataSource(ctx context.Context, id string, opts services.ProcessOptions, fn services.PointHandler) (*domain.ActionsSummary, error)
	CollectDataSource(ctx context.Context, id string, opts services.ProcessOptions) ([]domain.PlotPoint, *domain.ActionsSummary, error)
	Summarize(ctx context.Context, id string, opts services.ProcessOptions) (*domain.ActionsSummary, error)
}

var _ ActionsServiceInterface = (*services.ActionsService)(nil)
