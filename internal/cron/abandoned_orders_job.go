package cron

import (
	"context"
	"fmt"

	"github.com/gemvault/gemvault-backend/pkg/logger"
)

// abandonedOrderSweeper is the settlement surface the job needs.
type abandonedOrderSweeper interface {
	ExpireAbandoned(ctx context.Context) (int, error)
}

// AbandonedOrdersJobParams configure the abandoned order sweep.
type AbandonedOrdersJobParams struct {
	Logger     *logger.Logger
	Settlement abandonedOrderSweeper
}

// NewAbandonedOrdersJob builds the job that cancels gateway orders whose
// payment never arrived, releasing their reserved stones.
func NewAbandonedOrdersJob(params AbandonedOrdersJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Settlement == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	return &abandonedOrdersJob{
		logg:       params.Logger,
		settlement: params.Settlement,
	}, nil
}

type abandonedOrdersJob struct {
	logg       *logger.Logger
	settlement abandonedOrderSweeper
}

func (j *abandonedOrdersJob) Name() string { return "abandoned-orders" }

func (j *abandonedOrdersJob) Run(ctx context.Context) error {
	swept, err := j.settlement.ExpireAbandoned(ctx)
	if err != nil {
		return fmt.Errorf("expire abandoned orders: %w", err)
	}
	if swept > 0 {
		j.logg.Info(j.logg.WithField(ctx, "swept", swept), "abandoned orders cancelled")
	}
	return nil
}
