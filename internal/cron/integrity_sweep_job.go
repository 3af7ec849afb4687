package cron

import (
	"context"
	"fmt"

	"github.com/lromero/storefront-backend/internal/integrity"
	"github.com/lromero/storefront-backend/pkg/logger"
)

type IntegritySweepJobParams struct {
	Logger    *logger.Logger
	Integrity integrity.Service
}

// NewIntegritySweepJob builds the scheduled global cart repair: every
// enabled fix, no identity scope.
func NewIntegritySweepJob(params IntegritySweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Integrity == nil {
		return nil, fmt.Errorf("integrity service required")
	}
	return &integritySweepJob{
		logg: params.Logger,
		svc:  params.Integrity,
	}, nil
}

type integritySweepJob struct {
	logg *logger.Logger
	svc  integrity.Service
}

func (j *integritySweepJob) Name() string { return "cart-integrity-sweep" }

func (j *integritySweepJob) Run(ctx context.Context) error {
	report, err := j.svc.Repair(ctx, nil, integrity.AllRepairs())
	if err != nil {
		return fmt.Errorf("cart integrity sweep: %w", err)
	}

	fields := map[string]any{
		"failed_identities": report.Errors,
	}
	for kind, count := range report.FixesApplied {
		fields[string(kind)] = count
	}
	logCtx := j.logg.WithFields(ctx, fields)
	j.logg.Info(logCtx, "cart integrity sweep complete")

	if report.Errors > 0 {
		return fmt.Errorf("cart integrity sweep: %d identities failed to repair", report.Errors)
	}
	return nil
}
