package cron

import (
	"context"
	"fmt"

	"github.com/giftlane/giftlane-backend/pkg/logger"
	"github.com/giftlane/giftlane-backend/pkg/metrics"
)

type reservationSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// ReservationSweepJobParams configure the reservation sweep.
type ReservationSweepJobParams struct {
	Logger       *logger.Logger
	Reservations reservationSweeper
	Metrics      *metrics.CronJobMetrics
}

// NewReservationSweepJob builds the job that reclaims expired soft
// holds. Availability checks already ignore expired rows, so the sweep
// only keeps the reservations table small.
func NewReservationSweepJob(params ReservationSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reservations == nil {
		return nil, fmt.Errorf("reservation service required")
	}
	return &reservationSweepJob{
		logg:         params.Logger,
		reservations: params.Reservations,
		metrics:      params.Metrics,
	}, nil
}

type reservationSweepJob struct {
	logg         *logger.Logger
	reservations reservationSweeper
	metrics      *metrics.CronJobMetrics
}

func (j *reservationSweepJob) Name() string { return "reservation-sweep" }

func (j *reservationSweepJob) Run(ctx context.Context) error {
	swept, err := j.reservations.SweepExpired(ctx)
	if err != nil {
		return fmt.Errorf("sweep expired reservations: %w", err)
	}
	if j.metrics != nil {
		j.metrics.AddProcessed(j.Name(), int(swept))
	}
	logCtx := j.logg.WithField(ctx, "swept", swept)
	j.logg.Info(logCtx, "reservation sweep complete")
	return nil
}
