package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/giftlane/giftlane-backend/pkg/db/models"
	"github.com/giftlane/giftlane-backend/pkg/enums"
	"github.com/giftlane/giftlane-backend/pkg/logger"
	"github.com/giftlane/giftlane-backend/pkg/outbox"
	"github.com/giftlane/giftlane-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type lapsedDeadlineReader interface {
	FindDesignDeadlineLapsed(ctx context.Context, cutoff time.Time) ([]models.Order, error)
	MarkDeadlineNudged(ctx context.Context, orderID uuid.UUID, at time.Time) error
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// DesignDeadlineJobParams configure the preview SLA watchdog.
type DesignDeadlineJobParams struct {
	Logger *logger.Logger
	DB     txRunner
	Orders lapsedDeadlineReader
	Outbox outboxEmitter
}

// NewDesignDeadlineJob builds the job that nudges partners whose
// personalized orders sailed past the design deadline without an
// approved preview. Each order is nudged at most once; the outbox
// dedupe and the nudged_at stamp both enforce that.
func NewDesignDeadlineJob(params DesignDeadlineJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &designDeadlineJob{
		logg:   params.Logger,
		db:     params.DB,
		orders: params.Orders,
		events: params.Outbox,
		now:    time.Now,
	}, nil
}

type designDeadlineJob struct {
	logg   *logger.Logger
	db     txRunner
	orders lapsedDeadlineReader
	events outboxEmitter
	now    func() time.Time
}

func (j *designDeadlineJob) Name() string { return "design-deadline" }

func (j *designDeadlineJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	lapsed, err := j.orders.FindDesignDeadlineLapsed(ctx, now)
	if err != nil {
		return fmt.Errorf("query lapsed design deadlines: %w", err)
	}

	var errs []error
	nudged := 0
	for i := range lapsed {
		order := &lapsed[i]
		if err := j.nudge(ctx, order, now); err != nil {
			errs = append(errs, fmt.Errorf("nudge order %s: %w", order.ID, err))
			continue
		}
		nudged++
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"lapsed": len(lapsed),
		"nudged": nudged,
	})
	j.logg.Info(logCtx, "design deadline sweep complete")
	return multierr.Combine(errs...)
}

func (j *designDeadlineJob) nudge(ctx context.Context, order *models.Order, now time.Time) error {
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		return j.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDetailsNudge,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.DesignDeadlineNudgeEvent{
				OrderID:          order.ID,
				PartnerID:        order.PartnerID,
				DesignDeadlineAt: *order.DesignDeadlineAt,
			},
		})
	})
	if err != nil {
		return err
	}
	// Stamped after the emit commits; if this write is lost the outbox
	// dedupe still stops a second nudge.
	return j.orders.MarkDeadlineNudged(ctx, order.ID, now)
}
