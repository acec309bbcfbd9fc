package tasks

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/miqat/umrah-bookings/internal/service/leads"
	"github.com/miqat/umrah-bookings/pkg/config"
	"github.com/miqat/umrah-bookings/pkg/logger"
)

const (
	TypeExpirySweep = "leads:expiry:sweep"
)

func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	})
}

// Processor holds the dependencies task handlers need.
type Processor struct {
	leads *leads.Service
}

func NewProcessor(leadsSvc *leads.Service) *Processor {
	return &Processor{leads: leadsSvc}
}

// HandleExpirySweep moves overdue pending leads to expired. The sweep is
// idempotent, so overlapping runs are harmless.
func (p *Processor) HandleExpirySweep(ctx context.Context, t *asynq.Task) error {
	expired, err := p.leads.ExpireOverdue(ctx)
	if err != nil {
		return fmt.Errorf("expiry sweep: %w", err)
	}
	if expired > 0 {
		logger.Info("Expiry sweep completed", "expired", expired)
	}
	return nil
}

// NewServer builds the asynq worker server. Call Run with NewMux(processor).
func NewServer(rdb *redis.Client) *asynq.Server {
	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     rdb.Options().Addr,
			Password: rdb.Options().Password,
			DB:       rdb.Options().DB,
		},
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)
}

func NewMux(processor *Processor) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeExpirySweep, processor.HandleExpirySweep)
	return mux
}

// NewScheduler registers the periodic expiry sweep at the configured cadence.
func NewScheduler(rdb *redis.Client, cfg config.BookingConfig) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     rdb.Options().Addr,
			Password: rdb.Options().Password,
			DB:       rdb.Options().DB,
		},
		&asynq.SchedulerOpts{},
	)

	spec := fmt.Sprintf("@every %s", cfg.SweepInterval)
	if _, err := scheduler.Register(spec, asynq.NewTask(TypeExpirySweep, nil)); err != nil {
		return nil, fmt.Errorf("failed to register expiry sweep: %w", err)
	}

	return scheduler, nil
}
