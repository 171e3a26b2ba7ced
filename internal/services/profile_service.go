package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"xpdash/internal/amqp"
	"xpdash/internal/core"
	"xpdash/internal/log"
	"xpdash/internal/metrics"
	"xpdash/internal/source"
)

// ProfileLoader is satisfied by *pipeline.Loader.
type ProfileLoader interface {
	Load(ctx context.Context, exec source.Executor, now time.Time) (*core.Profile, error)
}

// Publisher announces loaded profiles. *amqp.Client implements it.
type Publisher interface {
	PublishProfileLoaded(ctx context.Context, msg *amqp.ProfileLoadedMessage) error
}

var _ Publisher = (*amqp.Client)(nil)

// DefaultPublishTimeout bounds one background publish, reconnects included.
const DefaultPublishTimeout = 15 * time.Second

// ProfileService runs the pipeline for a session and publishes the outcome.
type ProfileService struct {
	loader    ProfileLoader
	publisher Publisher
	logger    *log.Logger
	now       func() time.Time

	publishTimeout time.Duration
	pending        sync.WaitGroup
}

// NewProfileService builds the service. publisher may be nil, in which case
// events are skipped.
func NewProfileService(loader ProfileLoader, publisher Publisher, logger *log.Logger) *ProfileService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ProfileService{
		loader:    loader,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentPipeline),
		now:       time.Now,

		publishTimeout: DefaultPublishTimeout,
	}
}

// Load computes the dashboard for exec's user. A failed load returns the
// error unchanged so callers can test for source.ErrUnauthorized.
func (s *ProfileService) Load(ctx context.Context, exec source.Executor) (*core.Profile, error) {
	start := s.now()
	profile, err := s.loader.Load(ctx, exec, start)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		status := "error"
		if errors.Is(err, source.ErrUnauthorized) {
			status = "unauthorized"
		}
		metrics.RecordProfileLoad(status, elapsed)
		s.logger.WarnContext(ctx, "Profile load failed",
			log.NewFields().WithOperation(log.OpLoad).WithError(err).ToSlice()...)
		return nil, fmt.Errorf("load profile: %w", err)
	}
	metrics.RecordProfileLoad("ok", elapsed)

	s.logger.InfoContext(ctx, "Profile loaded",
		log.NewFields().
			WithOperation(log.OpLoad).
			WithProfile(profile.User.ID, profile.User.Login, profile.Aggregate.TotalAllTime, profile.Aggregate.Total6Month).
			ToSlice()...)

	// Publish async (non-blocking): the dashboard is already computed and a
	// broker outage must not hold the request.
	s.publishAsync(ctx, profile)
	return profile, nil
}

// Wait blocks until background publishes have finished.
func (s *ProfileService) Wait() {
	s.pending.Wait()
}

func (s *ProfileService) publishAsync(ctx context.Context, profile *core.Profile) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not configured, skipping profile event")
		return
	}
	msg := amqp.NewProfileLoadedMessage(profile)
	// Detached from the request so a finished response does not cancel it.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()
		if err := s.publisher.PublishProfileLoaded(pubCtx, msg); err != nil {
			s.logger.ErrorContext(pubCtx, "Failed to publish profile loaded message",
				log.NewFields().WithOperation(log.OpPublish).WithError(err).ToSlice()...)
		}
	}()
}
