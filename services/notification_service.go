package services

import (
	"brz/apperrors"
	"brz/logger"
	"brz/metrics"
	"brz/models"
	"brz/repository"
	"context"
	"fmt"
	"sync"
	"time"
)

// Notifier receives lifecycle events. Dispatch never blocks on delivery and
// never reports failure to the caller.
type Notifier interface {
	Dispatch(ctx context.Context, event Event, reg *models.Registration, extra map[string]string)
}

// Delivery is what an outbound sink gets after the notification row is written.
type Delivery struct {
	Event        Event
	Notification *models.Notification
	Registration *models.Registration
}

// Sink is an additional best-effort delivery channel (email, webhook).
type Sink interface {
	Name() string
	Deliver(ctx context.Context, d Delivery) error
}

type NotificationService struct {
	repo    *repository.NotificationRepository
	sinks   []Sink
	log     logger.Logger
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

func NewNotificationService(repo *repository.NotificationRepository, log logger.Logger, sinks ...Sink) *NotificationService {
	return &NotificationService{
		repo:    repo,
		sinks:   sinks,
		log:     log,
		timeout: 15 * time.Second,
		now:     time.Now,
	}
}

// Dispatch writes the notification and fans out to sinks on a detached goroutine.
func (s *NotificationService) Dispatch(ctx context.Context, event Event, reg *models.Registration, extra map[string]string) {
	n, ok := BuildNotification(event, reg, extra)
	if !ok {
		s.log.Error("unknown notification event", map[string]interface{}{"event": string(event)})
		return
	}

	var snapshot *models.Registration
	if reg != nil {
		copied := *reg
		snapshot = &copied
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		s.deliver(ctx, Delivery{Event: event, Notification: n, Registration: snapshot})
	}()
}

func (s *NotificationService) deliver(ctx context.Context, d Delivery) {
	fields := map[string]interface{}{"event": string(d.Event)}
	if d.Registration != nil {
		fields["registration_id"] = d.Registration.ID
	}
	defer func() {
		if r := recover(); r != nil {
			fields["panic"] = fmt.Sprint(r)
			s.log.Error("notification dispatch panicked", fields)
		}
	}()

	if err := s.repo.Create(ctx, d.Notification); err != nil {
		metrics.NotificationFailures.WithLabelValues("database").Inc()
		fields["error"] = err
		s.log.Error("failed to store notification", fields)
		delete(fields, "error")
	}

	for _, sink := range s.sinks {
		if err := sink.Deliver(ctx, d); err != nil {
			metrics.NotificationFailures.WithLabelValues(sink.Name()).Inc()
			s.log.Warn("notification sink failed", map[string]interface{}{
				"event": string(d.Event),
				"sink":  sink.Name(),
				"error": err,
			})
		}
	}
}

// Wait blocks until every dispatched notification has been handled.
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

func scopeFor(actor models.Actor, unreadOnly bool, limit int) repository.NotificationScope {
	scope := repository.NotificationScope{
		Audience:   models.AudienceApplicant,
		UserID:     actor.ID,
		UnreadOnly: unreadOnly,
		Limit:      limit,
	}
	if actor.IsOperator() {
		scope.Audience = models.AudienceOperator
	}
	return scope
}

// List returns the actor's inbox: the shared operator inbox for operators, the
// actor's own notifications otherwise.
func (s *NotificationService) List(ctx context.Context, actor models.Actor, unreadOnly bool, limit int) ([]models.Notification, error) {
	return s.repo.List(ctx, scopeFor(actor, unreadOnly, limit))
}

func (s *NotificationService) MarkRead(ctx context.Context, actor models.Actor, id uint) error {
	ok, err := s.repo.MarkRead(ctx, id, scopeFor(actor, false, 0), s.now())
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFound("notification")
	}
	return nil
}
