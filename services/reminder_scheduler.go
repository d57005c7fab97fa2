package services

import (
	"brz/logger"
	"brz/repository"
	"context"
	"strconv"
	"time"

	"github.com/jinzhu/now"
	"github.com/robfig/cron/v3"
)

// ReminderScheduler periodically nudges operators about registrations that
// have been waiting too long.
type ReminderScheduler struct {
	repo      *repository.RegistrationRepository
	notifier  Notifier
	staleDays int
	log       logger.Logger
	now       func() time.Time
	cron      *cron.Cron
}

func NewReminderScheduler(repo *repository.RegistrationRepository, notifier Notifier, staleDays int, log logger.Logger) *ReminderScheduler {
	if staleDays < 1 {
		staleDays = 3
	}
	return &ReminderScheduler{
		repo:      repo,
		notifier:  notifier,
		staleDays: staleDays,
		log:       log,
		now:       time.Now,
	}
}

// Start schedules RunOnce with a standard five-field cron spec.
func (s *ReminderScheduler) Start(spec string) error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(spec, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			s.log.Error("stale registration check failed", map[string]interface{}{"error": err})
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("reminder scheduler started", map[string]interface{}{"spec": spec, "stale_days": s.staleDays})
	return nil
}

// Stop halts the schedule and waits for a running check to finish.
func (s *ReminderScheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Cutoff is the beginning of the day staleDays ago.
func (s *ReminderScheduler) Cutoff() time.Time {
	return now.With(s.now()).BeginningOfDay().AddDate(0, 0, -s.staleDays)
}

// RunOnce emits one operator digest when stale registrations exist and returns
// how many it found.
func (s *ReminderScheduler) RunOnce(ctx context.Context) (int, error) {
	cutoff := s.Cutoff()
	stale, err := s.repo.ListWaitingBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	s.notifier.Dispatch(ctx, EventStaleWaiting, nil, map[string]string{
		"count":  strconv.Itoa(len(stale)),
		"cutoff": cutoff.Format(CompletionDateLayout),
	})
	s.log.Info("stale registrations reported", map[string]interface{}{"count": len(stale), "cutoff": cutoff})
	return len(stale), nil
}
