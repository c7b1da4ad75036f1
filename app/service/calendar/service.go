package calendar

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/HeyGuihi/CrioloWhatsApp/app/config"
	"github.com/elliotchance/pie/v2"
	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/samber/oops"
)

var (
	// ErrSlotTaken is the normal negotiation outcome for a lost slot race,
	// not a failure.
	ErrSlotTaken = errors.New("slot is already taken")

	ErrBadTime   = errors.New("time is not a valid HH:MM token")
	ErrNoMeeting = errors.New("no meeting at this slot")
)

// Service is the single source of truth for which (date, time) slots are
// taken. Every successful commit is written through to the store before it
// is reported as committed.
type Service struct {
	availableTimes []string
	store          *Store

	mu       sync.Mutex
	meetings []Meeting
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewService(cfg.Calendar.AvailableTimes, NewStore(cfg.Calendar.StorePath)), nil
}

func NewService(availableTimes []string, store *Store) *Service {
	meetings := store.Load()

	slog.Info("Calendar loaded",
		"meetings", len(meetings),
		"available_times", len(availableTimes))

	return &Service{
		availableTimes: availableTimes,
		store:          store,
		meetings:       meetings,
	}
}

// AvailableTimes returns the offerable times in their fixed priority order.
func (s *Service) AvailableTimes() []string {
	return append([]string(nil), s.availableTimes...)
}

func (s *Service) IsAvailable(date, time string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.isAvailableLocked(date, time)
}

func (s *Service) isAvailableLocked(date, time string) bool {
	key := Meeting{Date: date, Time: time}.SlotKey()

	for _, m := range s.meetings {
		if m.SlotKey() == key {
			return false
		}
	}

	return true
}

// NextAvailable returns the first offerable time still free on the given
// date, honoring the configured priority order. The second result is false
// when every slot of the day is taken.
func (s *Service) NextAvailable(date string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.availableTimes {
		if s.isAvailableLocked(date, t) {
			return t, true
		}
	}

	return "", false
}

// BookedTimes lists the taken times of a date in priority order.
func (s *Service) BookedTimes(date string) []string {
	s.mu.Lock()
	booked := pie.Filter(s.meetings, func(m Meeting) bool {
		return m.Date == date
	})
	s.mu.Unlock()

	times := pie.Map(booked, func(m Meeting) string {
		return m.Time
	})

	return pie.Filter(s.availableTimes, func(t string) bool {
		return pie.Contains(times, t)
	})
}

// Meetings returns a snapshot of every committed meeting.
func (s *Service) Meetings() []Meeting {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Meeting(nil), s.meetings...)
}

// Commit books the slot if it is still free. The availability check and the
// mutation form one critical section, so concurrent commits for the same
// slot are linearized: exactly one wins, the rest get ErrSlotTaken. The
// meeting is durable once Commit returns without error.
func (s *Service) Commit(date, dayOfWeek, time, attendeeName string) (Meeting, error) {
	if !timePattern.MatchString(time) {
		return Meeting{}, ErrBadTime
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isAvailableLocked(date, time) {
		return Meeting{}, ErrSlotTaken
	}

	meeting := Meeting{
		ID:           uuid.NewString(),
		Date:         date,
		DayOfWeek:    dayOfWeek,
		Time:         time,
		AttendeeName: attendeeName,
	}

	updated := append(append([]Meeting(nil), s.meetings...), meeting)

	if err := s.store.Save(updated); err != nil {
		return Meeting{}, oops.Errorf("failed to persist meeting: %w", err)
	}

	s.meetings = updated

	slog.Info("Meeting committed",
		"date", date,
		"time", time,
		"attendee", attendeeName)

	return meeting, nil
}

// Cancel removes a committed meeting. This is the administrative deletion
// hook, not part of the negotiation protocol.
func (s *Service) Cancel(date, time string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := Meeting{Date: date, Time: time}.SlotKey()

	updated := pie.Filter(s.meetings, func(m Meeting) bool {
		return m.SlotKey() != key
	})

	if len(updated) == len(s.meetings) {
		return ErrNoMeeting
	}

	if err := s.store.Save(updated); err != nil {
		return oops.Errorf("failed to persist cancellation: %w", err)
	}

	s.meetings = updated

	slog.Info("Meeting cancelled", "date", date, "time", time)

	return nil
}
