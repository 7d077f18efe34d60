package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store. Records are lost on restart.
type Memory struct {
	mu       sync.RWMutex
	configs  map[string]BusinessConfig
	hours    map[string]BusinessHours
	types    []AppointmentType
	events   map[string]CalendarEvent
	now      func() time.Time
	failNext map[string]error
}

// NewMemory returns an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{
		configs:  make(map[string]BusinessConfig),
		hours:    make(map[string]BusinessHours),
		events:   make(map[string]CalendarEvent),
		now:      time.Now,
		failNext: make(map[string]error),
	}
}

// FailNext makes the next call to the named method return err.
// Method names are the Store method names, e.g. "InsertCalendarEvent".
func (m *Memory) FailNext(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext[method] = err
}

func (m *Memory) takeFailure(method string) error {
	err, ok := m.failNext[method]
	if !ok {
		return nil
	}
	delete(m.failNext, method)
	return err
}

func (m *Memory) GetBusinessConfig(_ context.Context, businessID string) (*BusinessConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.configs[businessID]
	if !ok {
		return nil, ErrNotFound
	}
	return &cfg, nil
}

func (m *Memory) UpsertBusinessConfig(_ context.Context, cfg BusinessConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs[cfg.ID] = cfg
	return nil
}

func (m *Memory) MarkCalendarNeedsReauth(_ context.Context, businessID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("MarkCalendarNeedsReauth"); err != nil {
		return err
	}
	cfg, ok := m.configs[businessID]
	if !ok {
		return ErrNotFound
	}
	cfg.NeedsReauth = true
	cfg.CalendarUpdatedAt = &at
	m.configs[businessID] = cfg
	return nil
}

func (m *Memory) GetBusinessHours(_ context.Context, businessID string) (*BusinessHours, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.hours[businessID]
	if !ok {
		return nil, ErrNotFound
	}
	h.Hours = copyHours(h.Hours)
	return &h, nil
}

func (m *Memory) SaveBusinessHours(_ context.Context, hours BusinessHours) (*BusinessHours, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("SaveBusinessHours"); err != nil {
		return nil, err
	}
	hours.Hours = copyHours(hours.Hours)
	hours.UpdatedAt = m.now()
	m.hours[hours.BusinessID] = hours
	saved := hours
	saved.Hours = copyHours(hours.Hours)
	return &saved, nil
}

func (m *Memory) ListAppointmentTypes(_ context.Context, businessID string) ([]AppointmentType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []AppointmentType
	for _, t := range m.types {
		if t.BusinessID == businessID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) GetAppointmentType(_ context.Context, businessID, id string) (*AppointmentType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.types {
		if t.ID == id && t.BusinessID == businessID {
			return &t, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) SaveAppointmentType(_ context.Context, t AppointmentType) (*AppointmentType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if t.ID != "" {
		for i, existing := range m.types {
			if existing.ID == t.ID && existing.BusinessID == t.BusinessID {
				existing.Name = t.Name
				existing.Duration = t.Duration
				existing.UpdatedAt = now
				m.types[i] = existing
				return &existing, nil
			}
		}
		return nil, ErrNotFound
	}
	t.ID = uuid.NewString()
	t.CreatedAt = now
	t.UpdatedAt = now
	m.types = append(m.types, t)
	return &t, nil
}

func (m *Memory) DeleteAppointmentType(_ context.Context, businessID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.types {
		if t.ID == id && t.BusinessID == businessID {
			m.types = append(m.types[:i], m.types[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) InsertCalendarEvent(_ context.Context, ev CalendarEvent) (*CalendarEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("InsertCalendarEvent"); err != nil {
		return nil, err
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	ev.CreatedAt = m.now()
	m.events[ev.ID] = ev
	return &ev, nil
}

func (m *Memory) GetCalendarEvent(_ context.Context, businessID, id string) (*CalendarEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ev, ok := m.events[id]
	if !ok || ev.BusinessID != businessID {
		return nil, ErrNotFound
	}
	return &ev, nil
}

func (m *Memory) FindCalendarEventByExternalID(_ context.Context, businessID, eventID string) (*CalendarEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ev := range m.events {
		if ev.EventID == eventID && ev.BusinessID == businessID {
			return &ev, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CancelCalendarEvent(_ context.Context, businessID, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("CancelCalendarEvent"); err != nil {
		return err
	}
	ev, ok := m.events[id]
	if !ok || ev.BusinessID != businessID {
		return ErrNotFound
	}
	ev.Canceled = true
	ev.CanceledAt = &at
	m.events[id] = ev
	return nil
}

func (m *Memory) DeleteCalendarEvent(_ context.Context, businessID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok || ev.BusinessID != businessID {
		return ErrNotFound
	}
	delete(m.events, id)
	return nil
}

func (m *Memory) ListActiveCalendarEvents(_ context.Context, businessID, phone string) ([]CalendarEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []CalendarEvent
	for _, ev := range m.events {
		if ev.BusinessID == businessID && ev.CustomerPhone == phone && !ev.Canceled {
			out = append(out, ev)
		}
	}
	sortEvents(out)
	return out, nil
}

func (m *Memory) ListActiveCalendarEventsBetween(_ context.Context, businessID, fromDate, toDate string) ([]CalendarEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("ListActiveCalendarEventsBetween"); err != nil {
		return nil, err
	}
	var out []CalendarEvent
	for _, ev := range m.events {
		if ev.BusinessID == businessID && !ev.Canceled && ev.EventDate >= fromDate && ev.EventDate <= toDate {
			out = append(out, ev)
		}
	}
	sortEvents(out)
	return out, nil
}

func sortEvents(events []CalendarEvent) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].EventDate != events[j].EventDate {
			return events[i].EventDate < events[j].EventDate
		}
		return events[i].EventTime < events[j].EventTime
	})
}

func (m *Memory) Migrate(context.Context) error { return nil }

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() {}

func copyHours(h WeeklyHours) WeeklyHours {
	if h == nil {
		return nil
	}
	out := make(WeeklyHours, len(h))
	for day, ranges := range h {
		out[day] = append([]TimeRange(nil), ranges...)
	}
	return out
}
