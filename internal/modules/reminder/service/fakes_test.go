package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"anoa.com/bayarin/internal/entity"
	"anoa.com/bayarin/pkg/apperror"
	"github.com/google/uuid"
)

// memoryReminderRepo mimics the postgres repository: lookups return copies,
// so mutations only stick after an explicit Update, like with a real row.
type memoryReminderRepo struct {
	mu        sync.Mutex
	reminders map[uuid.UUID]entity.Reminder
}

func newMemoryReminderRepo() *memoryReminderRepo {
	return &memoryReminderRepo{reminders: make(map[uuid.UUID]entity.Reminder)}
}

func (m *memoryReminderRepo) Create(_ context.Context, reminder *entity.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if reminder.ID == uuid.Nil {
		reminder.ID = uuid.New()
	}
	m.reminders[reminder.ID] = *reminder
	return nil
}

func (m *memoryReminderRepo) Update(_ context.Context, reminder *entity.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reminders[reminder.ID] = *reminder
	return nil
}

func (m *memoryReminderRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reminders[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return &r, nil
}

func (m *memoryReminderRepo) FindByDedupKey(_ context.Context, entityType entity.EntityType, entityID uuid.UUID, reminderType entity.ReminderType) (*entity.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reminders {
		if r.EntityType == entityType && r.EntityID == entityID && r.Type == reminderType {
			r := r
			return &r, nil
		}
	}
	return nil, apperror.ErrNotFound
}

func (m *memoryReminderRepo) ListDue(_ context.Context, now time.Time, limit int) ([]entity.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []entity.Reminder
	for _, r := range m.reminders {
		if r.Status == entity.ReminderScheduled && !r.ScheduledFor.After(now) {
			due = append(due, r)
		}
	}
	// oldest due first
	for i := 0; i < len(due); i++ {
		for j := i + 1; j < len(due); j++ {
			if due[j].ScheduledFor.Before(due[i].ScheduledFor) {
				due[i], due[j] = due[j], due[i]
			}
		}
	}
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (m *memoryReminderRepo) CancelOne(_ context.Context, entityType entity.EntityType, entityID uuid.UUID, reminderType entity.ReminderType) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.reminders {
		if r.EntityType == entityType && r.EntityID == entityID && r.Type == reminderType && r.Status == entity.ReminderScheduled {
			r.Status = entity.ReminderCanceled
			m.reminders[id] = r
			n++
		}
	}
	return n, nil
}

func (m *memoryReminderRepo) CancelAllForEntity(_ context.Context, entityType entity.EntityType, entityID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.reminders {
		if r.EntityType == entityType && r.EntityID == entityID && r.Status == entity.ReminderScheduled {
			r.Status = entity.ReminderCanceled
			m.reminders[id] = r
			n++
		}
	}
	return n, nil
}

func (m *memoryReminderRepo) CountForEntity(_ context.Context, entityType entity.EntityType, entityID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.reminders {
		if r.EntityType == entityType && r.EntityID == entityID {
			n++
		}
	}
	return n, nil
}

func (m *memoryReminderRepo) all() []entity.Reminder {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.Reminder, 0, len(m.reminders))
	for _, r := range m.reminders {
		out = append(out, r)
	}
	return out
}

// memoryLocker gives real mutual exclusion semantics without Redis. TTLs are
// ignored; tests never simulate a crashed holder.
type memoryLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func newMemoryLocker() *memoryLocker {
	return &memoryLocker{held: make(map[string]string)}
}

func (l *memoryLocker) Acquire(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.held[key]; taken {
		return "", false, nil
	}
	token := uuid.NewString()
	l.held[key] = token
	return token, true, nil
}

func (l *memoryLocker) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

// memoryUserRepo backs the channel router, preference gate and handlers.
type memoryUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]entity.User
	prefs map[uuid.UUID]entity.NotificationPreference
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{
		users: make(map[uuid.UUID]entity.User),
		prefs: make(map[uuid.UUID]entity.NotificationPreference),
	}
}

func (m *memoryUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return &u, nil
}

func (m *memoryUserRepo) FindPreferences(_ context.Context, userID uuid.UUID) (*entity.NotificationPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prefs[userID]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return &p, nil
}

func (m *memoryUserRepo) ListIncompleteOnboarding(_ context.Context, signedUpBefore time.Time) ([]entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.User
	for _, u := range m.users {
		if !u.OnboardingCompleted && u.CreatedAt.Before(signedUpBefore) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memoryUserRepo) put(u entity.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *memoryUserRepo) putPrefs(p entity.NotificationPreference) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[p.UserID] = p
}

type memoryRequestRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]entity.PaymentRequest
}

func newMemoryRequestRepo() *memoryRequestRepo {
	return &memoryRequestRepo{requests: make(map[uuid.UUID]entity.PaymentRequest)}
}

func (m *memoryRequestRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return &r, nil
}

func (m *memoryRequestRepo) ListAwaiting(_ context.Context, now time.Time) ([]entity.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.PaymentRequest
	for _, r := range m.requests {
		if r.AwaitingResponse(now) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryRequestRepo) put(r entity.PaymentRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.ID] = r
}

type memorySubscriptionRepo struct {
	mu   sync.Mutex
	subs map[uuid.UUID]entity.Subscription
}

func newMemorySubscriptionRepo() *memorySubscriptionRepo {
	return &memorySubscriptionRepo{subs: make(map[uuid.UUID]entity.Subscription)}
}

func (m *memorySubscriptionRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return &s, nil
}

func (m *memorySubscriptionRepo) ListRenewing(_ context.Context, now time.Time) ([]entity.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Subscription
	for _, s := range m.subs {
		if s.Renewing() && s.CurrentPeriodEnd.After(now) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memorySubscriptionRepo) put(s entity.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[s.ID] = s
}

var errSMTPUnavailable = errors.New("smtp: connection refused")

type sentMessage struct {
	to      string
	subject string
	body    string
}

// fakeEmailSender records sends and can be scripted to fail the first N
// attempts.
type fakeEmailSender struct {
	mu        sync.Mutex
	sent      []sentMessage
	failFirst int
	calls     int
	err       error
}

func (f *fakeEmailSender) Send(to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	if f.calls <= f.failFirst {
		return errSMTPUnavailable
	}
	f.sent = append(f.sent, sentMessage{to: to, subject: subject, body: body})
	return nil
}

func (f *fakeEmailSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeSMSSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeSMSSender) Send(to, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{to: to, body: msg})
	return nil
}

type fakePushSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakePushSender) Send(deviceToken, title, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{to: deviceToken, subject: title, body: body})
	return nil
}
