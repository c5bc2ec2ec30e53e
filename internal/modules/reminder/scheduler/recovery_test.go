package scheduler

import (
	"context"
	"testing"
	"time"

	"anoa.com/bayarin/internal/entity"
	reminderService "anoa.com/bayarin/internal/modules/reminder/service"
	"anoa.com/bayarin/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingReminderRepo satisfies the reminder repository with only the count
// query implemented; the scan never touches the rest.
type countingReminderRepo struct {
	counts map[string]int64
}

func newCountingReminderRepo() *countingReminderRepo {
	return &countingReminderRepo{counts: make(map[string]int64)}
}

func countKey(entityType entity.EntityType, entityID uuid.UUID) string {
	return string(entityType) + ":" + entityID.String()
}

func (c *countingReminderRepo) CountForEntity(_ context.Context, entityType entity.EntityType, entityID uuid.UUID) (int64, error) {
	return c.counts[countKey(entityType, entityID)], nil
}

func (c *countingReminderRepo) Create(context.Context, *entity.Reminder) error { return nil }
func (c *countingReminderRepo) Update(context.Context, *entity.Reminder) error { return nil }

func (c *countingReminderRepo) FindByID(context.Context, uuid.UUID) (*entity.Reminder, error) {
	return nil, apperror.ErrNotFound
}

func (c *countingReminderRepo) FindByDedupKey(context.Context, entity.EntityType, uuid.UUID, entity.ReminderType) (*entity.Reminder, error) {
	return nil, apperror.ErrNotFound
}

func (c *countingReminderRepo) ListDue(context.Context, time.Time, int) ([]entity.Reminder, error) {
	return nil, nil
}

func (c *countingReminderRepo) CancelOne(context.Context, entity.EntityType, uuid.UUID, entity.ReminderType) (int64, error) {
	return 0, nil
}

func (c *countingReminderRepo) CancelAllForEntity(context.Context, entity.EntityType, uuid.UUID) (int64, error) {
	return 0, nil
}

// countingReminders records like recordingReminders and also reflects each
// scheduled row in the count store, the way the real service does through the
// repository.
type countingReminders struct {
	*recordingReminders
	repo *countingReminderRepo
}

func (c *countingReminders) Schedule(ctx context.Context, params reminderService.ScheduleParams) error {
	if err := c.recordingReminders.Schedule(ctx, params); err != nil {
		return err
	}
	c.repo.counts[countKey(params.EntityType, params.EntityID)]++
	return nil
}

type recoveryFixture struct {
	reminders *recordingReminders
	repo      *countingReminderRepo
	requests  *fakeRequests
	subs      *fakeSubscriptions
	users     *fakeUsers
	scanner   *RecoveryScanner
}

func newRecoveryFixture(now time.Time) *recoveryFixture {
	f := &recoveryFixture{
		reminders: &recordingReminders{},
		repo:      newCountingReminderRepo(),
		requests:  newFakeRequests(),
		subs:      newFakeSubscriptions(),
		users:     newFakeUsers(),
	}
	svc := &countingReminders{recordingReminders: f.reminders, repo: f.repo}

	requestSched := NewRequestScheduler(svc, f.requests)
	requestSched.now = func() time.Time { return now }
	engagementSched := NewEngagementScheduler(svc, f.users)
	engagementSched.now = func() time.Time { return now }
	subscriptionSched := NewSubscriptionScheduler(svc, f.subs)
	subscriptionSched.now = func() time.Time { return now }

	f.scanner = NewRecoveryScanner(f.repo, f.requests, f.subs, f.users, requestSched, engagementSched, subscriptionSched)
	f.scanner.now = func() time.Time { return now }
	return f
}

func TestScan_BackfillsAwaitingRequestWithoutReminders(t *testing.T) {
	now := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	f := newRecoveryFixture(now)

	request := entity.PaymentRequest{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		ClientEmail: "client@example.com",
		Status:      entity.RequestAwaiting,
		SentAt:      ptr(now.Add(-6 * time.Hour)),
	}
	f.requests.requests[request.ID] = request

	count, err := f.scanner.ScanAndScheduleMissedReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Len(t, f.reminders.scheduled, 2) // the unopened pair
}

func TestScan_BackfillsOpenedRequestWithUnpaidChain(t *testing.T) {
	now := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	f := newRecoveryFixture(now)

	openedAt := now.Add(-12 * time.Hour)
	request := entity.PaymentRequest{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		ClientEmail: "client@example.com",
		Status:      entity.RequestOpened,
		SentAt:      ptr(now.Add(-36 * time.Hour)),
		OpenedAt:    ptr(openedAt),
	}
	f.requests.requests[request.ID] = request

	count, err := f.scanner.ScanAndScheduleMissedReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The opened-stage chain, not the sent-stage unopened pair.
	unpaid := f.reminders.find(t, entity.ReminderRequestUnpaid3d)
	assert.Equal(t, request.ID, unpaid.EntityID)
	assert.True(t, unpaid.ScheduledFor.Equal(openedAt.Add(72*time.Hour)))
	require.Len(t, f.reminders.scheduled, 1)
}

func TestScan_DoesNotCountEntitiesThatNeededNothing(t *testing.T) {
	now := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	f := newRecoveryFixture(now)

	// Opened request with no opened_at on record: the opened-stage scheduler
	// has nothing to schedule for it.
	request := entity.PaymentRequest{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		ClientEmail: "client@example.com",
		Status:      entity.RequestOpened,
		SentAt:      ptr(now.Add(-36 * time.Hour)),
	}
	f.requests.requests[request.ID] = request

	count, err := f.scanner.ScanAndScheduleMissedReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count, "the total must only reflect entities that got rows")
	assert.Empty(t, f.reminders.scheduled)
}

func TestScan_SkipsEntitiesWithExistingReminders(t *testing.T) {
	now := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	f := newRecoveryFixture(now)

	request := entity.PaymentRequest{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		ClientEmail: "client@example.com",
		Status:      entity.RequestAwaiting,
		SentAt:      ptr(now.Add(-6 * time.Hour)),
	}
	f.requests.requests[request.ID] = request
	f.repo.counts[countKey(entity.EntityRequest, request.ID)] = 2

	count, err := f.scanner.ScanAndScheduleMissedReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Empty(t, f.reminders.scheduled)
}

func TestScan_BackfillsStalledOnboarding(t *testing.T) {
	now := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	f := newRecoveryFixture(now)

	// Signed up two days ago, never finished onboarding, no reminder rows.
	stalled := entity.User{ID: uuid.New(), Email: "stalled@example.com", CreatedAt: now.Add(-48 * time.Hour)}
	f.users.users[stalled.ID] = stalled

	// Signed up an hour ago: too fresh for the scan.
	fresh := entity.User{ID: uuid.New(), Email: "fresh@example.com", CreatedAt: now.Add(-time.Hour)}
	f.users.users[fresh.ID] = fresh

	count, err := f.scanner.ScanAndScheduleMissedReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	for _, p := range f.reminders.scheduled {
		assert.Equal(t, stalled.ID, p.UserID)
	}
	// Onboarding pair plus the verification nudge.
	assert.Len(t, f.reminders.scheduled, 3)
}

func TestScan_BackfillsRenewingSubscription(t *testing.T) {
	now := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	f := newRecoveryFixture(now)

	sub := entity.Subscription{
		ID:               uuid.New(),
		CreatorID:        uuid.New(),
		SubscriberID:     uuid.New(),
		Status:           entity.SubscriptionActive,
		Interval:         entity.IntervalMonthly,
		CurrentPeriodEnd: now.Add(20 * 24 * time.Hour),
	}
	f.subs.subs[sub.ID] = sub

	count, err := f.scanner.ScanAndScheduleMissedReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Len(t, f.reminders.scheduled, 3) // T-7d, T-3d, T-1d
}

func TestScan_EmptyStateFindsNothing(t *testing.T) {
	f := newRecoveryFixture(time.Now())

	count, err := f.scanner.ScanAndScheduleMissedReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Empty(t, f.reminders.scheduled)
}
