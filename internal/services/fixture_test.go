package services

import (
	"context"
	"crewflow/internal/cache"
	"crewflow/internal/logger"
	"crewflow/internal/models"
	"crewflow/internal/repository"
	"crewflow/internal/workflow"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var fixtureNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeMailer struct {
	mu   sync.Mutex
	sent []MailMessage
	err  error
}

func (m *fakeMailer) Send(_ context.Context, message MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, message)
	return nil
}

func (m *fakeMailer) fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fixture struct {
	store         *repository.Memory
	queue         *cache.MemoryQueue
	mailer        *fakeMailer
	users         *UserService
	requests      *RequestService
	videos        *VideoService
	notifications *NotificationService

	admin *models.Caller
	staff *models.Caller
	guest *models.Caller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithQueue(t, cache.NewMemoryQueue(16))
}

func newFixtureWithQueue(t *testing.T, queue *cache.MemoryQueue) *fixture {
	t.Helper()

	log := logger.Discard()

	f := &fixture{
		store:  repository.NewMemory(),
		queue:  queue,
		mailer: &fakeMailer{},
	}
	f.notifications = NewNotificationService(
		f.queue,
		f.store.Videos(),
		f.store.Requests(),
		f.store.Users(),
		f.mailer,
		NotificationConfig{
			From:          "crew@example.com",
			RatePerMinute: 6000,
			PollTimeout:   10 * time.Millisecond,
			RetryDelay:    10 * time.Millisecond,
		},
		log,
	)

	engine := workflow.NewEngine(f.store.Requests(), f.store.Videos(), f.notifications, log)
	engine.SetClock(func() time.Time { return fixtureNow })

	f.users = NewUserService(f.store.Users(), log)
	f.requests = NewRequestService(f.store.Requests(), f.users, engine, log)
	f.videos = NewVideoService(f.store.Videos(), f.store.Requests(), f.users, engine, log)

	f.admin = f.addUser(t, "admin@example.com", false, true)
	f.staff = f.addUser(t, "staff@example.com", true, false)
	f.guest = f.addUser(t, "guest@example.com", false, false)
	return f
}

func (f *fixture) addUser(t *testing.T, email string, staff, admin bool) *models.Caller {
	t.Helper()
	user := &models.User{
		Username:  email,
		Email:     email,
		FirstName: "Test",
		LastName:  "User",
		IsActive:  true,
		IsStaff:   staff,
		IsAdmin:   admin,
		Password:  "hash",
	}
	require.NoError(t, f.store.Users().Create(context.Background(), user))
	caller := user.AsCaller()
	return &caller
}

// createRequest stores a request that ended an hour before fixtureNow.
func (f *fixture) createRequest(t *testing.T, data map[string]any) *models.Request {
	t.Helper()
	request, err := f.requests.Create(context.Background(), f.admin, CreateRequestInput{
		Title:          "Spring concert",
		StartDatetime:  fixtureNow.Add(-3 * time.Hour),
		EndDatetime:    fixtureNow.Add(-time.Hour),
		Place:          "Main hall",
		Type:           "concert",
		AdditionalData: data,
	})
	require.NoError(t, err)
	return request
}
