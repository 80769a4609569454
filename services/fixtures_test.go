package services

import (
	"context"
	"testing"
	"time"

	"civicsync-api/mailer"
	"civicsync-api/models"
	"civicsync-api/repository"
	"civicsync-api/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var fixedNow = time.Date(2026, 5, 14, 10, 30, 0, 0, time.UTC)

type fixture struct {
	issues *repository.MemoryIssueRepo
	users  *repository.MemoryUserRepo
	notes  *repository.MemoryNotificationRepo
	svc    *IssueService
	query  *QueryService
	inbox  *NotificationService
}

func newFixture(t *testing.T, files storage.FileStorage, mail mailer.Mailer) *fixture {
	t.Helper()
	f := &fixture{
		issues: repository.NewMemoryIssueRepo(),
		users:  repository.NewMemoryUserRepo(),
		notes:  repository.NewMemoryNotificationRepo().WithClock(func() time.Time { return fixedNow }),
	}
	f.inbox = NewNotificationService(f.notes, f.users)
	f.inbox.now = func() time.Time { return fixedNow }
	f.svc = NewIssueService(IssueServiceDeps{
		Issues:        f.issues,
		Users:         f.users,
		Files:         files,
		Mailer:        mail,
		Notifications: f.inbox,
		Log:           zerolog.Nop(),
	})
	f.svc.now = func() time.Time { return fixedNow }
	f.svc.spawn = func(fn func()) { fn() }
	f.query = NewQueryService(f.issues, f.users)
	f.query.now = func() time.Time { return fixedNow }
	return f
}

func (f *fixture) user(t *testing.T, name string, role models.Role) models.Caller {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com", Role: role}
	require.NoError(t, f.users.Create(context.Background(), u))
	return models.Caller{ID: u.ID, Role: role}
}

func validInput() CreateIssueInput {
	return CreateIssueInput{
		Title:       "Pothole on Main Street",
		Description: "Large pothole near the bus stop causing accidents",
		Category:    string(models.RoadTransportation),
		Location: LocationInput{
			Address:     "Main Street, Ward 4",
			Coordinates: []float64{77.5946, 12.9716},
		},
	}
}

func (f *fixture) report(t *testing.T, caller models.Caller) *IssueView {
	t.Helper()
	v, err := f.svc.Create(context.Background(), caller, validInput())
	require.NoError(t, err)
	return v
}

func (f *fixture) inboxOf(t *testing.T, caller models.Caller) []NotificationView {
	t.Helper()
	page, err := f.inbox.List(context.Background(), caller, 1, 100, false)
	require.NoError(t, err)
	return page.Items
}

func ptr[T any](v T) *T { return &v }

func insertRaw(t *testing.T, f *fixture, mutate func(*models.Issue)) *models.Issue {
	t.Helper()
	issue := &models.Issue{
		ID:          primitive.NewObjectID(),
		Title:       "Seeded issue",
		Description: "Seeded issue description",
		Category:    models.Other,
		Status:      models.Pending,
		Priority:    models.Medium,
		Location:    models.Location{Address: "Somewhere", Coordinates: models.NewPoint(0, 0)},
		ReportedBy:  primitive.NewObjectID(),
		CreatedAt:   fixedNow,
		UpdatedAt:   fixedNow,
	}
	if mutate != nil {
		mutate(issue)
	}
	require.NoError(t, f.issues.Insert(context.Background(), issue))
	return issue
}
