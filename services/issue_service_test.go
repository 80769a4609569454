package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"civicsync-api/apperrors"
	"civicsync-api/mailer"
	"civicsync-api/mocks"
	"civicsync-api/models"
	"civicsync-api/repository"
	"civicsync-api/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"
)

func TestCreate_Defaults(t *testing.T) {
	ctrl := gomock.NewController(t)
	mail := mocks.NewMockMailer(ctrl)
	f := newFixture(t, nil, mail)
	citizen := f.user(t, "asha", models.RoleCitizen)

	mail.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg mailer.Message) error {
		assert.Equal(t, "asha@example.com", msg.To)
		assert.Equal(t, "Issue Reported Successfully - CivicSync", msg.Subject)
		return nil
	})

	view := f.report(t, citizen)

	assert.Equal(t, models.Pending, view.Status)
	assert.Equal(t, models.Medium, view.Priority)
	assert.Equal(t, citizen.ID, view.Issue.ReportedBy)
	assert.Equal(t, "asha", view.ReportedBy.Name)
	assert.Empty(t, view.Upvotes)
	assert.Zero(t, view.UpvoteCount)
	assert.Empty(t, view.Comments)
	assert.Empty(t, view.StatusHistory)
	assert.Equal(t, fixedNow, view.CreatedAt)
	assert.Equal(t, models.NewPoint(77.5946, 12.9716), view.Location.Coordinates)

	stored, err := f.issues.FindByID(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pothole on Main Street", stored.Title)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t, nil, nil)
	citizen := f.user(t, "asha", models.RoleCitizen)

	tests := []struct {
		name   string
		mutate func(*CreateIssueInput)
		field  string
	}{
		{"short title", func(in *CreateIssueInput) { in.Title = "Hole" }, "title"},
		{"padded short title", func(in *CreateIssueInput) { in.Title = "   Hole   " }, "title"},
		{"long description", func(in *CreateIssueInput) { in.Description = strings.Repeat("x", 1001) }, "description"},
		{"unknown category", func(in *CreateIssueInput) { in.Category = "Traffic" }, "category"},
		{"bad priority", func(in *CreateIssueInput) { in.Priority = "urgent" }, "priority"},
		{"missing address", func(in *CreateIssueInput) { in.Location.Address = "" }, "location.address"},
		{"missing coordinates", func(in *CreateIssueInput) { in.Location.Coordinates = nil }, "location.coordinates"},
		{"latitude out of range", func(in *CreateIssueInput) { in.Location.Coordinates = []float64{10, 91} }, "location.coordinates"},
		{"empty coordinates", func(in *CreateIssueInput) { in.Location.Coordinates = []float64{} }, "location.coordinates"},
		{"single coordinate", func(in *CreateIssueInput) { in.Location.Coordinates = []float64{77.59} }, "location.coordinates"},
		{"NaN longitude", func(in *CreateIssueInput) { in.Location.Coordinates = []float64{math.NaN(), 12.97} }, "location.coordinates"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := f.svc.Create(context.Background(), citizen, in)

			var appErr *apperrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.KindValidation, appErr.Kind)
			fields := make([]string, 0, len(appErr.Fields))
			for _, fe := range appErr.Fields {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}

	n, err := f.issues.Count(context.Background(), repository.IssueFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdate_Authorization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	owner := f.user(t, "owner", models.RoleCitizen)
	stranger := f.user(t, "stranger", models.RoleCitizen)
	staff := f.user(t, "staff", models.RoleMunicipalStaff)
	issue := f.report(t, owner)

	_, err := f.svc.Update(ctx, stranger, issue.ID, UpdateIssueInput{Title: ptr("Changed title")})
	assert.True(t, apperrors.Is(err, apperrors.KindAuthorization))

	_, err = f.svc.Update(ctx, owner, issue.ID, UpdateIssueInput{AssignedTo: ptr(staff.ID.Hex())})
	assert.True(t, apperrors.Is(err, apperrors.KindAuthorization))

	_, err = f.svc.Update(ctx, owner, issue.ID, UpdateIssueInput{RejectionReason: ptr("nope")})
	assert.True(t, apperrors.Is(err, apperrors.KindAuthorization))

	_, err = f.svc.Update(ctx, owner, primitive.NewObjectID(), UpdateIssueInput{Title: ptr("Changed title")})
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

	_, err = f.svc.Update(ctx, owner, issue.ID, UpdateIssueInput{Title: ptr("Hi")})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	for _, coords := range [][]float64{{}, {77.59}, {math.Inf(1), 0}} {
		_, err = f.svc.Update(ctx, owner, issue.ID, UpdateIssueInput{Location: &LocationInput{Address: "Main St", Coordinates: coords}})
		assert.True(t, apperrors.Is(err, apperrors.KindValidation), "coordinates %v", coords)
	}

	updated, err := f.svc.Update(ctx, owner, issue.ID, UpdateIssueInput{Title: ptr("  Deep pothole on Main Street ")})
	require.NoError(t, err)
	assert.Equal(t, "Deep pothole on Main Street", updated.Title)
	assert.Empty(t, updated.StatusHistory)

	updated, err = f.svc.Update(ctx, staff, issue.ID, UpdateIssueInput{Priority: ptr("high")})
	require.NoError(t, err)
	assert.Equal(t, models.High, updated.Priority)
}

func TestUpdate_StatusHistory(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	mail := mocks.NewMockMailer(ctrl)
	f := newFixture(t, nil, mail)
	owner := f.user(t, "owner", models.RoleCitizen)
	staff := f.user(t, "staff", models.RoleMunicipalStaff)

	mail.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil) // created
	issue := f.report(t, owner)

	var subjects []string
	mail.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg mailer.Message) error {
		subjects = append(subjects, msg.Subject)
		return nil
	}).Times(2)

	updated, err := f.svc.Update(ctx, staff, issue.ID, UpdateIssueInput{Status: ptr("in_progress"), StatusNote: ptr("Crew dispatched")})
	require.NoError(t, err)
	require.Len(t, updated.StatusHistory, 1)
	assert.Equal(t, models.InProgress, updated.StatusHistory[0].Status)
	assert.Equal(t, staff.ID, updated.StatusHistory[0].StatusChange.ChangedBy)
	assert.Equal(t, "staff", updated.StatusHistory[0].ChangedBy.Name)
	assert.Equal(t, "Crew dispatched", updated.StatusHistory[0].Note)
	assert.Nil(t, updated.ResolvedAt)

	// same status: no new entry, no email
	updated, err = f.svc.Update(ctx, staff, issue.ID, UpdateIssueInput{Status: ptr("in_progress")})
	require.NoError(t, err)
	assert.Len(t, updated.StatusHistory, 1)

	updated, err = f.svc.Update(ctx, staff, issue.ID, UpdateIssueInput{Status: ptr("resolved")})
	require.NoError(t, err)
	require.Len(t, updated.StatusHistory, 2)
	require.NotNil(t, updated.ResolvedAt)
	assert.Equal(t, fixedNow, *updated.ResolvedAt)

	assert.Equal(t, []string{
		"Issue Status Updated: in_progress - CivicSync",
		"Issue Status Updated: resolved - CivicSync",
	}, subjects)

	inbox := f.inboxOf(t, owner)
	require.Len(t, inbox, 2)
	types := []models.NotificationType{inbox[0].Type, inbox[1].Type}
	assert.ElementsMatch(t, []models.NotificationType{models.NotificationIssueUpdated, models.NotificationIssueResolved}, types)
	assert.Equal(t, "staff", inbox[0].Sender.Name)
}

func TestUpdate_SideEffectFailureKeepsUpdate(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	mail := mocks.NewMockMailer(ctrl)
	f := newFixture(t, nil, mail)
	owner := f.user(t, "owner", models.RoleCitizen)
	admin := f.user(t, "admin", models.RoleAdmin)

	mail.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("smtp down")).Times(2)
	issue := f.report(t, owner)

	updated, err := f.svc.Update(ctx, admin, issue.ID, UpdateIssueInput{Status: ptr("rejected"), RejectionReason: ptr("Duplicate")})
	require.NoError(t, err)
	assert.Equal(t, models.Rejected, updated.Status)
	assert.Equal(t, "Duplicate", updated.RejectionReason)

	stored, err := f.issues.FindByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Rejected, stored.Status)

	inbox := f.inboxOf(t, owner)
	require.Len(t, inbox, 1)
	assert.Equal(t, models.NotificationIssueRejected, inbox[0].Type)
	assert.Contains(t, inbox[0].Message, "Duplicate")
}

func TestUpdate_Assignment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	owner := f.user(t, "owner", models.RoleCitizen)
	staff := f.user(t, "staff", models.RoleMunicipalStaff)
	worker := f.user(t, "worker", models.RoleMunicipalStaff)
	issue := f.report(t, owner)

	_, err := f.svc.Update(ctx, staff, issue.ID, UpdateIssueInput{AssignedTo: ptr(primitive.NewObjectID().Hex())})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	_, err = f.svc.Update(ctx, staff, issue.ID, UpdateIssueInput{AssignedTo: ptr("not-an-id")})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	updated, err := f.svc.Update(ctx, staff, issue.ID, UpdateIssueInput{AssignedTo: ptr(worker.ID.Hex())})
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, "worker", updated.AssignedTo.Name)

	inbox := f.inboxOf(t, worker)
	require.Len(t, inbox, 1)
	assert.Equal(t, models.NotificationIssueAssigned, inbox[0].Type)

	// reassigning to the same user does not notify again
	_, err = f.svc.Update(ctx, staff, issue.ID, UpdateIssueInput{AssignedTo: ptr(worker.ID.Hex())})
	require.NoError(t, err)
	assert.Len(t, f.inboxOf(t, worker), 1)

	updated, err = f.svc.Update(ctx, staff, issue.ID, UpdateIssueInput{AssignedTo: ptr("")})
	require.NoError(t, err)
	assert.Nil(t, updated.AssignedTo)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	owner := f.user(t, "owner", models.RoleCitizen)
	stranger := f.user(t, "stranger", models.RoleCitizen)
	staff := f.user(t, "staff", models.RoleMunicipalStaff)
	admin := f.user(t, "admin", models.RoleAdmin)

	issue := f.report(t, owner)
	for _, c := range []models.Caller{stranger, staff} {
		err := f.svc.Delete(ctx, c, issue.ID)
		assert.True(t, apperrors.Is(err, apperrors.KindAuthorization))
		_, err = f.issues.FindByID(ctx, issue.ID)
		assert.NoError(t, err, "record must survive a rejected delete")
	}

	require.NoError(t, f.svc.Delete(ctx, owner, issue.ID))
	_, err := f.svc.Get(ctx, issue.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

	other := f.report(t, owner)
	require.NoError(t, f.svc.Delete(ctx, admin, other.ID))

	err = f.svc.Delete(ctx, admin, other.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestDelete_StorageFailureDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	files := mocks.NewMockFileStorage(ctrl)
	f := newFixture(t, files, nil)
	owner := f.user(t, "owner", models.RoleCitizen)

	issue := insertRaw(t, f, func(is *models.Issue) {
		is.ReportedBy = owner.ID
		is.Images = []models.Image{{PublicID: "civicsync/issues/a.png"}, {PublicID: "civicsync/issues/b.png"}}
	})

	gomock.InOrder(
		files.EXPECT().Delete(gomock.Any(), "civicsync/issues/a.png").Return(storage.DeleteResult{}, errors.New("storage unreachable")),
		files.EXPECT().Delete(gomock.Any(), "civicsync/issues/b.png").Return(storage.DeleteResult{Result: storage.ResultOK}, nil),
	)

	require.NoError(t, f.svc.Delete(ctx, owner, issue.ID))
	_, err := f.issues.FindByID(ctx, issue.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestToggleUpvote(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	owner := f.user(t, "owner", models.RoleCitizen)
	voter := f.user(t, "voter", models.RoleCitizen)
	issue := f.report(t, owner)

	res, err := f.svc.ToggleUpvote(ctx, voter, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, UpvoteResult{Upvotes: 1, UserUpvoted: true}, res)

	res, err = f.svc.ToggleUpvote(ctx, owner, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, UpvoteResult{Upvotes: 2, UserUpvoted: true}, res)

	res, err = f.svc.ToggleUpvote(ctx, voter, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, UpvoteResult{Upvotes: 1, UserUpvoted: false}, res)

	stored, err := f.issues.FindByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{owner.ID}, stored.Upvotes)
	assert.Equal(t, len(stored.Upvotes), stored.UpvoteCount)

	_, err = f.svc.ToggleUpvote(ctx, voter, primitive.NewObjectID())
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestToggleUpvote_Milestone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	owner := f.user(t, "owner", models.RoleCitizen)

	voters := make([]primitive.ObjectID, 9)
	for i := range voters {
		voters[i] = primitive.NewObjectID()
	}
	issue := insertRaw(t, f, func(is *models.Issue) {
		is.ReportedBy = owner.ID
		is.Upvotes = voters
		is.UpvoteCount = len(voters)
	})

	tenth := models.Caller{ID: primitive.NewObjectID(), Role: models.RoleCitizen}
	res, err := f.svc.ToggleUpvote(ctx, tenth, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Upvotes)

	inbox := f.inboxOf(t, owner)
	require.Len(t, inbox, 1)
	assert.Equal(t, models.NotificationUpvoteMilestone, inbox[0].Type)
	assert.Contains(t, inbox[0].Message, "10 upvotes")

	// dropping below and back to ten notifies only on the way up
	_, err = f.svc.ToggleUpvote(ctx, tenth, issue.ID)
	require.NoError(t, err)
	assert.Len(t, f.inboxOf(t, owner), 1)
}

func TestAddComment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	owner := f.user(t, "owner", models.RoleCitizen)
	neighbour := f.user(t, "neighbour", models.RoleCitizen)
	issue := f.report(t, owner)

	comments, err := f.svc.AddComment(ctx, neighbour, issue.ID, "  Same problem on my street  ")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "Same problem on my street", comments[0].Text)
	assert.Equal(t, "neighbour", comments[0].User.Name)
	assert.Equal(t, fixedNow, comments[0].CreatedAt)

	inbox := f.inboxOf(t, owner)
	require.Len(t, inbox, 1)
	assert.Equal(t, models.NotificationCommentAdded, inbox[0].Type)
	assert.Equal(t, "/issues/"+issue.ID.Hex(), inbox[0].Link)

	comments, err = f.svc.AddComment(ctx, owner, issue.ID, "Thanks")
	require.NoError(t, err)
	assert.Len(t, comments, 2)
	assert.Len(t, f.inboxOf(t, owner), 1, "own comments do not notify")

	_, err = f.svc.AddComment(ctx, owner, issue.ID, "   ")
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
	_, err = f.svc.AddComment(ctx, owner, issue.ID, strings.Repeat("a", 501))
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
	_, err = f.svc.AddComment(ctx, owner, primitive.NewObjectID(), "")
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestGet_MissingUsersKeepTheirID(t *testing.T) {
	f := newFixture(t, nil, nil)
	ghost := primitive.NewObjectID()
	issue := insertRaw(t, f, func(is *models.Issue) { is.ReportedBy = ghost })

	view, err := f.svc.Get(context.Background(), issue.ID)
	require.NoError(t, err)
	require.NotNil(t, view.ReportedBy)
	assert.Equal(t, ghost, view.ReportedBy.ID)
	assert.Empty(t, view.ReportedBy.Name)
	assert.NotNil(t, view.Images)
}

func TestConcurrentWritesKeepEveryChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	owner := f.user(t, "owner", models.RoleCitizen)
	staff := f.user(t, "staff", models.RoleMunicipalStaff)
	issue := f.report(t, owner)

	voters := make([]models.Caller, 20)
	for i := range voters {
		voters[i] = f.user(t, fmt.Sprintf("voter%02d", i), models.RoleCitizen)
	}

	var wg sync.WaitGroup
	for i, voter := range voters {
		voter := voter
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.svc.ToggleUpvote(ctx, voter, issue.ID)
			assert.NoError(t, err)
		}()
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.AddComment(ctx, owner, issue.ID, fmt.Sprintf("Update %d from the street", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := f.svc.Update(ctx, staff, issue.ID, UpdateIssueInput{Status: ptr("in_progress"), Priority: ptr("high")})
		assert.NoError(t, err)
	}()
	wg.Wait()

	stored, err := f.issues.FindByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InProgress, stored.Status)
	assert.Equal(t, models.High, stored.Priority)
	assert.Len(t, stored.StatusHistory, 1)
	assert.Len(t, stored.Comments, len(voters))
	assert.Len(t, stored.Upvotes, len(voters))
	assert.Equal(t, len(voters), stored.UpvoteCount)
}

func TestUpdate_AfterCommentKeepsComment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	owner := f.user(t, "owner", models.RoleCitizen)
	staff := f.user(t, "staff", models.RoleMunicipalStaff)
	issue := f.report(t, owner)

	_, err := f.svc.AddComment(ctx, owner, issue.ID, "It is getting deeper")
	require.NoError(t, err)
	updated, err := f.svc.Update(ctx, staff, issue.ID, UpdateIssueInput{Status: ptr("in_progress")})
	require.NoError(t, err)

	assert.Equal(t, models.InProgress, updated.Status)
	require.Len(t, updated.Comments, 1)
	assert.Equal(t, "It is getting deeper", updated.Comments[0].Text)
}
