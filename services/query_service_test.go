package services

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"civicsync-api/apperrors"
	"civicsync-api/models"
	"civicsync-api/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNormalizePage(t *testing.T) {
	cases := []struct {
		page, limit         int
		wantPage, wantLimit int
	}{
		{0, 0, 1, 10},
		{-3, 5, 1, 5},
		{2, -1, 2, 1},
		{4, 1000, 4, 100},
	}
	for _, tc := range cases {
		page, limit := NormalizePage(tc.page, tc.limit, DefaultPageLimit)
		assert.Equal(t, tc.wantPage, page, "page for %+v", tc)
		assert.Equal(t, tc.wantLimit, limit, "limit for %+v", tc)
	}
	assert.Equal(t, 3, TotalPages(25, 10))
	assert.Equal(t, 0, TotalPages(0, 10))
	assert.Equal(t, 1, TotalPages(10, 10))
}

func TestList_Paging(t *testing.T) {
	f := newFixture(t, nil, nil)
	for i := 0; i < 25; i++ {
		insertRaw(t, f, func(is *models.Issue) {
			is.Title = fmt.Sprintf("Issue %02d", i)
			is.CreatedAt = fixedNow.Add(time.Duration(i) * time.Minute)
		})
	}

	res, err := f.query.List(context.Background(), ListParams{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, res.Items, 10)
	assert.EqualValues(t, 25, res.Total)
	assert.Equal(t, 3, res.TotalPages)
	assert.Equal(t, 2, res.Page)
	assert.Equal(t, 10, res.Limit)
	assert.Equal(t, "Issue 14", res.Items[0].Title)

	last, err := f.query.List(context.Background(), ListParams{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, last.Items, 5)

	beyond, err := f.query.List(context.Background(), ListParams{Page: 9, Limit: 10})
	require.NoError(t, err)
	assert.NotNil(t, beyond.Items)
	assert.Empty(t, beyond.Items)
	assert.EqualValues(t, 25, beyond.Total)
}

func TestList_Filters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	reporter := f.user(t, "asha", models.RoleCitizen)
	insertRaw(t, f, func(is *models.Issue) {
		is.Title = "Flooded underpass"
		is.Category = models.WaterSanitation
		is.ReportedBy = reporter.ID
	})
	insertRaw(t, f, func(is *models.Issue) { is.Status = models.Resolved; is.Priority = models.High })
	insertRaw(t, f, func(is *models.Issue) { is.Description = "Water (flood) everywhere" })

	total := func(p ListParams) int64 {
		res, err := f.query.List(ctx, p)
		require.NoError(t, err)
		return res.Total
	}

	assert.EqualValues(t, 3, total(ListParams{Status: "all", Category: "all", Priority: "all"}))
	assert.EqualValues(t, 1, total(ListParams{Status: "resolved"}))
	assert.EqualValues(t, 1, total(ListParams{Priority: "high"}))
	assert.EqualValues(t, 1, total(ListParams{Category: string(models.WaterSanitation)}))
	assert.EqualValues(t, 2, total(ListParams{Search: "FLOOD"}))
	assert.EqualValues(t, 1, total(ListParams{Search: "(flood)"}))
	assert.EqualValues(t, 0, total(ListParams{Status: "archived"}))
	assert.EqualValues(t, 1, total(ListParams{ReportedBy: &reporter.ID}))

	res, err := f.query.List(ctx, ListParams{ReportedBy: &reporter.ID})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "asha", res.Items[0].ReportedBy.Name)
}

func TestList_Sort(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	for i, votes := range []int{3, 7, 1} {
		insertRaw(t, f, func(is *models.Issue) {
			is.UpvoteCount = votes
			is.CreatedAt = fixedNow.Add(time.Duration(i) * time.Hour)
		})
	}

	res, err := f.query.List(ctx, ListParams{SortBy: "-upvoteCount"})
	require.NoError(t, err)
	assert.Equal(t, []int{7, 3, 1}, []int{res.Items[0].UpvoteCount, res.Items[1].UpvoteCount, res.Items[2].UpvoteCount})

	res, err = f.query.List(ctx, ListParams{SortBy: "oldest"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Items[0].UpvoteCount)

	_, err = f.query.List(ctx, ListParams{SortBy: "password"})
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.KindValidation, appErr.Kind)
	assert.Equal(t, "sortBy", appErr.Fields[0].Field)
}

func TestNearby(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	// roughly 1.1 km apart along the equator
	for i := 0; i < 8; i++ {
		lng := float64(i) * 0.01
		insertRaw(t, f, func(is *models.Issue) { is.Location.Coordinates = models.NewPoint(lng, 0) })
	}

	views, err := f.query.Nearby(ctx, 0, 0, DefaultNearbyDistance, 0)
	require.NoError(t, err)
	require.Len(t, views, 5)
	for _, v := range views {
		d := repository.DistanceMeters(0, 0, v.Location.Coordinates.Longitude(), v.Location.Coordinates.Latitude())
		assert.LessOrEqual(t, d, DefaultNearbyDistance)
	}
	assert.Equal(t, 0.0, views[0].Location.Coordinates.Longitude())

	views, err = f.query.Nearby(ctx, 0, 0, DefaultNearbyDistance, 2)
	require.NoError(t, err)
	assert.Len(t, views, 2)

	views, err = f.query.Nearby(ctx, 120, -45, DefaultNearbyDistance, 10)
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}

func TestNearby_Validation(t *testing.T) {
	f := newFixture(t, nil, nil)
	for name, args := range map[string][3]float64{
		"longitude":    {181, 0, 5000},
		"latitude":     {0, -91, 5000},
		"zero radius":  {0, 0, 0},
		"neg distance": {0, 0, -10},
		"NaN point":    {math.NaN(), math.NaN(), 5000},
		"NaN radius":   {0, 0, math.NaN()},
	} {
		_, err := f.query.Nearby(context.Background(), args[0], args[1], args[2], 10)
		assert.True(t, apperrors.Is(err, apperrors.KindValidation), name)
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t, nil, nil)
	for i := 0; i < 3; i++ {
		insertRaw(t, f, func(is *models.Issue) { is.Category = models.Electricity })
	}
	for i := 0; i < 2; i++ {
		insertRaw(t, f, func(is *models.Issue) { is.Status = models.Resolved; is.Category = models.Pollution })
	}

	stats, err := f.query.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.IssueOverview{TotalIssues: 5, Pending: 3, Resolved: 2}, stats.Overview)
	assert.Equal(t, []models.CategoryCount{
		{Category: models.Electricity, Count: 3},
		{Category: models.Pollution, Count: 2},
	}, stats.ByCategory)
}

func TestStats_Empty(t *testing.T) {
	f := newFixture(t, nil, nil)
	stats, err := f.query.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.IssueOverview{}, stats.Overview)
	assert.Empty(t, stats.ByCategory)
}

func TestAnalytics(t *testing.T) {
	f := newFixture(t, nil, nil)
	// fixedNow is 2026-05-14 10:30 UTC
	insertRaw(t, f, func(is *models.Issue) { is.CreatedAt = fixedNow; is.UpvoteCount = 4 })
	insertRaw(t, f, func(is *models.Issue) { is.CreatedAt = fixedNow.Add(-11 * time.Hour); is.Status = models.InProgress })
	insertRaw(t, f, func(is *models.Issue) { is.CreatedAt = fixedNow.AddDate(0, 0, -6); is.UpvoteCount = 9 })
	insertRaw(t, f, func(is *models.Issue) { is.CreatedAt = fixedNow.AddDate(0, 0, -7); is.Status = models.Resolved })
	for i := 0; i < 5; i++ {
		insertRaw(t, f, func(is *models.Issue) {
			is.CreatedAt = fixedNow.AddDate(0, -1, 0)
			is.Status = models.Rejected
			is.UpvoteCount = i
			is.ID = primitive.NewObjectID()
		})
	}

	a, err := f.query.Analytics(context.Background())
	require.NoError(t, err)

	require.Len(t, a.Last7Days, 7)
	assert.Equal(t, DayCount{Date: "2026-05-08", Count: 1}, a.Last7Days[0])
	assert.Equal(t, DayCount{Date: "2026-05-13", Count: 1}, a.Last7Days[5])
	assert.Equal(t, DayCount{Date: "2026-05-14", Count: 1}, a.Last7Days[6])

	require.Len(t, a.TopVoted, 5)
	assert.Equal(t, 9, a.TopVoted[0].Upvotes)
	assert.Equal(t, 4, a.TopVoted[1].Upvotes)
	for i := 1; i < len(a.TopVoted); i++ {
		assert.GreaterOrEqual(t, a.TopVoted[i-1].Upvotes, a.TopVoted[i].Upvotes)
	}

	assert.EqualValues(t, 3, a.OpenIssues)
	assert.EqualValues(t, 9, a.TotalIssues)
	assert.Equal(t, []models.CategoryCount{{Category: models.Other, Count: 9}}, a.IssuesByCategory)
}
