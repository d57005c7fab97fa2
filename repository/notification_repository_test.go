package repository

import (
	"brz/models"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationRepository_Scopes(t *testing.T) {
	repo := NewNotificationRepository(newTestDB(t))
	ctx := context.Background()

	rows := []*models.Notification{
		{Audience: models.AudienceOperator, Title: "New registration", Type: models.NotificationInfo},
		{Audience: models.AudienceApplicant, UserID: uintPtr(1), Title: "Approved", Type: models.NotificationSuccess},
		{Audience: models.AudienceApplicant, UserID: uintPtr(2), Title: "Rejected", Type: models.NotificationError},
	}
	for _, n := range rows {
		require.NoError(t, repo.Create(ctx, n))
	}

	ops, err := repo.List(ctx, NotificationScope{Audience: models.AudienceOperator})
	require.NoError(t, err)
	require.Len(t, ops, 1)

	mine, err := repo.List(ctx, NotificationScope{Audience: models.AudienceApplicant, UserID: 1})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Approved", mine[0].Title)

	ok, err := repo.MarkRead(ctx, rows[2].ID, NotificationScope{Audience: models.AudienceApplicant, UserID: 1}, time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "cannot mark another applicant's notification")

	ok, err = repo.MarkRead(ctx, rows[1].ID, NotificationScope{Audience: models.AudienceApplicant, UserID: 1}, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	unread, err := repo.List(ctx, NotificationScope{Audience: models.AudienceApplicant, UserID: 1, UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestProgramRepository_FindActive(t *testing.T) {
	db := newTestDB(t)
	repo := NewProgramRepository(db)
	ctx := context.Background()

	p, err := repo.FindActive(ctx, "basic")
	require.NoError(t, err)
	assert.Equal(t, "Basic Barista Class", p.Name)

	require.NoError(t, db.Model(&models.Program{}).Where("code = ?", "manual-brew").Update("active", false).Error)
	_, err = repo.FindActive(ctx, "manual-brew")
	assert.Error(t, err)

	all, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
