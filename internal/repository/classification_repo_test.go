package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/email-classifier-api/internal/models"
)

func setupClassificationDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ClassificationRecord{}))
	return db
}

func TestClassificationRepositoryCreateAndGet(t *testing.T) {
	repo := NewClassificationRepository(setupClassificationDB(t))
	ctx := context.Background()

	record := models.ClassificationRecord{
		ReferenceID:  "ref-1",
		Checksum:     "abc",
		MaskedEmail:  "Contact [full_name] at [email]",
		Category:     "Incident",
		ClusterID:    0,
		EntityCounts: datatypes.JSONMap{"email": 1, "full_name": 1},
		EntryPoint:   models.EntryPointAPI,
	}
	require.NoError(t, repo.Create(ctx, &record))
	require.NotZero(t, record.ID)

	stored, err := repo.GetByReference(ctx, "ref-1")
	require.NoError(t, err)
	require.Equal(t, "Incident", stored.Category)
	require.EqualValues(t, 1, stored.EntityCounts["email"])

	_, err = repo.GetByReference(ctx, "missing")
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestClassificationRepositoryListFiltersAndPaginates(t *testing.T) {
	db := setupClassificationDB(t)
	repo := NewClassificationRepository(db)
	ctx := context.Background()

	now := time.Now()
	seed := []models.ClassificationRecord{
		{ReferenceID: "a", Checksum: "1", Category: "Incident", CreatedAt: now.Add(-3 * time.Hour)},
		{ReferenceID: "b", Checksum: "2", Category: "Request", CreatedAt: now.Add(-2 * time.Hour)},
		{ReferenceID: "c", Checksum: "3", Category: "Incident", CreatedAt: now.Add(-time.Hour)},
	}
	for i := range seed {
		require.NoError(t, db.Create(&seed[i]).Error)
	}

	all, total, err := repo.List(ctx, ClassificationFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, all, 3)
	require.Equal(t, "c", all[0].ReferenceID, "newest record first")

	incidents, total, err := repo.List(ctx, ClassificationFilter{Category: "Incident", Page: 2, PageSize: 1})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, incidents, 1)
	require.Equal(t, "a", incidents[0].ReferenceID)

	counts, err := repo.CountByCategory(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"Incident": 2, "Request": 1}, counts)
}
