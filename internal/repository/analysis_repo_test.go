package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/khotba/khotba_server/internal/model"
	"github.com/khotba/khotba_server/internal/testutil"
)

func TestAnalysisRepository_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewAnalysisRepository(db)

	analysis := &model.Analysis{
		SourceType:   model.SourceYouTube,
		YouTubeURL:   "https://youtu.be/dQw4w9WgXcQ",
		VideoTitle:   "Khotba",
		StartSeconds: 10,
		EndSeconds:   70,
		ArabicText:   "الحمد لله",
	}

	err := repo.Create(analysis)
	require.NoError(t, err)
	assert.Len(t, analysis.ID, 36)
	assert.False(t, analysis.CreatedAt.IsZero())
}

func TestAnalysisRepository_GetByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewAnalysisRepository(db)
	created := testutil.TestAnalysis(t, db)

	found, err := repo.GetByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.VideoTitle, found.VideoTitle)
	assert.Equal(t, created.Segments, found.Segments)
	require.NotNil(t, found.Costs)
	assert.InDelta(t, 0.0042, found.Costs.TotalCostUSD, 1e-9)
}

func TestAnalysisRepository_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewAnalysisRepository(db)

	_, err := repo.GetByID("missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAnalysisRepository_List_Pagination(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewAnalysisRepository(db)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 7; i++ {
		testutil.TestAnalysis(t, db,
			testutil.WithTitle(string(rune('A'+i))),
			testutil.WithCreatedAt(base.Add(time.Duration(i)*time.Minute)))
	}

	page1, total, err := repo.List(1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
	require.Len(t, page1, 3)
	assert.Equal(t, "G", page1[0].VideoTitle)
	assert.Equal(t, "E", page1[2].VideoTitle)

	page3, total, err := repo.List(3, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
	require.Len(t, page3, 1)
	assert.Equal(t, "A", page3[0].VideoTitle)

	page4, _, err := repo.List(4, 3)
	require.NoError(t, err)
	assert.Empty(t, page4)
}

func TestAnalysisRepository_UpdateFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewAnalysisRepository(db)
	created := testutil.TestAnalysis(t, db)

	err := repo.UpdateFields(created.ID, map[string]interface{}{
		"french_text": "Nouveau texte",
		"segments_json": model.SegmentTimeline{
			model.LangFrench: {
				{Start: 3, End: 4, Text: "b"},
				{Start: 0, End: 1, Text: "a"},
			},
		},
	})
	require.NoError(t, err)

	found, err := repo.GetByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nouveau texte", found.FrenchText)
	assert.Equal(t, created.ArabicText, found.ArabicText)
	require.Len(t, found.Segments[model.LangFrench], 2)
	assert.Equal(t, "a", found.Segments[model.LangFrench][0].Text)
}

func TestAnalysisRepository_UpdateFields_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewAnalysisRepository(db)

	err := repo.UpdateFields("missing", map[string]interface{}{"french_text": "x"})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAnalysisRepository_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewAnalysisRepository(db)
	created := testutil.TestAnalysis(t, db)

	require.NoError(t, repo.Delete(created.ID))

	_, err := repo.GetByID(created.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repo.Delete(created.ID), gorm.ErrRecordNotFound)
}

func TestAnalysisRepository_ExistingIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewAnalysisRepository(db)
	a := testutil.TestAnalysis(t, db)

	existing, err := repo.ExistingIDs([]string{a.ID, "gone"})
	require.NoError(t, err)
	assert.True(t, existing[a.ID])
	assert.False(t, existing["gone"])
}

func TestAnalysisRepository_ReferencedUploadIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewAnalysisRepository(db)
	testutil.TestAnalysis(t, db, testutil.WithUpload("up-1", "sermon.mp4"))
	testutil.TestAnalysis(t, db)

	refs, err := repo.ReferencedUploadIDs()
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"up-1": true}, refs)
}

func TestAnalysisRepository_CountByUploadID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewAnalysisRepository(db)
	testutil.TestAnalysis(t, db, testutil.WithUpload("up-1", "sermon.mp4"))
	testutil.TestAnalysis(t, db, testutil.WithUpload("up-1", "sermon.mp4"))

	count, err := repo.CountByUploadID("up-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = repo.CountByUploadID("up-2")
	require.NoError(t, err)
	assert.Zero(t, count)
}
