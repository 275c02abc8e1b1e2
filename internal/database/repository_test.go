package database

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*Archive, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Archive{DB: db}, mock
}

func sampleAnalysis() (*Analysis, []SlideStat) {
	title := "Photo"
	a := &Analysis{
		RunID:           "0b6f4c1e-5d7a-4f8e-9a52-3c1d2e4f5a6b",
		Filename:        "deck.pptx",
		FilePath:        "/stage/deck.pptx",
		Checksum:        "abc123",
		SlideCount:      2,
		TotalMediaBytes: 4000,
		Report:          []byte(`[]`),
	}
	slides := []SlideStat{
		{Rank: 1, SlideIndex: 2, Title: &title, TotalMediaBytes: 4000, ImageBytes: 4000},
		{Rank: 2, SlideIndex: 1},
	}
	return a, slides
}

func TestArchiveSaveCommits(t *testing.T) {
	archive, mock := newMock(t)
	a, slides := sampleAnalysis()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO analyses").
		WithArgs(a.RunID, a.Filename, a.FilePath, a.Checksum, a.SlideCount, a.TotalMediaBytes, "[]").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec("INSERT INTO slide_stats").
		WithArgs(7, 1, 2, "Photo", 4000, 4000, 0, 0, 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO slide_stats").
		WithArgs(7, 2, 1, nil, 0, 0, 0, 0, 0).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	require.NoError(t, archive.Save(a, slides))
	assert.Equal(t, 7, a.ID)
	assert.Equal(t, 7, slides[1].AnalysisID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveSaveRollsBackOnSlideFailure(t *testing.T) {
	archive, mock := newMock(t)
	a, slides := sampleAnalysis()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO analyses").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec("INSERT INTO slide_stats").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO slide_stats").
		WillReturnError(errors.New("value too long"))
	mock.ExpectRollback()

	err := archive.Save(a, slides)
	assert.ErrorContains(t, err, "save slide 1 of deck.pptx: value too long")
	assert.Zero(t, a.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveSaveRollsBackOnAnalysisFailure(t *testing.T) {
	archive, mock := newMock(t)
	a, slides := sampleAnalysis()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO analyses").
		WillReturnError(errors.New("duplicate key value violates unique constraint"))
	mock.ExpectRollback()

	err := archive.Save(a, slides)
	assert.ErrorContains(t, err, "save analysis deck.pptx")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByChecksum(t *testing.T) {
	archive, mock := newMock(t)
	cols := []string{"id", "run_id", "filename", "file_path", "checksum", "slide_count", "total_media_bytes", "report", "created_at"}
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM analyses WHERE checksum").
		WithArgs("abc123").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(3, "0b6f4c1e-5d7a-4f8e-9a52-3c1d2e4f5a6b", "deck.pptx", "/stage/deck.pptx", "abc123", 2, 4000, []byte(`[]`), created))
	mock.ExpectQuery("SELECT (.+) FROM analyses WHERE checksum").
		WithArgs("unknown").
		WillReturnRows(sqlmock.NewRows(cols))

	found, err := archive.FindByChecksum("abc123")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 3, found.ID)
	assert.Equal(t, int64(4000), found.TotalMediaBytes)
	assert.JSONEq(t, `[]`, string(found.Report))
	assert.Equal(t, created, found.CreatedAt)

	missing, err := archive.FindByChecksum("unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.NoError(t, mock.ExpectationsWereMet())
}
