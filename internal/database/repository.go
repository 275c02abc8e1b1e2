package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type Analysis struct {
	ID              int             `json:"id"`
	RunID           string          `json:"run_id"`
	Filename        string          `json:"filename"`
	FilePath        string          `json:"file_path"`
	Checksum        string          `json:"checksum"`
	SlideCount      int             `json:"slide_count"`
	TotalMediaBytes int64           `json:"total_media_bytes"`
	Report          json.RawMessage `json:"report"`
	CreatedAt       time.Time       `json:"created_at"`
}

type SlideStat struct {
	ID              int     `json:"id"`
	AnalysisID      int     `json:"analysis_id"`
	Rank            int     `json:"rank"`
	SlideIndex      int     `json:"slide_index"`
	Title           *string `json:"title"`
	TotalMediaBytes int64   `json:"total_media_bytes"`
	ImageBytes      int64   `json:"image_bytes"`
	VideoBytes      int64   `json:"video_bytes"`
	AudioBytes      int64   `json:"audio_bytes"`
	OtherMediaBytes int64   `json:"other_media_bytes"`
}

type AnalysisWithSlides struct {
	Analysis
	Slides []SlideStat `json:"slides"`
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

const analysisColumns = "id, run_id, filename, file_path, checksum, slide_count, total_media_bytes, report, created_at"

func scanAnalysis(row interface{ Scan(...any) error }) (*Analysis, error) {
	var a Analysis
	var report []byte
	if err := row.Scan(&a.ID, &a.RunID, &a.Filename, &a.FilePath, &a.Checksum, &a.SlideCount, &a.TotalMediaBytes, &report, &a.CreatedAt); err != nil {
		return nil, err
	}
	if len(report) > 0 {
		a.Report = json.RawMessage(report)
	}
	return &a, nil
}

func SaveAnalysis(db execer, a *Analysis) (int, error) {
	query := `
		INSERT INTO analyses (run_id, filename, file_path, checksum, slide_count, total_media_bytes, report)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var report any
	if len(a.Report) > 0 {
		report = string(a.Report)
	}
	var id int
	err := db.QueryRow(query, a.RunID, a.Filename, a.FilePath, a.Checksum, a.SlideCount, a.TotalMediaBytes, report).Scan(&id)
	return id, err
}

// GetAnalysisByChecksum returns nil without error when nothing is archived
// under checksum.
func GetAnalysisByChecksum(db *sql.DB, checksum string) (*Analysis, error) {
	row := db.QueryRow("SELECT "+analysisColumns+" FROM analyses WHERE checksum = $1", checksum)
	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func SaveSlideStat(db execer, s *SlideStat) error {
	query := `
		INSERT INTO slide_stats (analysis_id, rank, slide_index, title, total_media_bytes, image_bytes, video_bytes, audio_bytes, other_media_bytes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := db.Exec(query, s.AnalysisID, s.Rank, s.SlideIndex, s.Title, s.TotalMediaBytes, s.ImageBytes, s.VideoBytes, s.AudioBytes, s.OtherMediaBytes)
	return err
}

func GetSlideStats(db *sql.DB, analysisID int) ([]SlideStat, error) {
	rows, err := db.Query("SELECT id, analysis_id, rank, slide_index, title, total_media_bytes, image_bytes, video_bytes, audio_bytes, other_media_bytes FROM slide_stats WHERE analysis_id = $1 ORDER BY rank", analysisID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []SlideStat
	for rows.Next() {
		var s SlideStat
		var title sql.NullString
		if err := rows.Scan(&s.ID, &s.AnalysisID, &s.Rank, &s.SlideIndex, &title, &s.TotalMediaBytes, &s.ImageBytes, &s.VideoBytes, &s.AudioBytes, &s.OtherMediaBytes); err != nil {
			return nil, err
		}
		if title.Valid {
			s.Title = &title.String
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func GetRecentAnalyses(db *sql.DB, limit int) ([]AnalysisWithSlides, error) {
	rows, err := db.Query("SELECT "+analysisColumns+" FROM analyses ORDER BY created_at DESC LIMIT $1", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var analyses []Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var result []AnalysisWithSlides
	for _, a := range analyses {
		slides, err := GetSlideStats(db, a.ID)
		if err != nil {
			return nil, err
		}
		result = append(result, AnalysisWithSlides{
			Analysis: a,
			Slides:   slides,
		})
	}
	return result, nil
}

// Archive adapts the repository functions to the watch-mode store.
type Archive struct {
	DB *sql.DB
}

func (a *Archive) FindByChecksum(checksum string) (*Analysis, error) {
	return GetAnalysisByChecksum(a.DB, checksum)
}

// Save stores the analysis and its slide rows in one transaction.
func (a *Archive) Save(analysis *Analysis, slides []SlideStat) error {
	tx, err := a.DB.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// No-op once committed.
	defer tx.Rollback()

	id, err := SaveAnalysis(tx, analysis)
	if err != nil {
		return fmt.Errorf("save analysis %s: %w", analysis.Filename, err)
	}
	for i := range slides {
		slides[i].AnalysisID = id
		if err := SaveSlideStat(tx, &slides[i]); err != nil {
			return fmt.Errorf("save slide %d of %s: %w", slides[i].SlideIndex, analysis.Filename, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit analysis %s: %w", analysis.Filename, err)
	}
	analysis.ID = id
	return nil
}
