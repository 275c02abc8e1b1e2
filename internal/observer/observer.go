// Package observer watches a stage directory and analyzes every deck dropped
// into it.
package observer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gnemet/SlideWeight/internal/analyzer"
	"github.com/gnemet/SlideWeight/internal/bytefmt"
	"github.com/gnemet/SlideWeight/internal/config"
	"github.com/gnemet/SlideWeight/internal/database"
	"github.com/gnemet/SlideWeight/internal/pptx"
	"github.com/gnemet/SlideWeight/internal/report"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store archives analyses. FindByChecksum returns nil when the checksum is
// unknown.
type Store interface {
	FindByChecksum(checksum string) (*database.Analysis, error)
	Save(a *database.Analysis, slides []database.SlideStat) error
}

type Observer struct {
	cfg           config.WatchConfig
	includeShared bool
	store         Store
	logger        *zap.Logger

	mu          sync.Mutex
	activeTasks int
	seen        map[string]struct{}
}

// NewObserver returns an observer for cfg.Watch. store may be nil, in which
// case duplicates are only detected within the running process.
func NewObserver(cfg *config.Config, store Store, logger *zap.Logger) *Observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observer{
		cfg:           cfg.Watch,
		includeShared: cfg.Analysis.IncludeSharedMedia,
		store:         store,
		logger:        logger,
		seen:          make(map[string]struct{}),
	}
}

func (o *Observer) incrementTask() {
	o.mu.Lock()
	o.activeTasks++
	o.mu.Unlock()
}

func (o *Observer) decrementTask() {
	o.mu.Lock()
	o.activeTasks--
	o.mu.Unlock()
}

// Start scans the stage directory once and then processes decks as they are
// written until ctx is cancelled.
func (o *Observer) Start(ctx context.Context) error {
	stageDir := o.cfg.Dir
	if stageDir == "" {
		return fmt.Errorf("watch directory not configured")
	}

	if err := os.MkdirAll(stageDir, 0755); err != nil {
		return fmt.Errorf("failed to create watch directory: %w", err)
	}
	if o.cfg.ReportDir != "" {
		if err := os.MkdirAll(o.cfg.ReportDir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(stageDir); err != nil {
		return err
	}

	o.logger.Info("Watching for presentations", zap.String("dir", stageDir))

	o.scanDirectory(ctx, stageDir)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !isPresentation(event.Name) {
				continue
			}
			o.logger.Debug("Detected change", zap.String("file", event.Name))

			// Give the writer time to finish the copy.
			if !o.settle(ctx) {
				return nil
			}
			o.handle(event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			o.logger.Warn("Watcher error", zap.Error(err))

		case <-ctx.Done():
			return nil
		}
	}
}

func (o *Observer) settle(ctx context.Context) bool {
	if o.cfg.Settle <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(o.cfg.Settle)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func isPresentation(name string) bool {
	base := filepath.Base(name)
	// Office lock files look like "~$deck.pptx".
	if strings.HasPrefix(base, "~$") {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), ".pptx")
}

func (o *Observer) scanDirectory(ctx context.Context, dir string) {
	files, err := os.ReadDir(dir)
	if err != nil {
		o.logger.Error("Failed to scan directory", zap.String("dir", dir), zap.Error(err))
		return
	}

	for _, f := range files {
		if ctx.Err() != nil {
			return
		}
		if !f.IsDir() && isPresentation(f.Name()) {
			o.handle(filepath.Join(dir, f.Name()))
		}
	}
}

func (o *Observer) handle(path string) {
	if _, err := o.ProcessFile(path); err != nil {
		o.logger.Error("Failed to process presentation", zap.String("file", path), zap.Error(err))
	}
}

func checksum(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

func (o *Observer) known(sum string) (bool, error) {
	o.mu.Lock()
	_, ok := o.seen[sum]
	o.mu.Unlock()
	if ok || o.store == nil {
		return ok, nil
	}
	existing, err := o.store.FindByChecksum(sum)
	if err != nil {
		return false, fmt.Errorf("look up checksum: %w", err)
	}
	return existing != nil, nil
}

// ProcessFile analyzes one deck and archives the result. It returns nil
// without error when a deck with the same checksum was already processed.
func (o *Observer) ProcessFile(path string) (*database.Analysis, error) {
	o.incrementTask()
	defer o.decrementTask()

	filename := filepath.Base(path)

	sum, err := checksum(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	dup, err := o.known(sum)
	if err != nil {
		return nil, err
	}
	if dup {
		o.logger.Info("Skipping already analyzed presentation",
			zap.String("file", filename), zap.String("checksum", sum))
		return nil, nil
	}

	pkg, err := pptx.Open(path)
	if err != nil {
		return nil, err
	}
	defer pkg.Close()

	a := analyzer.New(o.logger)
	stats := a.SlideStats(pkg, o.includeShared)

	var total int64
	rows := make([]database.SlideStat, 0, len(stats))
	for i, s := range stats {
		total += s.TotalMediaBytes
		rows = append(rows, database.SlideStat{
			Rank:            i + 1,
			SlideIndex:      s.SlideIndex,
			Title:           s.SlideTitle,
			TotalMediaBytes: s.TotalMediaBytes,
			ImageBytes:      s.ImageBytes,
			VideoBytes:      s.VideoBytes,
			AudioBytes:      s.AudioBytes,
			OtherMediaBytes: s.OtherMediaBytes,
		})
	}

	body, err := json.Marshal(stats)
	if err != nil {
		return nil, fmt.Errorf("encode report for %s: %w", filename, err)
	}

	analysis := &database.Analysis{
		RunID:           uuid.NewString(),
		Filename:        filename,
		FilePath:        path,
		Checksum:        sum,
		SlideCount:      len(stats),
		TotalMediaBytes: total,
		Report:          body,
		CreatedAt:       time.Now(),
	}

	if o.cfg.ReportDir != "" {
		name := strings.TrimSuffix(filename, filepath.Ext(filename)) + ".report.json"
		if err := report.WriteJSON(filepath.Join(o.cfg.ReportDir, name), stats); err != nil {
			return nil, err
		}
	}

	fields := []zap.Field{
		zap.String("file", filename),
		zap.String("run_id", analysis.RunID),
		zap.Int("slides", len(stats)),
		zap.String("total_media", bytefmt.Format(total)),
		zap.Int("warnings", len(a.Warnings())),
	}
	if len(stats) > 0 && stats[0].TotalMediaBytes > 0 {
		fields = append(fields,
			zap.Int("heaviest_slide", stats[0].SlideIndex),
			zap.String("heaviest_size", bytefmt.Format(stats[0].TotalMediaBytes)))
	}
	o.logger.Info("Analyzed presentation", fields...)

	if o.store != nil {
		if err := o.store.Save(analysis, rows); err != nil {
			return nil, err
		}
	}

	o.mu.Lock()
	o.seen[sum] = struct{}{}
	o.mu.Unlock()
	return analysis, nil
}

func (o *Observer) IsProcessing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activeTasks > 0
}
