package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/code-editor-backend/internal/execution/domain"
	"github.com/GoSim-25-26J-441/code-editor-backend/internal/logging"
)

// DefaultLimit is the number of records surfaced by Recent.
const DefaultLimit = 10

const artifactExt = ".json"

// HistoryRepository stores execution records as one JSON file per run under
// <root>/<projectId>/<timestamp>.json.
type HistoryRepository struct {
	root string
}

// NewHistoryRepository creates a new HistoryRepository rooted at root
func NewHistoryRepository(root string) *HistoryRepository {
	return &HistoryRepository{root: root}
}

// Record writes rec. The artifact is linked into place so a concurrent
// Recent never reads a partial file and an existing record with the same
// timestamp is never overwritten.
func (r *HistoryRepository) Record(ctx context.Context, projectID string, rec domain.Record) error {
	dir := filepath.Join(r.root, projectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".record-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close record: %w", err)
	}

	// Link refuses to replace an existing artifact, unlike Rename.
	final := filepath.Join(dir, rec.Timestamp+artifactExt)
	linkErr := os.Link(tmpName, final)
	os.Remove(tmpName)
	if linkErr != nil {
		return fmt.Errorf("publish record: %w", linkErr)
	}

	logging.FromContext(ctx).Debug("execution recorded",
		zap.String("project_id", projectID),
		zap.String("timestamp", rec.Timestamp),
		zap.String("status", rec.Status))
	return nil
}

// Recent returns up to limit records, newest first. A project that never ran
// yields an empty slice. Artifacts that fail to parse are skipped.
func (r *HistoryRepository) Recent(ctx context.Context, projectID string, limit int) ([]domain.Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	dir := filepath.Join(r.root, projectID)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != artifactExt {
			continue
		}
		names = append(names, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	if len(names) > limit {
		names = names[:limit]
	}

	log := logging.FromContext(ctx)
	out := make([]domain.Record, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("skipping unreadable history artifact", zap.String("file", name), zap.Error(err))
			continue
		}
		var rec domain.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			log.Warn("skipping malformed history artifact", zap.String("file", name), zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
