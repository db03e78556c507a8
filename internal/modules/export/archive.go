package export

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/marketview/internal/clients/r2"
	"github.com/aristath/marketview/internal/domain"
)

const archivePrefix = "marketview-export-"

// ArchiveService stores CSV snapshots of rendered datasets in
// S3-compatible object storage. It is optional; the service only exists
// when R2 credentials are configured.
type ArchiveService struct {
	client        *r2.Client
	retentionDays int
	log           zerolog.Logger
}

// ArchiveInfo describes one stored export.
type ArchiveInfo struct {
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// NewArchiveService creates a new archive service.
func NewArchiveService(client *r2.Client, retentionDays int, log zerolog.Logger) *ArchiveService {
	return &ArchiveService{
		client:        client,
		retentionDays: retentionDays,
		log:           log.With().Str("service", "export_archive").Logger(),
	}
}

// ArchiveDataset serializes the dataset to CSV and uploads it. Returns
// the object key of the stored archive.
func (s *ArchiveService) ArchiveDataset(ctx context.Context, ds domain.Dataset) (string, error) {
	if ds.Empty() {
		return "", fmt.Errorf("nothing to archive: dataset is empty")
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, ds); err != nil {
		return "", fmt.Errorf("failed to serialize dataset: %w", err)
	}

	key := fmt.Sprintf("%s%s.csv", archivePrefix, time.Now().UTC().Format("2006-01-02-150405"))

	if err := s.client.Upload(ctx, key, &buf, int64(buf.Len())); err != nil {
		return "", fmt.Errorf("failed to upload archive: %w", err)
	}

	s.log.Info().
		Str("key", key).
		Int("rows", len(ds.Rows)).
		Msg("Archived dataset export")

	return key, nil
}

// ListArchives lists all stored exports, newest first.
func (s *ArchiveService) ListArchives(ctx context.Context) ([]ArchiveInfo, error) {
	objects, err := s.client.List(ctx, archivePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}

	archives := make([]ArchiveInfo, 0, len(objects))
	now := time.Now()

	for _, obj := range objects {
		if obj.Key == nil {
			continue
		}

		timestamp, ok := parseArchiveKey(*obj.Key)
		if !ok {
			s.log.Warn().Str("key", *obj.Key).Msg("Skipping object with unparsable name")
			continue
		}

		var sizeBytes int64
		if obj.Size != nil {
			sizeBytes = *obj.Size
		}

		archives = append(archives, ArchiveInfo{
			Filename:  *obj.Key,
			Timestamp: timestamp,
			SizeBytes: sizeBytes,
			AgeHours:  int64(now.Sub(timestamp).Hours()),
		})
	}

	sort.Slice(archives, func(i, j int) bool {
		return archives[i].Timestamp.After(archives[j].Timestamp)
	})

	return archives, nil
}

// RotateOldArchives deletes archives older than the retention period.
// Keeps a minimum of 3 archives regardless of age; a retention of 0
// keeps everything.
func (s *ArchiveService) RotateOldArchives(ctx context.Context) error {
	archives, err := s.ListArchives(ctx)
	if err != nil {
		return fmt.Errorf("failed to list archives: %w", err)
	}

	const minArchivesToKeep = 3
	if len(archives) <= minArchivesToKeep || s.retentionDays <= 0 {
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)

	deleted := 0
	for i, archive := range archives {
		if i < minArchivesToKeep {
			continue
		}
		if !archive.Timestamp.Before(cutoff) {
			continue
		}

		if err := s.client.Delete(ctx, archive.Filename); err != nil {
			s.log.Error().Err(err).Str("filename", archive.Filename).Msg("Failed to delete old archive")
			continue
		}

		s.log.Info().
			Str("filename", archive.Filename).
			Time("timestamp", archive.Timestamp).
			Msg("Deleted old archive")
		deleted++
	}

	if deleted > 0 {
		s.log.Info().
			Int("deleted", deleted).
			Int("remaining", len(archives)-deleted).
			Msg("Archive rotation completed")
	}

	return nil
}

// Run executes one rotation pass. Satisfies the scheduled job contract.
func (s *ArchiveService) Run() error {
	return s.RotateOldArchives(context.Background())
}

// Name returns the job name for scheduling and logging.
func (s *ArchiveService) Name() string {
	return "archive_rotation"
}

// parseArchiveKey extracts the timestamp from an archive object key of
// the form marketview-export-2026-08-26-143022.csv.
func parseArchiveKey(key string) (time.Time, bool) {
	if !strings.HasPrefix(key, archivePrefix) || !strings.HasSuffix(key, ".csv") {
		return time.Time{}, false
	}

	stamp := strings.TrimSuffix(strings.TrimPrefix(key, archivePrefix), ".csv")
	timestamp, err := time.Parse("2006-01-02-150405", stamp)
	if err != nil {
		return time.Time{}, false
	}

	return timestamp, true
}
