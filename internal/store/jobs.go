package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Job statuses. A job strictly advances pending → processing → completed/error;
// there is no transition back to pending once claimed.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// File types accepted by the pipeline. Page ranges are only meaningful for pdf.
const (
	FileTypePDF     = "pdf"
	FileTypeImage   = "image"
	FileTypeUnknown = "unknown"
)

// Job is one row of the jobs table with explicit named fields. Optional
// columns map to pointers so NULL survives a round trip.
type Job struct {
	ID                  uuid.UUID  `json:"id"`
	FileName            string     `json:"file_name"`
	OriginalFileName    string     `json:"original_file_name"`
	StoredPath          string     `json:"stored_path"`
	FileSize            int64      `json:"file_size"`
	FileType            string     `json:"file_type"`
	PageCount           *int32     `json:"page_count,omitempty"`
	RangeStart          *int32     `json:"range_start,omitempty"`
	RangeEnd            *int32     `json:"range_end,omitempty"`
	Status              string     `json:"status"`
	UploadTime          time.Time  `json:"upload_time"`
	ProcessingStartTime *time.Time `json:"processing_start_time,omitempty"`
	ProcessingEndTime   *time.Time `json:"processing_end_time,omitempty"`
	TextContent         *string    `json:"text_content,omitempty"`
	ResultURL           *string    `json:"result_url,omitempty"`
	ErrorMessage        *string    `json:"error_message,omitempty"`
}

// jobColumns is the SELECT list shared by every query that scans a full Job.
const jobColumns = `id, file_name, original_file_name, stored_path, file_size, file_type,
	page_count, range_start, range_end, status, upload_time,
	processing_start_time, processing_end_time, text_content, result_url, error_message`

func scanJob(row pgx.Row) (Job, error) {
	var j Job
	err := row.Scan(
		&j.ID, &j.FileName, &j.OriginalFileName, &j.StoredPath, &j.FileSize, &j.FileType,
		&j.PageCount, &j.RangeStart, &j.RangeEnd, &j.Status, &j.UploadTime,
		&j.ProcessingStartTime, &j.ProcessingEndTime, &j.TextContent, &j.ResultURL, &j.ErrorMessage,
	)
	return j, err
}

// claimPendingSQL atomically selects the oldest pending rows and flips them to
// processing in one statement. FOR UPDATE SKIP LOCKED makes the select-and-claim
// safe against a concurrent claimer: a row is claimed at most once.
const claimPendingSQL = `
UPDATE jobs
SET status = 'processing', processing_start_time = now()
FROM (
    SELECT id FROM jobs
    WHERE status = 'pending'
    ORDER BY upload_time ASC
    LIMIT $1
    FOR UPDATE SKIP LOCKED
) candidate
WHERE jobs.id = candidate.id
RETURNING ` + jobColumns

// ClaimPending claims up to limit pending jobs, oldest upload first, marking
// each processing and stamping processing_start_time. Returns the claimed rows
// in upload order. An empty slice means no work is available.
func (s *Store) ClaimPending(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, claimPendingSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("claim pending: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("claim pending: scan: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim pending: %w", err)
	}
	// UPDATE … RETURNING does not guarantee row order; restore FIFO by
	// upload time so callers enqueue oldest first.
	sort.Slice(jobs, func(a, b int) bool {
		return jobs[a].UploadTime.Before(jobs[b].UploadTime)
	})
	return jobs, nil
}

// MarkCompleted records a successful terminal outcome: status, result fields,
// and processing_end_time in a single-row commit. Idempotent overwrite.
func (s *Store) MarkCompleted(ctx context.Context, id uuid.UUID, text, resultURL string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE jobs
		SET status = 'completed', text_content = $2, result_url = $3,
		    processing_end_time = now(), error_message = NULL
		WHERE id = $1`,
		id, text, resultURL)
	if err != nil {
		return fmt.Errorf("mark completed %s: %w", id, err)
	}
	return nil
}

// MarkError records a failed terminal outcome with the failure message and
// processing_end_time. Idempotent overwrite.
func (s *Store) MarkError(ctx context.Context, id uuid.UUID, message string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE jobs
		SET status = 'error', error_message = $2, processing_end_time = now()
		WHERE id = $1`,
		id, message)
	if err != nil {
		return fmt.Errorf("mark error %s: %w", id, err)
	}
	return nil
}

// ErrNotFound is returned by GetJob when no row matches the id.
var ErrNotFound = errors.New("job not found")

// GetJob returns one job by id.
func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, fmt.Errorf("get job %s: %w", id, err)
	}
	return j, nil
}

// ListJobsParams filters ListJobs. Zero values mean "no filter" / defaults.
type ListJobsParams struct {
	Status string
	Limit  int
	Offset int
}

// ListJobs returns jobs newest-upload-first for the introspection API.
// The filter set is dynamic, so the query is built with squirrel.
func (s *Store) ListJobs(ctx context.Context, p ListJobsParams) ([]Job, error) {
	if p.Limit <= 0 || p.Limit > 200 {
		p.Limit = 50
	}
	b := sq.Select(jobColumns).
		From("jobs").
		OrderBy("upload_time DESC").
		Limit(uint64(p.Limit)).
		Offset(uint64(p.Offset)).
		PlaceholderFormat(sq.Dollar)
	if p.Status != "" {
		b = b.Where(sq.Eq{"status": p.Status})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("list jobs: build query: %w", err)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("list jobs: scan: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// CountByStatus returns the number of jobs per status. Statuses with no rows
// are present with a zero count.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int64, error) {
	counts := map[string]int64{
		StatusPending:    0,
		StatusProcessing: 0,
		StatusCompleted:  0,
		StatusError:      0,
	}
	rows, err := s.pool.Query(ctx, `SELECT status, count(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("count by status: scan: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// CreateJobParams holds the fields the upload collaborator supplies when
// inserting a new pending job.
type CreateJobParams struct {
	FileName         string
	OriginalFileName string
	StoredPath       string
	FileSize         int64
	FileType         string
	PageCount        *int32
	RangeStart       *int32
	RangeEnd         *int32
	// UploadTime defaults to now() when zero. Tests use explicit values to
	// assert FIFO claim order.
	UploadTime time.Time
}

// CreateJob inserts a pending job and returns its id.
func (s *Store) CreateJob(ctx context.Context, p CreateJobParams) (uuid.UUID, error) {
	if p.FileType == "" {
		p.FileType = FileTypeUnknown
	}
	uploadTime := p.UploadTime
	if uploadTime.IsZero() {
		uploadTime = time.Now()
	}
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO jobs (file_name, original_file_name, stored_path, file_size, file_type,
		                  page_count, range_start, range_end, upload_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		p.FileName, p.OriginalFileName, p.StoredPath, p.FileSize, p.FileType,
		p.PageCount, p.RangeStart, p.RangeEnd, uploadTime,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create job: %w", err)
	}
	return id, nil
}
