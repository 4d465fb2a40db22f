package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/katsurao/ocrflow/internal/store"
)

// registerJobRoutes wires up the read-only job introspection endpoints.
//
//	GET /jobs        - paginated job list with status filter
//	GET /jobs/{id}   - single job detail
//	GET /stats       - job counts by status
func registerJobRoutes(api huma.API, s *store.Store) {
	huma.Register(api, huma.Operation{
		OperationID: "list-jobs",
		Method:      http.MethodGet,
		Path:        "/jobs",
		Summary:     "List jobs",
		Description: "Paginated job list, newest upload first, with optional status filter.",
		Tags:        []string{"Jobs"},
	}, listJobsHandler(s))

	huma.Register(api, huma.Operation{
		OperationID: "get-job",
		Method:      http.MethodGet,
		Path:        "/jobs/{id}",
		Summary:     "Get job detail",
		Description: "Returns one job row including result and error fields.",
		Tags:        []string{"Jobs"},
	}, getJobHandler(s))

	huma.Register(api, huma.Operation{
		OperationID: "get-stats",
		Method:      http.MethodGet,
		Path:        "/stats",
		Summary:     "Job counts by status",
		Tags:        []string{"Jobs"},
	}, getStatsHandler(s))
}

// ── Response types ────────────────────────────────────────────────────────────

// JobItem is the API representation of a jobs row. Timestamps are RFC3339.
type JobItem struct {
	ID                  string  `json:"id"`
	FileName            string  `json:"file_name"`
	OriginalFileName    string  `json:"original_file_name,omitempty"`
	FileSize            int64   `json:"file_size"`
	FileType            string  `json:"file_type"`
	PageCount           *int32  `json:"page_count,omitempty"`
	RangeStart          *int32  `json:"range_start,omitempty"`
	RangeEnd            *int32  `json:"range_end,omitempty"`
	Status              string  `json:"status"`
	UploadTime          string  `json:"upload_time"`
	ProcessingStartTime *string `json:"processing_start_time,omitempty"`
	ProcessingEndTime   *string `json:"processing_end_time,omitempty"`
	TextContent         *string `json:"text_content,omitempty"`
	ResultURL           *string `json:"result_url,omitempty"`
	ErrorMessage        *string `json:"error_message,omitempty"`
}

func jobToItem(j store.Job) JobItem {
	item := JobItem{
		ID:               j.ID.String(),
		FileName:         j.FileName,
		OriginalFileName: j.OriginalFileName,
		FileSize:         j.FileSize,
		FileType:         j.FileType,
		PageCount:        j.PageCount,
		RangeStart:       j.RangeStart,
		RangeEnd:         j.RangeEnd,
		Status:           j.Status,
		UploadTime:       j.UploadTime.UTC().Format(time.RFC3339),
		TextContent:      j.TextContent,
		ResultURL:        j.ResultURL,
		ErrorMessage:     j.ErrorMessage,
	}
	if j.ProcessingStartTime != nil {
		s := j.ProcessingStartTime.UTC().Format(time.RFC3339)
		item.ProcessingStartTime = &s
	}
	if j.ProcessingEndTime != nil {
		s := j.ProcessingEndTime.UTC().Format(time.RFC3339)
		item.ProcessingEndTime = &s
	}
	return item
}

// ── GET /jobs ─────────────────────────────────────────────────────────────────

// ListJobsInput defines query parameters for the job list.
type ListJobsInput struct {
	Status string `query:"status" enum:"pending,processing,completed,error" required:"false" doc:"Filter by job status"`
	Limit  int    `query:"limit" default:"50" minimum:"1" maximum:"200" doc:"Page size"`
	Offset int    `query:"offset" default:"0" minimum:"0" doc:"Page offset"`
}

// ListJobsOutput is the response for GET /jobs.
type ListJobsOutput struct {
	Body struct {
		Items []JobItem `json:"items"`
	}
}

func listJobsHandler(s *store.Store) func(context.Context, *ListJobsInput) (*ListJobsOutput, error) {
	return func(ctx context.Context, input *ListJobsInput) (*ListJobsOutput, error) {
		jobs, err := s.ListJobs(ctx, store.ListJobsParams{
			Status: input.Status,
			Limit:  input.Limit,
			Offset: input.Offset,
		})
		if err != nil {
			return nil, huma.Error500InternalServerError("list jobs failed", err)
		}
		out := &ListJobsOutput{}
		out.Body.Items = make([]JobItem, 0, len(jobs))
		for _, j := range jobs {
			out.Body.Items = append(out.Body.Items, jobToItem(j))
		}
		return out, nil
	}
}

// ── GET /jobs/{id} ────────────────────────────────────────────────────────────

// GetJobInput carries the job id path parameter.
type GetJobInput struct {
	ID string `path:"id" doc:"Job id (UUID)"`
}

// GetJobOutput is the response for GET /jobs/{id}.
type GetJobOutput struct {
	Body JobItem
}

func getJobHandler(s *store.Store) func(context.Context, *GetJobInput) (*GetJobOutput, error) {
	return func(ctx context.Context, input *GetJobInput) (*GetJobOutput, error) {
		id, err := uuid.Parse(input.ID)
		if err != nil {
			return nil, huma.Error400BadRequest("invalid job id", err)
		}
		job, err := s.GetJob(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, huma.Error404NotFound("job not found", nil)
			}
			return nil, huma.Error500InternalServerError("get job failed", err)
		}
		return &GetJobOutput{Body: jobToItem(job)}, nil
	}
}

// ── GET /stats ────────────────────────────────────────────────────────────────

// GetStatsOutput is the response for GET /stats.
type GetStatsOutput struct {
	Body struct {
		Pending    int64 `json:"pending"`
		Processing int64 `json:"processing"`
		Completed  int64 `json:"completed"`
		Error      int64 `json:"error"`
	}
}

func getStatsHandler(s *store.Store) func(context.Context, *struct{}) (*GetStatsOutput, error) {
	return func(ctx context.Context, _ *struct{}) (*GetStatsOutput, error) {
		counts, err := s.CountByStatus(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("count jobs failed", err)
		}
		out := &GetStatsOutput{}
		out.Body.Pending = counts[store.StatusPending]
		out.Body.Processing = counts[store.StatusProcessing]
		out.Body.Completed = counts[store.StatusCompleted]
		out.Body.Error = counts[store.StatusError]
		return out, nil
	}
}
