package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/drumtrack/drumtrack/internal/masterdata/companies"
	"github.com/drumtrack/drumtrack/jobs"
)

// Enqueuer submits overdue scans.
type Enqueuer interface {
	EnqueueOverdueScan(ctx context.Context, companyTaxID string) (*asynq.TaskInfo, error)
}

// QueueInspector reads queue state.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// JobsCLI wraps manual management helpers for background jobs.
type JobsCLI struct {
	client    Enqueuer
	inspector QueueInspector
}

// NewJobsCLI initialises the CLI helpers.
func NewJobsCLI(client Enqueuer, inspector QueueInspector) (*JobsCLI, error) {
	if client == nil && inspector == nil {
		return nil, errors.New("jobs cli: client or inspector required")
	}
	return &JobsCLI{client: client, inspector: inspector}, nil
}

// ScanOptions defines flags for the jobs scan command.
type ScanOptions struct {
	CompanyTaxID string
	Stdout       io.Writer
	Stderr       io.Writer
}

// ScanCommand enqueues an overdue scan and prints the task id.
func (c *JobsCLI) ScanCommand(ctx context.Context, opts ScanOptions) int {
	stdout, stderr := writers(opts.Stdout, opts.Stderr)
	if c == nil || c.client == nil {
		_, _ = fmt.Fprintln(stderr, "jobs scan: client not configured")
		return 1
	}
	taxID := companies.NormalizeTaxID(opts.CompanyTaxID)
	info, err := c.client.EnqueueOverdueScan(ctx, taxID)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "jobs scan: %v\n", err)
		return 1
	}
	scope := "all companies"
	if taxID != "" {
		scope = "company " + taxID
	}
	_, _ = fmt.Fprintf(stdout, "enqueued %s for %s (id %s)\n", jobs.TaskDrumsOverdueScan, scope, info.ID)
	return 0
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

// QueueOptions defines flags for the jobs queue command.
type QueueOptions struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue() (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}

// QueueCommand prints queue statistics.
func (c *JobsCLI) QueueCommand(opts QueueOptions) int {
	stdout, stderr := writers(opts.Stdout, opts.Stderr)
	stats, err := c.InspectQueue()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "jobs queue: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(stdout).Encode(stats); err != nil {
			_, _ = fmt.Fprintf(stderr, "jobs queue: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	var b strings.Builder
	fmt.Fprintf(&b, "queue:     %s\n", stats.Queue)
	fmt.Fprintf(&b, "pending:   %d\n", stats.Pending)
	fmt.Fprintf(&b, "active:    %d\n", stats.Active)
	fmt.Fprintf(&b, "scheduled: %d\n", stats.Scheduled)
	fmt.Fprintf(&b, "retry:     %d\n", stats.Retry)
	fmt.Fprintf(&b, "archived:  %d\n", stats.Archived)
	_, _ = io.WriteString(stdout, b.String())
	return 0
}

func writers(stdout, stderr io.Writer) (io.Writer, io.Writer) {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return stdout, stderr
}
