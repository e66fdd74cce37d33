package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubEnqueuer struct {
	taxIDs []string
	err    error
}

func (s *stubEnqueuer) EnqueueOverdueScan(_ context.Context, taxID string) (*asynq.TaskInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.taxIDs = append(s.taxIDs, taxID)
	return &asynq.TaskInfo{ID: "task-1"}, nil
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestScanCommandNormalisesTaxID(t *testing.T) {
	enq := &stubEnqueuer{}
	jobsCLI, err := NewJobsCLI(enq, nil)
	require.NoError(t, err)

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	code := jobsCLI.ScanCommand(context.Background(), ScanOptions{CompanyTaxID: "123-456-78-90", Stdout: stdout, Stderr: stderr})
	require.Equal(t, 0, code, stderr.String())
	require.Equal(t, []string{"1234567890"}, enq.taxIDs)
	require.Contains(t, stdout.String(), "company 1234567890 (id task-1)")
}

func TestScanCommandReportsFailure(t *testing.T) {
	jobsCLI, err := NewJobsCLI(&stubEnqueuer{err: errors.New("redis down")}, nil)
	require.NoError(t, err)

	stderr := new(bytes.Buffer)
	code := jobsCLI.ScanCommand(context.Background(), ScanOptions{Stdout: new(bytes.Buffer), Stderr: stderr})
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "redis down")
}

func TestQueueCommandJSON(t *testing.T) {
	jobsCLI, err := NewJobsCLI(nil, stubInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 2, Retry: 1}})
	require.NoError(t, err)

	stdout := new(bytes.Buffer)
	code := jobsCLI.QueueCommand(QueueOptions{JSONOutput: true, Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Equal(t, 0, code)

	var stats QueueStats
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &stats))
	require.Equal(t, QueueStats{Queue: "default", Pending: 2, Retry: 1}, stats)
}

func TestNewJobsCLIRequiresDependency(t *testing.T) {
	_, err := NewJobsCLI(nil, nil)
	require.Error(t, err)
}

func TestHashPasswordCommand(t *testing.T) {
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	code := HashPasswordCommand(HashPasswordOptions{
		Stdin:  strings.NewReader("correct-horse\n"),
		Stdout: stdout,
		Stderr: stderr,
		Cost:   bcrypt.MinCost,
	})
	require.Equal(t, 0, code, stderr.String())
	hashed := strings.TrimSpace(stdout.String())
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hashed), []byte("correct-horse")))

	stderr.Reset()
	code = HashPasswordCommand(HashPasswordOptions{Stdin: strings.NewReader("short"), Stdout: new(bytes.Buffer), Stderr: stderr})
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "at least 8")
}
