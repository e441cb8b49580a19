package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockQueueRepo implements Repository for testing.
type mockQueueRepo struct {
	sent    []string
	failed  []string
	retried []string
}

func (m *mockQueueRepo) ListRecipients(_ context.Context, _ string, _ PreferenceKind) ([]Recipient, error) {
	return nil, nil
}

func (m *mockQueueRepo) Enqueue(_ context.Context, _ []*QueueItem) error { return nil }

func (m *mockQueueRepo) FetchPending(_ context.Context, _ int) ([]*QueueItem, error) {
	return nil, nil
}

func (m *mockQueueRepo) MarkSent(_ context.Context, id string) error {
	m.sent = append(m.sent, id)
	return nil
}

func (m *mockQueueRepo) MarkFailed(_ context.Context, id string, _ error) error {
	m.failed = append(m.failed, id)
	return nil
}

func (m *mockQueueRepo) MarkForRetry(_ context.Context, id string, _ error, _ time.Time) error {
	m.retried = append(m.retried, id)
	return nil
}

// mockSender implements Sender for testing.
type mockSender struct {
	err   error
	calls []string
}

func (m *mockSender) Send(_ context.Context, to, _, _ string) error {
	m.calls = append(m.calls, to)
	return m.err
}

func newTestWorker(t *testing.T, repo Repository, sender Sender, retryable RetryClassifier) *Worker {
	t.Helper()
	renderer, err := NewRenderer()
	require.NoError(t, err)
	return NewWorker(DefaultWorkerConfig(), repo, sender, renderer, retryable)
}

func testItem() *QueueItem {
	return &QueueItem{
		ID:    "item-1",
		OrgID: "org-1",
		Email: "member@example.com",
		Payload: Payload{
			Kind:        KindServiceStatusChanged,
			OrgName:     "Acme",
			ServiceName: "API",
			OldStatus:   "operational",
			NewStatus:   "major_outage",
		},
		Status: QueueStatusPending,
	}
}

func TestProcessItem_Success(t *testing.T) {
	repo := &mockQueueRepo{}
	sender := &mockSender{}
	worker := newTestWorker(t, repo, sender, nil)

	worker.processItem(context.Background(), testItem())

	assert.Equal(t, []string{"member@example.com"}, sender.calls)
	assert.Equal(t, []string{"item-1"}, repo.sent)
	assert.Empty(t, repo.failed)
}

func TestProcessItem_RetryableErrorSchedulesRetry(t *testing.T) {
	repo := &mockQueueRepo{}
	sender := &mockSender{err: errors.New("connection refused")}
	worker := newTestWorker(t, repo, sender, func(error) bool { return true })

	worker.processItem(context.Background(), testItem())

	assert.Equal(t, []string{"item-1"}, repo.retried)
	assert.Empty(t, repo.sent)
	assert.Empty(t, repo.failed)
}

func TestProcessItem_NonRetryableErrorFails(t *testing.T) {
	repo := &mockQueueRepo{}
	sender := &mockSender{err: errors.New("550 mailbox does not exist")}
	worker := newTestWorker(t, repo, sender, func(error) bool { return false })

	worker.processItem(context.Background(), testItem())

	assert.Equal(t, []string{"item-1"}, repo.failed)
	assert.Empty(t, repo.retried)
}

func TestProcessItem_MaxAttemptsExceededFails(t *testing.T) {
	repo := &mockQueueRepo{}
	sender := &mockSender{err: errors.New("421 service not available")}
	worker := newTestWorker(t, repo, sender, func(error) bool { return true })

	item := testItem()
	item.Attempts = worker.config.MaxAttempts - 1

	worker.processItem(context.Background(), item)

	assert.Equal(t, []string{"item-1"}, repo.failed)
	assert.Empty(t, repo.retried)
}

func TestCalculateNextAttempt_ExponentialBackoff(t *testing.T) {
	config := WorkerConfig{
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        5 * time.Minute,
		BackoffMultiplier: 2.0,
	}
	worker := &Worker{config: config}

	tests := []struct {
		name            string
		attempt         int
		expectedBackoff time.Duration
	}{
		{"first retry", 1, 1 * time.Second},
		{"second retry", 2, 2 * time.Second},
		{"third retry", 3, 4 * time.Second},
		{"fourth retry", 4, 8 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := time.Now()
			result := worker.calculateNextAttempt(tt.attempt)
			after := time.Now()

			assert.False(t, result.Before(before.Add(tt.expectedBackoff)))
			assert.False(t, result.After(after.Add(tt.expectedBackoff)))
		})
	}
}

func TestCalculateNextAttempt_CappedAtMaxBackoff(t *testing.T) {
	config := WorkerConfig{
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
	worker := &Worker{config: config}

	before := time.Now()
	result := worker.calculateNextAttempt(100)

	assert.False(t, result.Before(before.Add(config.MaxBackoff)))
	assert.True(t, result.Before(time.Now().Add(config.MaxBackoff+time.Second)))
}

func TestRenderer_ServiceStatusChanged(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	subject, body, err := renderer.Render(Payload{
		Kind:        KindServiceStatusChanged,
		OrgName:     "Acme",
		ServiceName: "API",
		OldStatus:   "operational",
		NewStatus:   "major_outage",
	})

	require.NoError(t, err)
	assert.Equal(t, "[Acme] API is now major outage", subject)
	assert.Contains(t, body, "changed from operational to major outage")
}

func TestRenderer_IncidentCreated(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	subject, body, err := renderer.Render(Payload{
		Kind:           KindIncidentCreated,
		OrgName:        "Acme",
		IncidentTitle:  "Database outage",
		IncidentStatus: "investigating",
		Message:        "We are looking into it.",
	})

	require.NoError(t, err)
	assert.Equal(t, "[Acme] New incident: Database outage", subject)
	assert.Contains(t, body, "Status: investigating")
	assert.Contains(t, body, "We are looking into it.")
}

func TestRenderer_UnknownKind(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	_, _, err = renderer.Render(Payload{Kind: "nonsense"})
	assert.Error(t, err)
}
