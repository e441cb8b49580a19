package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statuspulse/statuspulse/internal/domain"
)

// mockNotifierRepo records enqueued items.
type mockNotifierRepo struct {
	recipients map[PreferenceKind][]Recipient
	enqueued   []*QueueItem
	enqueueErr error
}

func (m *mockNotifierRepo) ListRecipients(_ context.Context, _ string, pref PreferenceKind) ([]Recipient, error) {
	return m.recipients[pref], nil
}

func (m *mockNotifierRepo) Enqueue(_ context.Context, items []*QueueItem) error {
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.enqueued = append(m.enqueued, items...)
	return nil
}

func (m *mockNotifierRepo) FetchPending(_ context.Context, _ int) ([]*QueueItem, error) {
	return nil, nil
}
func (m *mockNotifierRepo) MarkSent(_ context.Context, _ string) error { return nil }
func (m *mockNotifierRepo) MarkFailed(_ context.Context, _ string, _ error) error {
	return nil
}
func (m *mockNotifierRepo) MarkForRetry(_ context.Context, _ string, _ error, _ time.Time) error {
	return nil
}

// mockOrgLookup resolves a single org.
type mockOrgLookup struct {
	org *domain.Organization
	err error
}

func (m *mockOrgLookup) GetOrgByID(_ context.Context, _ string) (*domain.Organization, error) {
	return m.org, m.err
}

func TestServiceStatusChanged_EnqueuesPerRecipient(t *testing.T) {
	repo := &mockNotifierRepo{
		recipients: map[PreferenceKind][]Recipient{
			PrefServiceStatusChanges: {
				{UserID: "u1", Email: "a@example.com"},
				{UserID: "u2", Email: "b@example.com"},
			},
		},
	}
	notifier := NewNotifier(repo, &mockOrgLookup{org: &domain.Organization{ID: "org-1", Name: "Acme"}})

	notifier.ServiceStatusChanged(context.Background(), &domain.Service{
		OrgID:  "org-1",
		Name:   "API",
		Status: domain.ServiceStatusMajorOutage,
	}, domain.ServiceStatusOperational)

	require.Len(t, repo.enqueued, 2)
	assert.Equal(t, "a@example.com", repo.enqueued[0].Email)
	assert.Equal(t, KindServiceStatusChanged, repo.enqueued[0].Payload.Kind)
	assert.Equal(t, "Acme", repo.enqueued[0].Payload.OrgName)
	assert.Equal(t, "operational", repo.enqueued[0].Payload.OldStatus)
	assert.Equal(t, "major_outage", repo.enqueued[0].Payload.NewStatus)
}

func TestIncidentCreated_NoRecipientsNoEnqueue(t *testing.T) {
	repo := &mockNotifierRepo{recipients: map[PreferenceKind][]Recipient{}}
	notifier := NewNotifier(repo, &mockOrgLookup{org: &domain.Organization{ID: "org-1", Name: "Acme"}})

	notifier.IncidentCreated(context.Background(), &domain.Incident{OrgID: "org-1", Title: "Outage"})

	assert.Empty(t, repo.enqueued)
}

func TestIncidentUpdated_UsesUpdateStatusAndMessage(t *testing.T) {
	repo := &mockNotifierRepo{
		recipients: map[PreferenceKind][]Recipient{
			PrefIncidentUpdates: {{UserID: "u1", Email: "a@example.com"}},
		},
	}
	notifier := NewNotifier(repo, &mockOrgLookup{org: &domain.Organization{ID: "org-1", Name: "Acme"}})

	notifier.IncidentUpdated(context.Background(),
		&domain.Incident{OrgID: "org-1", Title: "Outage", Status: domain.IncidentStatusMonitoring},
		&domain.IncidentUpdate{Status: domain.IncidentStatusMonitoring, Message: "Deployed a fix"},
	)

	require.Len(t, repo.enqueued, 1)
	assert.Equal(t, "monitoring", repo.enqueued[0].Payload.IncidentStatus)
	assert.Equal(t, "Deployed a fix", repo.enqueued[0].Payload.Message)
}

func TestNotifier_SwallowsLookupErrors(t *testing.T) {
	repo := &mockNotifierRepo{}
	notifier := NewNotifier(repo, &mockOrgLookup{err: errors.New("db down")})

	// Must not panic and must not enqueue.
	notifier.IncidentCreated(context.Background(), &domain.Incident{OrgID: "org-1"})
	assert.Empty(t, repo.enqueued)
}
