package incidents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statuspulse/statuspulse/internal/domain"
	"github.com/statuspulse/statuspulse/internal/realtime"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	incidents   map[string]*domain.Incident
	updates     map[string][]domain.IncidentUpdate
	orgServices map[string]map[string]bool
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		incidents:   make(map[string]*domain.Incident),
		updates:     make(map[string][]domain.IncidentUpdate),
		orgServices: make(map[string]map[string]bool),
	}
}

func (m *mockRepository) addService(orgID, serviceID string) {
	if m.orgServices[orgID] == nil {
		m.orgServices[orgID] = make(map[string]bool)
	}
	m.orgServices[orgID][serviceID] = true
}

func (m *mockRepository) CreateIncident(_ context.Context, incident *domain.Incident) error {
	copied := *incident
	m.incidents[incident.ID] = &copied
	return nil
}

func (m *mockRepository) GetIncident(_ context.Context, orgID, id string) (*domain.Incident, error) {
	incident, ok := m.incidents[id]
	if !ok || incident.OrgID != orgID {
		return nil, ErrIncidentNotFound
	}
	copied := *incident
	return &copied, nil
}

func (m *mockRepository) ListIncidents(_ context.Context, orgID string, filter IncidentFilter) ([]domain.Incident, error) {
	out := make([]domain.Incident, 0)
	for _, incident := range m.incidents {
		if incident.OrgID != orgID {
			continue
		}
		if filter.ActiveOnly && !incident.Status.IsActive() {
			continue
		}
		out = append(out, *incident)
	}
	return out, nil
}

func (m *mockRepository) UpdateIncident(_ context.Context, incident *domain.Incident) error {
	existing, ok := m.incidents[incident.ID]
	if !ok || existing.OrgID != incident.OrgID {
		return ErrIncidentNotFound
	}
	copied := *incident
	m.incidents[incident.ID] = &copied
	return nil
}

func (m *mockRepository) DeleteIncident(_ context.Context, orgID, id string) error {
	existing, ok := m.incidents[id]
	if !ok || existing.OrgID != orgID {
		return ErrIncidentNotFound
	}
	delete(m.incidents, id)
	return nil
}

func (m *mockRepository) AddUpdate(_ context.Context, update *domain.IncidentUpdate, incident *domain.Incident) error {
	m.updates[incident.ID] = append(m.updates[incident.ID], *update)
	copied := *incident
	m.incidents[incident.ID] = &copied
	return nil
}

func (m *mockRepository) ListUpdates(_ context.Context, incidentID string) ([]domain.IncidentUpdate, error) {
	return m.updates[incidentID], nil
}

func (m *mockRepository) CountServicesInOrg(_ context.Context, orgID string, serviceIDs []string) (int, error) {
	count := 0
	for _, id := range serviceIDs {
		if m.orgServices[orgID][id] {
			count++
		}
	}
	return count, nil
}

// mockBroadcaster records broadcast events.
type mockBroadcaster struct {
	events []realtime.Event
}

func (m *mockBroadcaster) Broadcast(evt realtime.Event) {
	m.events = append(m.events, evt)
}

// mockNotifier records lifecycle calls.
type mockNotifier struct {
	created []string
	updated []string
}

func (m *mockNotifier) IncidentCreated(_ context.Context, incident *domain.Incident) {
	m.created = append(m.created, incident.ID)
}

func (m *mockNotifier) IncidentUpdated(_ context.Context, incident *domain.Incident, _ *domain.IncidentUpdate) {
	m.updated = append(m.updated, incident.ID)
}

func TestCreateIncident_DefaultStatusByType(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo, &mockBroadcaster{}, nil)

	incident, err := service.CreateIncident(context.Background(), CreateIncidentInput{
		OrgID: "org-1",
		Title: "API degraded",
		Type:  domain.IncidentTypeIncident,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusInvestigating, incident.Status)

	maintenance, err := service.CreateIncident(context.Background(), CreateIncidentInput{
		OrgID: "org-1",
		Title: "Planned upgrade",
		Type:  domain.IncidentTypeMaintenance,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusScheduled, maintenance.Status)
}

func TestCreateIncident_RejectsStatusFromWrongLifecycle(t *testing.T) {
	service := NewService(newMockRepository(), &mockBroadcaster{}, nil)

	_, err := service.CreateIncident(context.Background(), CreateIncidentInput{
		OrgID:  "org-1",
		Title:  "API degraded",
		Type:   domain.IncidentTypeIncident,
		Status: domain.IncidentStatusScheduled,
	})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = service.CreateIncident(context.Background(), CreateIncidentInput{
		OrgID:  "org-1",
		Title:  "Planned upgrade",
		Type:   domain.IncidentTypeMaintenance,
		Status: domain.IncidentStatusInvestigating,
	})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCreateIncident_RejectsCrossOrgServiceLinks(t *testing.T) {
	repo := newMockRepository()
	repo.addService("org-1", "svc-1")
	repo.addService("org-2", "svc-2")
	service := NewService(repo, &mockBroadcaster{}, nil)

	_, err := service.CreateIncident(context.Background(), CreateIncidentInput{
		OrgID:      "org-1",
		Title:      "API degraded",
		Type:       domain.IncidentTypeIncident,
		ServiceIDs: []string{"svc-1", "svc-2"},
	})
	assert.ErrorIs(t, err, ErrServiceNotInOrg)
}

func TestCreateIncident_BroadcastsAndNotifies(t *testing.T) {
	broadcaster := &mockBroadcaster{}
	notifier := &mockNotifier{}
	service := NewService(newMockRepository(), broadcaster, notifier)

	incident, err := service.CreateIncident(context.Background(), CreateIncidentInput{
		OrgID: "org-1",
		Title: "API degraded",
		Type:  domain.IncidentTypeIncident,
	})

	require.NoError(t, err)
	require.Len(t, broadcaster.events, 1)
	assert.Equal(t, realtime.EventIncidentCreated, broadcaster.events[0].Type)
	assert.Equal(t, "org-1", broadcaster.events[0].OrgID)
	assert.Equal(t, []string{incident.ID}, notifier.created)
}

func TestAddUpdate_MovesStatusAndStampsResolvedAt(t *testing.T) {
	repo := newMockRepository()
	broadcaster := &mockBroadcaster{}
	notifier := &mockNotifier{}
	service := NewService(repo, broadcaster, notifier)

	incident, err := service.CreateIncident(context.Background(), CreateIncidentInput{
		OrgID: "org-1",
		Title: "API degraded",
		Type:  domain.IncidentTypeIncident,
	})
	require.NoError(t, err)
	broadcaster.events = nil

	update, err := service.AddUpdate(context.Background(), "org-1", incident.ID, AddUpdateInput{
		Status:  domain.IncidentStatusResolved,
		Message: "Root cause fixed",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusResolved, update.Status)

	stored, err := service.GetIncident(context.Background(), "org-1", incident.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusResolved, stored.Status)
	require.NotNil(t, stored.ResolvedAt)

	require.Len(t, broadcaster.events, 2)
	assert.Equal(t, realtime.EventUpdateCreated, broadcaster.events[0].Type)
	assert.Equal(t, realtime.EventIncidentUpdated, broadcaster.events[1].Type)
	assert.Equal(t, []string{incident.ID}, notifier.updated)
}

func TestAddUpdate_RejectedAfterResolution(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo, &mockBroadcaster{}, nil)

	incident, err := service.CreateIncident(context.Background(), CreateIncidentInput{
		OrgID: "org-1",
		Title: "API degraded",
		Type:  domain.IncidentTypeIncident,
	})
	require.NoError(t, err)

	_, err = service.AddUpdate(context.Background(), "org-1", incident.ID, AddUpdateInput{
		Status:  domain.IncidentStatusResolved,
		Message: "Fixed",
	})
	require.NoError(t, err)

	_, err = service.AddUpdate(context.Background(), "org-1", incident.ID, AddUpdateInput{
		Status:  domain.IncidentStatusMonitoring,
		Message: "Watching",
	})
	assert.ErrorIs(t, err, ErrIncidentResolved)
}

func TestUpdateIncident_ReopenClearsResolvedAt(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo, &mockBroadcaster{}, nil)

	incident, err := service.CreateIncident(context.Background(), CreateIncidentInput{
		OrgID:  "org-1",
		Title:  "API degraded",
		Type:   domain.IncidentTypeIncident,
		Status: domain.IncidentStatusResolved,
	})
	require.NoError(t, err)
	require.NotNil(t, incident.ResolvedAt)

	reopened, err := service.UpdateIncident(context.Background(), "org-1", incident.ID, UpdateIncidentInput{
		Title:  incident.Title,
		Status: domain.IncidentStatusMonitoring,
	})
	require.NoError(t, err)
	assert.Nil(t, reopened.ResolvedAt)
}

func TestGetIncident_ScopedToOrg(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo, &mockBroadcaster{}, nil)

	incident, err := service.CreateIncident(context.Background(), CreateIncidentInput{
		OrgID: "org-1",
		Title: "API degraded",
		Type:  domain.IncidentTypeIncident,
	})
	require.NoError(t, err)

	_, err = service.GetIncident(context.Background(), "org-2", incident.ID)
	assert.ErrorIs(t, err, ErrIncidentNotFound)
}
