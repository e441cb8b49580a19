package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/statuspulse/statuspulse/internal/domain"
	"github.com/statuspulse/statuspulse/internal/pkg/ctxlog"
)

// OrgLookup resolves organization names for notification payloads.
type OrgLookup interface {
	GetOrgByID(ctx context.Context, id string) (*domain.Organization, error)
}

// Notifier receives domain events and enqueues email notifications for
// organization members. Enqueue failures are logged, never propagated: a
// lost email must not fail the operation that caused it.
type Notifier struct {
	repo Repository
	orgs OrgLookup
}

// NewNotifier creates a notifier.
func NewNotifier(repo Repository, orgs OrgLookup) *Notifier {
	return &Notifier{repo: repo, orgs: orgs}
}

// ServiceStatusChanged enqueues notifications for a service status
// transition.
func (n *Notifier) ServiceStatusChanged(ctx context.Context, service *domain.Service, oldStatus domain.ServiceStatus) {
	n.enqueue(ctx, service.OrgID, PrefServiceStatusChanges, func(orgName string) Payload {
		return Payload{
			Kind:        KindServiceStatusChanged,
			OrgName:     orgName,
			ServiceName: service.Name,
			OldStatus:   string(oldStatus),
			NewStatus:   string(service.Status),
		}
	})
}

// IncidentCreated enqueues notifications for a new incident.
func (n *Notifier) IncidentCreated(ctx context.Context, incident *domain.Incident) {
	n.enqueue(ctx, incident.OrgID, PrefNewIncidents, func(orgName string) Payload {
		return Payload{
			Kind:           KindIncidentCreated,
			OrgName:        orgName,
			IncidentTitle:  incident.Title,
			IncidentStatus: string(incident.Status),
			Message:        incident.Description,
		}
	})
}

// IncidentUpdated enqueues notifications for a timeline update.
func (n *Notifier) IncidentUpdated(ctx context.Context, incident *domain.Incident, update *domain.IncidentUpdate) {
	n.enqueue(ctx, incident.OrgID, PrefIncidentUpdates, func(orgName string) Payload {
		return Payload{
			Kind:           KindIncidentUpdated,
			OrgName:        orgName,
			IncidentTitle:  incident.Title,
			IncidentStatus: string(update.Status),
			Message:        update.Message,
		}
	})
}

func (n *Notifier) enqueue(ctx context.Context, orgID string, pref PreferenceKind, build func(orgName string) Payload) {
	log := ctxlog.FromContext(ctx)

	org, err := n.orgs.GetOrgByID(ctx, orgID)
	if err != nil {
		log.Error("notify: failed to resolve organization", "org_id", orgID, "error", err)
		return
	}

	recipients, err := n.repo.ListRecipients(ctx, orgID, pref)
	if err != nil {
		log.Error("notify: failed to list recipients", "org_id", orgID, "error", err)
		return
	}
	if len(recipients) == 0 {
		return
	}

	payload := build(org.Name)
	now := time.Now().UTC()
	items := make([]*QueueItem, 0, len(recipients))
	for _, r := range recipients {
		items = append(items, &QueueItem{
			ID:            uuid.NewString(),
			OrgID:         orgID,
			UserID:        r.UserID,
			Email:         r.Email,
			Payload:       payload,
			Status:        QueueStatusPending,
			NextAttemptAt: now,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}

	if err := n.repo.Enqueue(ctx, items); err != nil {
		log.Error("notify: failed to enqueue", "org_id", orgID, "count", len(items), "error", err)
		return
	}

	log.Debug("notifications enqueued",
		slog.String("org_id", orgID),
		slog.String("kind", string(payload.Kind)),
		slog.Int("count", len(items)),
	)
}
