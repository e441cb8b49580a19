// Package realtime broadcasts entity-change events to connected status-page
// and dashboard clients over WebSocket. Delivery is best-effort and
// at-most-once: there is no persistence or replay, and clients are expected
// to re-fetch state on connect.
package realtime

// EventType identifies the kind of entity change carried by an event.
type EventType string

// Event types.
const (
	EventServiceCreated  EventType = "service_created"
	EventServiceUpdated  EventType = "service_updated"
	EventServiceDeleted  EventType = "service_deleted"
	EventIncidentCreated EventType = "incident_created"
	EventIncidentUpdated EventType = "incident_updated"
	EventIncidentDeleted EventType = "incident_deleted"
	EventUpdateCreated   EventType = "update_created"
)

// Event is one broadcastable entity change. OrgID scopes delivery to
// subscribers of that organization and is not part of the wire payload.
type Event struct {
	Type  EventType   `json:"type"`
	Data  interface{} `json:"data"`
	OrgID string      `json:"-"`
}
