//go:build integration

package integration

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncidentCreationEmailsOrgMembers(t *testing.T) {
	require.NoError(t, mailpitClient.DeleteAllMessages())

	owner, ownerEmail := signup(t, "mailowner")
	org := createOrg(t, owner, "Mail Org")

	_, memberEmail := signup(t, "mailmember")
	resp, err := owner.POST("/api/v1/orgs/"+org.Slug+"/members", map[string]string{
		"email": memberEmail,
		"role":  "member",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	createIncident(t, owner, org.Slug, map[string]interface{}{
		"title":       "Checkout broken",
		"description": "Payments failing",
		"type":        "incident",
	})

	messages, err := mailpitClient.WaitForMessages(2, 15*time.Second)
	require.NoError(t, err)

	recipients := make(map[string]bool)
	for _, msg := range messages {
		assert.Contains(t, msg.Subject, "[Mail Org]")
		assert.Contains(t, msg.Subject, "Checkout broken")
		for _, to := range msg.To {
			recipients[to.Address] = true
		}
	}
	assert.True(t, recipients[ownerEmail])
	assert.True(t, recipients[memberEmail])
}

func TestStatusChangeEmailRespectsPreferences(t *testing.T) {
	require.NoError(t, mailpitClient.DeleteAllMessages())

	owner, ownerEmail := signup(t, "prefowner")
	org := createOrg(t, owner, "Pref Org")

	optOut, optOutEmail := signup(t, "prefout")
	respPrefs, err := optOut.PUT("/api/v1/me/notification-preferences", map[string]bool{
		"service_status_changes": false,
		"new_incidents":          true,
		"incident_updates":       true,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, respPrefs.StatusCode)
	respPrefs.Body.Close()

	resp, err := owner.POST("/api/v1/orgs/"+org.Slug+"/members", map[string]string{
		"email": optOutEmail,
		"role":  "member",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	svc := createService(t, owner, org.Slug, map[string]interface{}{"name": "Checkout"})

	resp, err = owner.PATCH("/api/v1/orgs/"+org.Slug+"/services/"+svc.ID, map[string]interface{}{
		"name":   "Checkout",
		"status": "major_outage",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Only the owner gets the status-change email; the opted-out member
	// is skipped at enqueue time.
	messages, err := mailpitClient.WaitForMessages(1, 15*time.Second)
	require.NoError(t, err)

	for _, msg := range messages {
		full, err := mailpitClient.GetMessageByID(msg.ID)
		require.NoError(t, err)
		assert.True(t, strings.Contains(full.Subject, "Checkout"))
		for _, to := range msg.To {
			assert.NotEqual(t, optOutEmail, to.Address)
			assert.Equal(t, ownerEmail, to.Address)
		}
	}
}

func TestIncidentUpdateEmail(t *testing.T) {
	require.NoError(t, mailpitClient.DeleteAllMessages())

	owner, _ := signup(t, "updmail")
	org := createOrg(t, owner, "Update Mail Org")

	incident := createIncident(t, owner, org.Slug, map[string]interface{}{
		"title": "Search degraded",
		"type":  "incident",
	})

	// One email for the new incident.
	_, err := mailpitClient.WaitForMessages(1, 15*time.Second)
	require.NoError(t, err)
	require.NoError(t, mailpitClient.DeleteAllMessages())

	resp, err := owner.POST("/api/v1/orgs/"+org.Slug+"/incidents/"+incident.ID+"/updates", map[string]string{
		"status":  "identified",
		"message": "Index rebuild in progress",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	messages, err := mailpitClient.WaitForMessages(1, 15*time.Second)
	require.NoError(t, err)
	assert.Contains(t, messages[0].Subject, "Search degraded")
}
