//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statuspulse/statuspulse/internal/domain"
	"github.com/statuspulse/statuspulse/internal/testutil"
)

func TestServiceCRUD(t *testing.T) {
	client, _ := signup(t, "svccrud")
	org := createOrg(t, client, "Service Org")

	svc := createService(t, client, org.Slug, map[string]interface{}{
		"name":        "API",
		"description": "Public API",
	})
	assert.Equal(t, domain.ServiceStatusOperational, svc.Status, "status defaults to operational")
	assert.Nil(t, svc.EndpointURL)

	resp, err := client.PATCH("/api/v1/orgs/"+org.Slug+"/services/"+svc.ID, map[string]interface{}{
		"name":         "API v2",
		"description":  "Public API",
		"status":       "degraded",
		"endpoint_url": "https://api.example.com/health",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated serviceResponse
	testutil.DecodeJSON(t, resp, &updated)
	assert.Equal(t, "API v2", updated.Data.Name)
	assert.Equal(t, domain.ServiceStatusDegraded, updated.Data.Status)
	require.NotNil(t, updated.Data.EndpointURL)

	resp, err = client.GET("/api/v1/orgs/" + org.Slug + "/services")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Data []domain.Service `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &list)
	require.Len(t, list.Data, 1)

	resp, err = client.DELETE("/api/v1/orgs/" + org.Slug + "/services/" + svc.ID)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = client.GET("/api/v1/orgs/" + org.Slug + "/services/" + svc.ID)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServiceInvalidStatusRejected(t *testing.T) {
	client, _ := signup(t, "svcbad")
	org := createOrg(t, client, "Bad Status Org")

	resp, err := client.POST("/api/v1/orgs/"+org.Slug+"/services", map[string]interface{}{
		"name":   "API",
		"status": "exploded",
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServicesAreOrgScoped(t *testing.T) {
	owner, _ := signup(t, "scopeowner")
	orgA := createOrg(t, owner, "Org A")
	svc := createService(t, owner, orgA.Slug, map[string]interface{}{"name": "A Service"})

	other, _ := signup(t, "scopeother")
	orgB := createOrg(t, other, "Org B")

	// A service ID from another org resolves to 404 under the wrong org.
	resp, err := other.GET("/api/v1/orgs/" + orgB.Slug + "/services/" + svc.ID)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPublicStatusPage(t *testing.T) {
	client, _ := signup(t, "pubstatus")
	org := createOrg(t, client, "Public Org")
	createService(t, client, org.Slug, map[string]interface{}{"name": "Website"})
	createService(t, client, org.Slug, map[string]interface{}{"name": "Database", "status": "major_outage"})

	// No authentication required.
	anon := newTestClient()
	resp, err := anon.GET("/api/v1/orgs/" + org.Slug + "/status")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Data struct {
			Organization domain.Organization `json:"organization"`
			Services     []domain.Service    `json:"services"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &page)
	assert.Equal(t, org.ID, page.Data.Organization.ID)
	assert.Len(t, page.Data.Services, 2)
}

func TestPublicStatusUnknownOrg(t *testing.T) {
	anon := newTestClient()
	resp, err := anon.GET("/api/v1/orgs/no-such-org/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
