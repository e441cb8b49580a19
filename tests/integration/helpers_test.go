//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/statuspulse/statuspulse/internal/domain"
	"github.com/statuspulse/statuspulse/internal/testutil"
)

var userSeq atomic.Int64

// uniqueEmail returns an address unused by any previous test.
func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, userSeq.Add(1))
}

func uniqueSlug(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

type orgResponse struct {
	Data domain.Organization `json:"data"`
}

type serviceResponse struct {
	Data domain.Service `json:"data"`
}

type incidentResponse struct {
	Data domain.Incident `json:"data"`
}

// signup registers a fresh user and returns an authenticated client with
// the user's email.
func signup(t *testing.T, prefix string) (*testutil.Client, string) {
	t.Helper()

	client := newTestClient()
	email := uniqueEmail(prefix)
	client.RegisterAndLogin(t, email, "Test User", "password123")
	return client, email
}

// createOrg creates an organization owned by the client's user.
func createOrg(t *testing.T, client *testutil.Client, name string) domain.Organization {
	t.Helper()

	resp, err := client.POST("/api/v1/orgs", map[string]string{
		"name": name,
		"slug": uniqueSlug("org"),
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out orgResponse
	testutil.DecodeJSON(t, resp, &out)
	return out.Data
}

// createService creates a service on the organization's status page.
func createService(t *testing.T, client *testutil.Client, orgSlug string, body map[string]interface{}) domain.Service {
	t.Helper()

	resp, err := client.POST("/api/v1/orgs/"+orgSlug+"/services", body)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out serviceResponse
	testutil.DecodeJSON(t, resp, &out)
	return out.Data
}

// createIncident opens an incident in the organization.
func createIncident(t *testing.T, client *testutil.Client, orgSlug string, body map[string]interface{}) domain.Incident {
	t.Helper()

	resp, err := client.POST("/api/v1/orgs/"+orgSlug+"/incidents", body)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out incidentResponse
	testutil.DecodeJSON(t, resp, &out)
	return out.Data
}
