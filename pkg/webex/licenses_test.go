package webex_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ogulcanaydogan/bullfrog/pkg/webex"
)

func TestClient_ListLicenses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/licenses", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.Equal(t, "org-42", r.URL.Query().Get("orgId"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[
			{"id":"L1","name":"Webex Calling","totalUnits":100,"consumedUnits":105,"subscriptionId":"sub-1"},
			{"id":"L2","name":"Messaging"}
		]}`))
	}))
	defer server.Close()

	client := webex.NewClient(server.URL, time.Second, webex.StaticToken("tok-123"))
	licenses, err := client.ListLicenses(context.Background(), "org-42")
	require.NoError(t, err)
	require.Len(t, licenses, 2)

	assert.Equal(t, "L1", licenses[0].ID)
	require.NotNil(t, licenses[0].ConsumedUnits)
	assert.Equal(t, int64(105), *licenses[0].ConsumedUnits)
	assert.Equal(t, "sub-1", licenses[0].SubscriptionID)
	assert.Nil(t, licenses[1].TotalUnits)
}

func TestClient_ListLicenses_DefaultOrg(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("orgId"))
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	client := webex.NewClient(server.URL, time.Second, webex.StaticToken("tok-123"))
	licenses, err := client.ListLicenses(context.Background(), "  ")
	require.NoError(t, err)
	assert.Empty(t, licenses)
}

func TestClient_ListLicenses_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"missing scope"}`))
	}))
	defer server.Close()

	client := webex.NewClient(server.URL, time.Second, webex.StaticToken("tok-123"))
	_, err := client.ListLicenses(context.Background(), "")

	var apiErr *webex.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "missing scope")
}

func TestClient_ListLicenses_CredentialError(t *testing.T) {
	client := webex.NewClient("http://127.0.0.1:0", time.Second, webex.StaticToken(""))
	_, err := client.ListLicenses(context.Background(), "")

	var ce *webex.CredentialError
	assert.True(t, errors.As(err, &ce))
}
