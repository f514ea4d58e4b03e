package alerts_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ogulcanaydogan/bullfrog/pkg/alerts"
	"github.com/ogulcanaydogan/bullfrog/pkg/model"
)

func testNotification() alerts.Notification {
	return alerts.Notification{
		ConditionType: model.ConditionLicenseOverage,
		Fingerprint:   strings.Repeat("ab", 32),
		Severity:      model.SeverityHigh,
		Markdown:      "**Bullfrog Alert**\n- Type: `license_overage`",
		Time:          time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestWebexNotifier_Name(t *testing.T) {
	n := alerts.NewWebexNotifier("https://webexapis.com/v1/webhooks/incoming/x", 0)
	assert.Equal(t, "webex", n.Name())
}

func TestWebexNotifier_Send(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := alerts.NewWebexNotifier(server.URL, time.Second)
	err := n.Send(context.Background(), testNotification())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"markdown": "**Bullfrog Alert**\n- Type: `license_overage`"}, received)
}

func TestWebexNotifier_Send_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"invalid webhook"}`))
	}))
	defer server.Close()

	n := alerts.NewWebexNotifier(server.URL, time.Second)
	err := n.Send(context.Background(), testNotification())

	var de *alerts.DeliveryError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "webex", de.Notifier)
	assert.Equal(t, http.StatusBadRequest, de.StatusCode)
	assert.Contains(t, de.Body, "invalid webhook")
	assert.Contains(t, err.Error(), "status 400")
}

func TestWebexNotifier_Send_Redirect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusMultipleChoices)
	}))
	defer server.Close()

	n := alerts.NewWebexNotifier(server.URL, time.Second)
	err := n.Send(context.Background(), testNotification())

	var de *alerts.DeliveryError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, http.StatusMultipleChoices, de.StatusCode)
}

func TestWebexNotifier_Send_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := alerts.NewWebexNotifier(server.URL, 20*time.Millisecond)
	err := n.Send(context.Background(), testNotification())

	var de *alerts.DeliveryError
	require.True(t, errors.As(err, &de))
	assert.Zero(t, de.StatusCode)
	assert.Error(t, de.Err)
}

func TestWebexNotifier_Send_NoURL(t *testing.T) {
	n := alerts.NewWebexNotifier("", 0)
	err := n.Send(context.Background(), testNotification())

	var de *alerts.DeliveryError
	require.True(t, errors.As(err, &de))
	assert.Contains(t, err.Error(), "not configured")
}
