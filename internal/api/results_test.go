package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seantiz/errand/internal/automation"
	"github.com/seantiz/errand/internal/model"
)

// waitForStatus polls the record endpoint until the job reaches want.
func waitForStatus(t *testing.T, srv *testServer, id, want string) model.JobRecord {
	t.Helper()
	var rec model.JobRecord
	require.Eventually(t, func() bool {
		resp, body := srv.get(t, "/v1/search_results/"+id+"/record")
		if resp.StatusCode != http.StatusOK {
			return false
		}
		if err := json.Unmarshal([]byte(body), &rec); err != nil {
			return false
		}
		return rec.Status == want
	}, 5*time.Second, 10*time.Millisecond)
	return rec
}

func TestSearchResultLifecycle(t *testing.T) {
	srv := newTestServerWith(t, serverOptions{searchEngine: &automation.Scripted{
		Steps:     []string{"open", "search"},
		StepDelay: 50 * time.Millisecond,
		Result:    "1. Pizza Hut - Margherita - 120 SEK",
	}})

	ack := decodeAck(t, srv.postJSON(t, "/v1/actions/find_menu_options", map[string]string{
		"address":      "Stockholm, Sweden",
		"food_craving": "pizza",
	}))

	resp, body := srv.get(t, "/v1/search_results/"+ack.RequestID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Search for 'pizza' at 'Stockholm, Sweden' is running. Check back in 2-3 minutes for results.", body)
	assert.Equal(t, model.StatusRunning, resp.Header.Get("X-Job-Status"))
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")

	rec := waitForStatus(t, srv, ack.RequestID, model.StatusCompleted)
	assert.Equal(t, ack.RequestID, rec.RequestID)
	assert.False(t, rec.Timestamp.IsZero())

	for range 2 {
		resp, body = srv.get(t, "/v1/search_results/"+ack.RequestID)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "1. Pizza Hut - Margherita - 120 SEK", body)
	}
}

func TestSearchTimeoutResult(t *testing.T) {
	srv := newTestServerWith(t, serverOptions{
		searchEngine: blockingEngine{},
		timeout:      50 * time.Millisecond,
	})

	ack := decodeAck(t, srv.postJSON(t, "/v1/actions/find_menu_options", map[string]string{
		"address":      "Uppsala",
		"food_craving": "ramen",
	}))

	rec := waitForStatus(t, srv, ack.RequestID, model.StatusError)
	assert.Equal(t, model.CancelledMessage, rec.Result)
}

func TestSearchResultNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, body := srv.get(t, "/v1/search_results/01JUNKNOWN")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "No search results found for request ID: 01JUNKNOWN", body)

	resp, _ = srv.get(t, "/v1/search_results/01JUNKNOWN/record")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetResource(t *testing.T) {
	srv := newTestServer(t)
	ack := decodeAck(t, srv.postJSON(t, "/v1/actions/find_menu_options", map[string]string{
		"address":      "Lund",
		"food_craving": "sushi",
	}))
	waitForStatus(t, srv, ack.RequestID, model.StatusCompleted)

	resp, body := srv.get(t, "/v1/resources?uri="+url.QueryEscape(ack.ResourceURI))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1. Pizza Hut - Margherita - 120 SEK", body)

	resp, _ = srv.get(t, "/v1/resources?uri="+url.QueryEscape("resource://search_results/missing"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = srv.get(t, "/v1/resources?uri="+url.QueryEscape("https://example.com/x"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
