package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestHandlerExposesRecordedSeries(t *testing.T) {
	RecordProfileLoad("ok", 0.3)
	RecordPage("Progress")
	RecordTruncated("Progress")
	RecordQuery("User", "ok", 0.05)
	RecordEvent("error")
	SetSessions(3)
	RecordRateLimited()

	out := scrape(t)

	assert.Contains(t, out, `xpdash_profile_loads_total{status="ok"}`)
	assert.Contains(t, out, "xpdash_profile_load_duration_seconds_bucket")
	assert.Contains(t, out, `xpdash_pages_fetched_total{query="Progress"}`)
	assert.Contains(t, out, `xpdash_pagination_truncated_total{query="Progress"}`)
	assert.Contains(t, out, `xpdash_query_requests_total{query="User",status="ok"}`)
	assert.Contains(t, out, `xpdash_events_published_total{status="error"}`)
	assert.Contains(t, out, "xpdash_active_sessions 3")
	assert.Contains(t, out, "xpdash_rate_limited_total")
}
