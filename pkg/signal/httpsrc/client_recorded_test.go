package httpsrc

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/dnaeon/go-vcr/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// This test uses go-vcr to record/replay a real desk snapshot call.
// It skips by default if the cassette is absent and RECORD_CASSETTES != 1.
func TestClient_Snapshot_Recorded(t *testing.T) {
	cassette := filepath.Join("testdata", "cassettes", "desk_signals.yaml")
	if _, err := os.Stat(cassette); os.IsNotExist(err) {
		if os.Getenv("RECORD_CASSETTES") != "1" {
			t.Skipf("cassette missing; set RECORD_CASSETTES=1 to record: %s", cassette)
		}
		err := os.MkdirAll(filepath.Dir(cassette), 0o755)
		require.NoError(t, err, "mkdir cassettes dir should succeed")
	}

	url := os.Getenv("DESK_SIGNALS_URL")
	if url == "" {
		url = "https://signals.example.com/v1/signals"
	}

	r, err := recorder.New(cassette)
	require.NoError(t, err, "recorder.New should not error")
	require.NotNil(t, r)
	defer func() { _ = r.Stop() }()

	client, err := NewClient(url,
		WithHTTPClient(&http.Client{Transport: r}),
		WithAuthToken(os.Getenv("DESK_SIGNALS_TOKEN")))
	require.NoError(t, err)

	signals, err := client.Snapshot(context.Background())
	assert.NoError(t, err, "Snapshot should not error")
	assert.NotEmpty(t, signals, "snapshot should carry at least one signal")
	for _, s := range signals {
		assert.NotEmpty(t, s.ID, "signal id should not be empty")
		assert.NotEmpty(t, s.Symbol, "symbol should not be empty")
	}
}
