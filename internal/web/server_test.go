package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/vaultecki/py-positioning-stuff/internal/metrics"
	"github.com/vaultecki/py-positioning-stuff/internal/track"
)

func testFix(lat, lon float64) track.Fix {
	return track.Fix{Latitude: lat, Longitude: lon, Timestamp: time.Now().UTC()}
}

func TestStatusEndpoint(t *testing.T) {
	store := track.NewStore(10)
	store.Add(testFix(48.1, 11.5))
	store.Add(testFix(48.2, 11.6))

	srv := httptest.NewServer(Handler(store, nil, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var stats track.Statistics
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	require.Equal(t, int64(2), stats.TotalReceived)
	require.Equal(t, 2, stats.StoredPositions)
}

func TestStatusMethodNotAllowed(t *testing.T) {
	srv := httptest.NewServer(Handler(track.NewStore(10), nil, nil))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/status", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestPositionsEndpoint(t *testing.T) {
	store := track.NewStore(10)
	for i := 0; i < 5; i++ {
		store.Add(testFix(48.0+float64(i)*0.1, 11.5))
	}

	srv := httptest.NewServer(Handler(store, nil, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/positions?count=2")
	require.NoError(t, err)
	defer resp.Body.Close()

	var fixes []track.Fix
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fixes))
	require.Len(t, fixes, 2)
	require.InDelta(t, 48.3, fixes[0].Latitude, 1e-9)
	require.InDelta(t, 48.4, fixes[1].Latitude, 1e-9)
}

func TestPositionsBadCount(t *testing.T) {
	srv := httptest.NewServer(Handler(track.NewStore(10), nil, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/positions?count=abc")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	collector := metrics.NewCollector()
	collector.Inc("sentences_received", 3)

	srv := httptest.NewServer(Handler(track.NewStore(10), nil, collector))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var snap metrics.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	require.Equal(t, int64(3), snap.Counters["sentences_received"])
}

func TestMetricsUnavailable(t *testing.T) {
	srv := httptest.NewServer(Handler(track.NewStore(10), nil, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebsocketFeed(t *testing.T) {
	store := track.NewStore(10)
	feed := NewBroadcaster()
	store.Register(feed)

	srv := httptest.NewServer(Handler(store, feed, nil))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	store.Add(testFix(48.1234, 11.5678))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var fix track.Fix
	require.NoError(t, json.Unmarshal(msg, &fix))
	require.InDelta(t, 48.1234, fix.Latitude, 1e-9)
	require.InDelta(t, 11.5678, fix.Longitude, 1e-9)
}

func TestBroadcasterReplaysLastFix(t *testing.T) {
	feed := NewBroadcaster()
	feed.OnFix(testFix(48.5, 11.5))

	id, ch := feed.Subscribe(4)
	defer feed.Unsubscribe(id)

	select {
	case fix := <-ch:
		require.InDelta(t, 48.5, fix.Latitude, 1e-9)
	case <-time.After(time.Second):
		t.Fatal("no replayed fix")
	}
}

func TestBroadcasterDropsOnFullBuffer(t *testing.T) {
	feed := NewBroadcaster()
	id, ch := feed.Subscribe(1)
	defer feed.Unsubscribe(id)

	feed.OnFix(testFix(48.1, 11.5))
	feed.OnFix(testFix(48.2, 11.5))
	feed.OnFix(testFix(48.3, 11.5))

	fix := <-ch
	require.InDelta(t, 48.1, fix.Latitude, 1e-9)
	select {
	case <-ch:
	default:
	}
}
