package stream

import (
	"context"
	"io"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/json"
	"github.com/san-kum/gravsim/internal/metrics"
	"github.com/san-kum/gravsim/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func testSnapshot(step int64) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Step:   step,
		Time:   float64(step) * 0.01,
		Status: dynamo.Stepping,
		Bodies: []snapshot.BodyView{
			{ID: 0, Pos: r2.Vec{X: -1}, Vel: r2.Vec{Y: -0.5}, Mass: 1, Radius: 0.05},
			{ID: 2, Pos: r2.Vec{X: 1}, Vel: r2.Vec{Y: 0.5}, Mass: 1, Radius: 0.05},
		},
	}
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var f Frame
	require.NoError(t, json.Unmarshal(msg, &f))
	return f
}

func TestNewFrame(t *testing.T) {
	f := NewFrame(testSnapshot(7))

	assert.Equal(t, int64(7), f.Step)
	assert.Equal(t, "stepping", f.Status)
	require.Len(t, f.Bodies, 2)
	assert.Equal(t, 2, f.Bodies[1].ID)
	assert.Equal(t, 1.0, f.Bodies[1].X)
	assert.Equal(t, 0.5, f.Bodies[1].VY)
}

func TestSnapshotEndpoint(t *testing.T) {
	pub := snapshot.NewPublisher(testSnapshot(3))
	srv := httptest.NewServer(NewServer(pub).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/snapshot")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var f Frame
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&f))
	assert.Equal(t, int64(3), f.Step)
	assert.Len(t, f.Bodies, 2)
}

func TestIndexPage(t *testing.T) {
	srv := httptest.NewServer(NewServer(snapshot.NewPublisher(nil)).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(body), "/ws")

	resp, err = http.Get(srv.URL + "/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollectors(reg)
	c.ObserveStep(time.Millisecond)

	srv := httptest.NewServer(NewServer(snapshot.NewPublisher(nil), WithGatherer(reg)).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "gravsim_steps_total 1")
}

func TestMetricsDisabledWithoutGatherer(t *testing.T) {
	srv := httptest.NewServer(NewServer(snapshot.NewPublisher(nil)).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebsocketPushesPublishedSnapshots(t *testing.T) {
	pub := snapshot.NewPublisher(testSnapshot(1))
	s := NewServer(pub, WithFPS(200))
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.pump(ctx)

	conn := dial(t, srv)
	first := readFrame(t, conn)
	assert.Equal(t, int64(1), first.Step)
	require.Eventually(t, func() bool { return s.Viewers() == 1 }, time.Second, 5*time.Millisecond)

	pub.Publish(testSnapshot(2).WithStatus(dynamo.Faulted))
	next := readFrame(t, conn)
	assert.Equal(t, int64(2), next.Step)
	assert.Equal(t, "faulted", next.Status)
}

func TestViewerDisconnectIsTracked(t *testing.T) {
	s := NewServer(snapshot.NewPublisher(testSnapshot(1)))
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	readFrame(t, conn)
	require.Eventually(t, func() bool { return s.Viewers() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return s.Viewers() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestCrossOriginRejectedByDefault(t *testing.T) {
	srv := httptest.NewServer(NewServer(snapshot.NewPublisher(nil)).Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServeStopsOnCancel(t *testing.T) {
	s := NewServer(snapshot.NewPublisher(testSnapshot(1)))
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()

	resp, err := http.Get("http://" + lis.Addr().String() + "/snapshot")
	require.NoError(t, err)
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestWithFPS(t *testing.T) {
	pub := snapshot.NewPublisher(testSnapshot(0))

	tests := []struct {
		name string
		fps  float64
		want time.Duration
	}{
		{"default", 0, time.Second / DefaultFPS},
		{"negative", -5, time.Second / DefaultFPS},
		{"nan", math.NaN(), time.Second / DefaultFPS},
		{"sixty", 60, time.Second / 60},
		{"above a gigahertz", 5e9, time.Nanosecond},
		{"infinite", math.Inf(1), time.Nanosecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(pub, WithFPS(tt.fps))
			assert.Equal(t, tt.want, s.interval)
		})
	}
}

func TestSameHost(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://sim.local:8080", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1", true},
		{"http://localhost.evil.example", false},
		{"https://evil.example", false},
		{"::not a url", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "http://sim.local:8080/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := sameHost(r); got != tt.want {
			t.Errorf("sameHost(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}
