package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/camspeed/internal/api/models"
	"github.com/smazurov/camspeed/internal/camera"
	"github.com/smazurov/camspeed/internal/events"
	"github.com/smazurov/camspeed/internal/metrics"
)

func getJSON(t *testing.T, ts *httptest.Server, path string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp
}

func TestHealth(t *testing.T) {
	server := NewServer(&Options{})
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	var body models.HealthData
	resp := getJSON(t, ts, "/api/health", &body)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if body.Status != "ok" {
		t.Errorf("health status = %q, want ok", body.Status)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestVersion(t *testing.T) {
	ts := httptest.NewServer(NewServer(&Options{}).Handler())
	defer ts.Close()

	var body models.VersionData
	getJSON(t, ts, "/api/version", &body)
	if body.Version == "" || body.GoVersion == "" {
		t.Errorf("version = %+v", body)
	}
}

func TestStatusIdle(t *testing.T) {
	ts := httptest.NewServer(NewServer(&Options{}).Handler())
	defer ts.Close()

	var body models.StatusData
	getJSON(t, ts, "/api/status", &body)
	if body.State != StateIdle {
		t.Errorf("state = %q, want %q", body.State, StateIdle)
	}
	if body.LastReport != nil || body.Device != nil {
		t.Errorf("idle status carries data: %+v", body)
	}
}

func TestStatusFollowsBus(t *testing.T) {
	serial := "api-test"
	defer metrics.DeleteCameraMetrics(serial)
	metrics.FrameCounter(serial).Inc()

	bus := events.New()
	defer bus.Close()
	status := NewStatus()
	defer status.Attach(bus)()

	ts := httptest.NewServer(NewServer(&Options{Status: status}).Handler())
	defer ts.Close()

	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	status.SetDevice("s1", camera.DeviceInfo{Model: "Simulated", SerialNumber: serial, MaxWidth: 1440},
		camera.Settings{PixelFormat: camera.Ptr("Mono8")})
	events.Publish(bus, events.SessionStateEvent{SessionID: "s1", Serial: serial, State: events.StateStreaming, Timestamp: now})
	events.Publish(bus, events.SettingsAppliedEvent{SessionID: "s1", Serial: serial, Live: true})
	events.Publish(bus, events.ReportEvent{SessionID: "s1", Serial: serial, Seq: 4, Frames: 60, FPS: 60, Interval: time.Second, Timestamp: now})

	var body models.StatusData
	deadline := time.Now().Add(time.Second)
	for {
		body = models.StatusData{}
		getJSON(t, ts, "/api/status", &body)
		if body.LastReport != nil && body.LiveReloads == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("status not updated: %+v", body)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if body.State != events.StateStreaming || body.SessionID != "s1" || body.Serial != serial {
		t.Errorf("status = %+v", body)
	}
	if body.LastReport.Frames != 60 || body.LastReport.IntervalMs != 1000 || body.LastReport.Seq != 4 {
		t.Errorf("last report = %+v", body.LastReport)
	}
	if body.Device == nil || body.Device.MaxWidth != 1440 {
		t.Errorf("device = %+v", body.Device)
	}
	if body.Settings == nil || *body.Settings.PixelFormat != "Mono8" {
		t.Errorf("settings = %+v", body.Settings)
	}
	if body.Counters == nil || body.Counters.Frames != 1 {
		t.Errorf("counters = %+v", body.Counters)
	}
}

func TestStatusNewSessionResets(t *testing.T) {
	status := NewStatus()
	status.onState(events.SessionStateEvent{SessionID: "a", Serial: "X", State: events.StateStreaming})
	status.onReport(events.ReportEvent{SessionID: "a", Frames: 5})
	status.onState(events.SessionStateEvent{SessionID: "b", State: events.StateStarting})

	got := status.Snapshot()
	if got.SessionID != "b" || got.LastReport != nil || got.Serial != "" {
		t.Errorf("snapshot after new session = %+v", got)
	}

	status.onState(events.SessionStateEvent{SessionID: "b", State: events.StateFailed, Error: "boom"})
	if got := status.Snapshot(); got.State != events.StateFailed || got.Error != "boom" {
		t.Errorf("failed snapshot = %+v", got)
	}
}

func TestMetricsAndPreflight(t *testing.T) {
	metrics.ObserveReport("api-metrics", 12)
	defer metrics.DeleteCameraMetrics("api-metrics")

	ts := httptest.NewServer(NewServer(&Options{PrometheusHandler: metrics.HTTPHandler()}).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `camspeed_camera_fps{serial="api-metrics"} 12`) {
		t.Error("metrics endpoint does not expose camspeed_camera_fps")
	}

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/status", nil)
	pre, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	pre.Body.Close()
	if pre.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", pre.StatusCode, http.StatusNoContent)
	}
}

func TestStartStop(t *testing.T) {
	server := NewServer(&Options{})
	errc := make(chan error, 1)
	go func() { errc <- server.Start("127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)

	if err := server.Stop(); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Start() = %v, want nil after Stop", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}
