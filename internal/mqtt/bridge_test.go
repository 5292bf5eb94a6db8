package mqtt

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gtasks/internal/cache"
	"gtasks/internal/config"
	"gtasks/internal/service"
	"gtasks/internal/testutil"
)

type recordedCall struct {
	name    string
	payload string
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []recordedCall
	done  chan struct{}
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{done: make(chan struct{}, 10)}
}

func (d *fakeDispatcher) Dispatch(_ context.Context, name string, payload []byte) {
	d.mu.Lock()
	d.calls = append(d.calls, recordedCall{name: name, payload: string(payload)})
	d.mu.Unlock()
	d.done <- struct{}{}
}

func newTestBridge(t *testing.T, d Dispatcher) (*Bridge, *cache.Store) {
	t.Helper()
	cfg := config.MQTTConfig{
		Broker:          "mqtt://localhost:1883",
		DeviceName:      "kitchen",
		DiscoveryPrefix: "homeassistant",
	}
	store := cache.NewStore()
	b := New(cfg, "instance-123", "0.1.0", Names{Sensor: "gtasks", BinarySensor: "gtasks_due"}, store, d, nil)
	return b, store
}

func TestLoadOrCreateInstanceID_CreatesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")

	id, err := LoadOrCreateInstanceID(dir)
	if err != nil {
		t.Fatalf("LoadOrCreateInstanceID() error = %v", err)
	}
	if parts := strings.Split(id, "-"); len(parts) != 5 {
		t.Errorf("id %q does not look like a UUID", id)
	}

	data, err := os.ReadFile(filepath.Join(dir, InstanceIDFile))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != id {
		t.Errorf("file content = %q, want %q", got, id)
	}
}

func TestLoadOrCreateInstanceID_ReturnsExisting(t *testing.T) {
	dir := t.TempDir()

	first, err := LoadOrCreateInstanceID(dir)
	if err != nil {
		t.Fatalf("first call error = %v", err)
	}
	second, err := LoadOrCreateInstanceID(dir)
	if err != nil {
		t.Fatalf("second call error = %v", err)
	}
	if second != first {
		t.Errorf("second = %q, want %q", second, first)
	}
}

func TestLoadOrCreateInstanceID_ReplacesEmptyFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, InstanceIDFile), []byte("  \n"), 0644); err != nil {
		t.Fatal(err)
	}
	id, err := LoadOrCreateInstanceID(dir)
	if err != nil {
		t.Fatalf("LoadOrCreateInstanceID() error = %v", err)
	}
	if id == "" {
		t.Error("empty id")
	}
}

func TestBridge_TopicPaths(t *testing.T) {
	b, _ := newTestBridge(t, newFakeDispatcher())

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"baseTopic", b.baseTopic(), "gtasks/kitchen"},
		{"availabilityTopic", b.availabilityTopic(), "gtasks/kitchen/availability"},
		{"stateTopic", b.stateTopic("tasks"), "gtasks/kitchen/tasks/state"},
		{"attributesTopic", b.attributesTopic("due"), "gtasks/kitchen/due/attributes"},
		{"commandTopic", b.commandTopic("new_task"), "gtasks/kitchen/new_task"},
		{"discoveryTopic", b.discoveryTopic("binary_sensor", "due"), "homeassistant/binary_sensor/kitchen/due/config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestBridge_EntityConfigs(t *testing.T) {
	b, _ := newTestBridge(t, newFakeDispatcher())

	sensor := b.entityConfig(entities[0])
	if sensor.Name != "gtasks" || sensor.UniqueID != "instance-123_tasks" {
		t.Errorf("sensor config = %+v", sensor)
	}
	if sensor.StateTopic != "gtasks/kitchen/tasks/state" || sensor.JsonAttributesTopic != "gtasks/kitchen/tasks/attributes" {
		t.Errorf("sensor topics = %q, %q", sensor.StateTopic, sensor.JsonAttributesTopic)
	}
	if sensor.PayloadOn != "" {
		t.Errorf("sensor has payload_on %q", sensor.PayloadOn)
	}

	binary := b.entityConfig(entities[1])
	if binary.Name != "gtasks_due" || binary.PayloadOn != StateOn || binary.PayloadOff != StateOff {
		t.Errorf("binary config = %+v", binary)
	}

	for _, cfg := range []EntityConfig{sensor, binary} {
		if cfg.AvailabilityTopic != "gtasks/kitchen/availability" {
			t.Errorf("%s: availability = %q", cfg.Name, cfg.AvailabilityTopic)
		}
		if len(cfg.Device.Identifiers) != 1 || cfg.Device.Identifiers[0] != "instance-123" {
			t.Errorf("%s: device identifiers = %v", cfg.Name, cfg.Device.Identifiers)
		}
		if cfg.Device.SWVersion != "0.1.0" {
			t.Errorf("%s: sw_version = %q", cfg.Name, cfg.Device.SWVersion)
		}
	}

	data, err := json.Marshal(sensor)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "payload_on") {
		t.Errorf("sensor discovery JSON carries binary fields: %s", data)
	}
}

func TestStatePayload(t *testing.T) {
	two := []service.Task{{ID: "1"}, {ID: "2"}}
	tests := []struct {
		name string
		snap cache.Snapshot
		want string
	}{
		{"sensor count", cache.Snapshot{View: cache.SensorView, Items: two}, "2"},
		{"sensor empty", cache.Snapshot{View: cache.SensorView}, "0"},
		{"binary on", cache.Snapshot{View: cache.BinarySensorView, Items: two[:1]}, StateOn},
		{"binary off", cache.Snapshot{View: cache.BinarySensorView, Items: []service.Task{}}, StateOff},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statePayload(tt.snap); got != tt.want {
				t.Errorf("statePayload() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAttributesPayload(t *testing.T) {
	snap := cache.Snapshot{
		View: cache.SensorView,
		Items: []service.Task{
			{ID: "1", Title: "Pay rent", Due: "2024-01-15T00:00:00.000Z", Status: service.StatusNeedsAction, Notes: "ignored"},
			{ID: "2", Title: "Read book", Status: service.StatusNeedsAction},
		},
		UpdatedAt: time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC),
	}

	data, err := attributesPayload(snap)
	if err != nil {
		t.Fatalf("attributesPayload() error = %v", err)
	}
	want := `{"tasks":[` +
		`{"id":"1","title":"Pay rent","due":"2024-01-15T00:00:00.000Z","status":"needsAction"},` +
		`{"id":"2","title":"Read book","status":"needsAction"}],` +
		`"updated_at":"2024-01-15T09:30:00Z"}`
	if string(data) != want {
		t.Errorf("attributes =\n%s\nwant\n%s", data, want)
	}

	empty, err := attributesPayload(cache.Snapshot{View: cache.BinarySensorView})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(empty), `"tasks":[]`) {
		t.Errorf("empty view attributes = %s, want empty array", empty)
	}
}

func TestBridge_Route(t *testing.T) {
	b, _ := newTestBridge(t, newFakeDispatcher())

	tests := []struct {
		topic string
		want  string
		ok    bool
	}{
		{"gtasks/kitchen/new_task", "new_task", true},
		{"gtasks/kitchen/complete_task", "complete_task", true},
		{"gtasks/kitchen/tasks/state", "", false},
		{"gtasks/other/new_task", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			got, ok := b.route(tt.topic)
			if got != tt.want || ok != tt.ok {
				t.Errorf("route(%q) = %q, %v; want %q, %v", tt.topic, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestBridge_HandleMessageDispatches(t *testing.T) {
	d := newFakeDispatcher()
	b, _ := newTestBridge(t, d)

	b.handleMessage(context.Background(), "gtasks/kitchen/new_task", []byte(`{"title":"Buy milk"}`))
	b.handleMessage(context.Background(), "gtasks/kitchen/unknown", []byte(`{}`))

	select {
	case <-d.done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch not called")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.calls) != 1 {
		t.Fatalf("dispatch calls = %d, want 1", len(d.calls))
	}
	if d.calls[0].name != "new_task" || d.calls[0].payload != `{"title":"Buy milk"}` {
		t.Errorf("dispatch call = %+v", d.calls[0])
	}
}

func TestBridge_UpdateBeforeConnectIsDropped(t *testing.T) {
	b, store := newTestBridge(t, newFakeDispatcher())

	store.Set(cache.SensorView, []service.Task{{ID: "1"}})

	if err := b.Stop(context.Background()); err != nil {
		t.Errorf("Stop() before Start error = %v", err)
	}
}

func TestBridge_BinarySensorDiscoveryGolden(t *testing.T) {
	b, _ := newTestBridge(t, newFakeDispatcher())
	e, ok := entityFor(cache.BinarySensorView)
	if !ok {
		t.Fatal("no entity for binary sensor view")
	}

	data, err := json.Marshal(b.entityConfig(e))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	testutil.GoldenJSON(t, "binary_sensor_config", data)
}
