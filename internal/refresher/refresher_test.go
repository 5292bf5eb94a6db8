package refresher

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"gtasks/internal/cache"
	"gtasks/internal/service"
	"gtasks/internal/testutil"
)

const (
	yesterday = "2024-01-14T00:00:00.000Z"
	today     = "2024-01-15T00:00:00.000Z"
	nextWeek  = "2024-01-22T00:00:00.000Z"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newRefresher(svc service.Service, store *cache.Store, logs *bytes.Buffer) (*Refresher, *clock) {
	c := &clock{now: time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := New(svc, testutil.DefaultListID, store, WithClock(c.Now), WithLogger(logger))
	return r, c
}

func ids(tasks []service.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestRefresh_FillsBothViews(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask(testutil.DefaultListID, "1", "Pay rent", yesterday)
	svc.AddTask(testutil.DefaultListID, "2", "Read book", "")
	svc.AddTask(testutil.DefaultListID, "3", "Book flights", nextWeek)
	svc.AddTask(testutil.DefaultListID, "4", "Water plants", today)
	svc.Put(testutil.DefaultListID, service.Task{ID: "5", Title: "Done already", Due: yesterday, Status: service.StatusCompleted})

	store := cache.NewStore()
	var logs bytes.Buffer
	r, _ := newRefresher(svc, store, &logs)

	if !r.Refresh(context.Background()) {
		t.Fatal("Refresh() = false on first call")
	}

	sensor := ids(store.Snapshot(cache.SensorView).Items)
	if strings.Join(sensor, ",") != "1,2,3,4" {
		t.Errorf("sensor view = %v, want [1 2 3 4]", sensor)
	}
	binary := ids(store.Snapshot(cache.BinarySensorView).Items)
	if strings.Join(binary, ",") != "1,4" {
		t.Errorf("binary view = %v, want [1 4]", binary)
	}

	calls := svc.Calls()
	if calls.ListTasks != 2 {
		t.Errorf("ListTasks calls = %d, want 2", calls.ListTasks)
	}

	var sawDue, sawPlain bool
	for _, q := range svc.Queries {
		if q.ShowCompleted {
			t.Errorf("query %+v requests completed tasks", q)
		}
		switch q.DueMax {
		case "":
			sawPlain = true
		case today:
			sawDue = true
		default:
			t.Errorf("unexpected DueMax %q", q.DueMax)
		}
	}
	if !sawDue || !sawPlain {
		t.Errorf("queries = %+v, want one plain and one due-filtered", svc.Queries)
	}
}

func TestRefresh_BinaryViewIsFilteredSensorView(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask(testutil.DefaultListID, "1", "Overdue", yesterday)
	svc.AddTask(testutil.DefaultListID, "2", "Someday", "")

	store := cache.NewStore()
	var logs bytes.Buffer
	r, _ := newRefresher(svc, store, &logs)
	r.Refresh(context.Background())

	sensor := store.Snapshot(cache.SensorView).Items
	binary := store.Snapshot(cache.BinarySensorView).Items
	if len(sensor) != 2 {
		t.Fatalf("sensor view = %+v, want 2 tasks", sensor)
	}
	if len(binary) != 1 || binary[0].ID != "1" || binary[0].Due != yesterday {
		t.Fatalf("binary view = %+v, want only task 1", binary)
	}

	inSensor := make(map[string]bool)
	for _, task := range sensor {
		inSensor[task.ID] = true
	}
	for _, task := range binary {
		if !inSensor[task.ID] {
			t.Errorf("binary task %s missing from sensor view", task.ID)
		}
	}
}

func TestRefresh_ThrottledWithinWindow(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask(testutil.DefaultListID, "1", "Pay rent", yesterday)

	store := cache.NewStore()
	var logs bytes.Buffer
	r, c := newRefresher(svc, store, &logs)

	r.Refresh(context.Background())
	before := store.Snapshot(cache.SensorView)
	svc.AddTask(testutil.DefaultListID, "2", "New task", "")

	for i := 0; i < 5; i++ {
		c.Advance(10 * time.Second)
		if r.Refresh(context.Background()) {
			t.Fatalf("Refresh() ran inside the throttle window (call %d)", i)
		}
	}
	if got := svc.Calls().ListTasks; got != 2 {
		t.Errorf("ListTasks calls = %d, want 2 (no requests while throttled)", got)
	}
	if !strings.Contains(logs.String(), "refresh throttled") || !strings.Contains(logs.String(), "interval=1m0s") {
		t.Errorf("throttled refresh not logged with its interval: %s", logs.String())
	}
	after := store.Snapshot(cache.SensorView)
	if len(after.Items) != len(before.Items) || !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Errorf("store changed while throttled: before %+v after %+v", before, after)
	}

	c.Advance(10 * time.Second)
	if !r.Refresh(context.Background()) {
		t.Fatal("Refresh() refused after the window elapsed")
	}
	if got := len(store.Snapshot(cache.SensorView).Items); got != 2 {
		t.Errorf("sensor view size = %d, want 2 after second refresh", got)
	}
}

func TestRefresh_PartialFailureKeepsPriorView(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask(testutil.DefaultListID, "1", "Overdue", yesterday)

	store := cache.NewStore()
	var logs bytes.Buffer
	r, c := newRefresher(svc, store, &logs)
	r.Refresh(context.Background())

	priorBinary := store.Snapshot(cache.BinarySensorView)
	if len(priorBinary.Items) != 1 {
		t.Fatalf("setup: binary view = %+v", priorBinary.Items)
	}

	svc.AddTask(testutil.DefaultListID, "2", "Also overdue", yesterday)
	svc.ListTasksErr = func(q service.Query) error {
		if q.DueMax != "" {
			return errors.New("backend unavailable")
		}
		return nil
	}

	c.Advance(MinTimeBetweenUpdates)
	if !r.Refresh(context.Background()) {
		t.Fatal("Refresh() = false after window")
	}

	if got := ids(store.Snapshot(cache.SensorView).Items); strings.Join(got, ",") != "1,2" {
		t.Errorf("sensor view = %v, want [1 2]", got)
	}
	binary := store.Snapshot(cache.BinarySensorView)
	if strings.Join(ids(binary.Items), ",") != "1" || !binary.UpdatedAt.Equal(priorBinary.UpdatedAt) {
		t.Errorf("binary view changed after failed request: %+v", binary)
	}

	out := logs.String()
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "backend unavailable") {
		t.Errorf("failure not logged: %s", out)
	}
	if !strings.Contains(out, "view=binary_sensor") {
		t.Errorf("log does not name the failed view: %s", out)
	}
}

func TestRefresh_BothFailKeepsEverything(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.ListTasksErr = func(service.Query) error { return service.ErrTimeout }

	store := cache.NewStore()
	var logs bytes.Buffer
	r, _ := newRefresher(svc, store, &logs)

	if !r.Refresh(context.Background()) {
		t.Fatal("Refresh() = false")
	}
	for _, v := range cache.Views {
		if snap := store.Snapshot(v); !snap.UpdatedAt.IsZero() {
			t.Errorf("%s written despite failure", v)
		}
	}
	if got := strings.Count(logs.String(), "task list request failed"); got != 2 {
		t.Errorf("failure log lines = %d, want 2", got)
	}
}

func TestRefresh_CancelledContextIsNotAnError(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.ListTasksErr = func(service.Query) error { return context.Canceled }

	store := cache.NewStore()
	var logs bytes.Buffer
	r, _ := newRefresher(svc, store, &logs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if !r.Refresh(ctx) {
		t.Fatal("Refresh() = false")
	}

	out := logs.String()
	if strings.Contains(out, "level=ERROR") {
		t.Errorf("shutdown cancellation logged as an error: %s", out)
	}
	if got := strings.Count(out, "task list request cancelled"); got != 2 {
		t.Errorf("cancellation log lines = %d, want 2: %s", got, out)
	}
	for _, v := range cache.Views {
		if snap := store.Snapshot(v); !snap.UpdatedAt.IsZero() {
			t.Errorf("%s written after cancellation", v)
		}
	}
}

func TestRefresh_EmptyListStoresEmptyViews(t *testing.T) {
	svc := testutil.NewFakeService()
	store := cache.NewStore()
	var logs bytes.Buffer
	r, _ := newRefresher(svc, store, &logs)
	r.Refresh(context.Background())

	for _, v := range cache.Views {
		snap := store.Snapshot(v)
		if snap.Items == nil || len(snap.Items) != 0 {
			t.Errorf("%s items = %v, want empty", v, snap.Items)
		}
		if snap.UpdatedAt.IsZero() {
			t.Errorf("%s not written", v)
		}
	}
}

func TestForceRefresh(t *testing.T) {
	svc := testutil.NewFakeService()
	store := cache.NewStore()
	var logs bytes.Buffer
	r, _ := newRefresher(svc, store, &logs)

	r.Refresh(context.Background())
	if r.Refresh(context.Background()) {
		t.Fatal("second Refresh() ran inside window")
	}
	if !r.ForceRefresh(context.Background()) {
		t.Fatal("ForceRefresh() = false")
	}
	if got := svc.Calls().ListTasks; got != 4 {
		t.Errorf("ListTasks calls = %d, want 4", got)
	}
}
