package integration

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gtasks/internal/cache"
	"gtasks/internal/config"
	"gtasks/internal/handlers"
	"gtasks/internal/service"
	"gtasks/internal/testutil"
)

// testConfig returns a config whose credential files exist.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default(dir)
	cfg.CredentialsLocation = filepath.Join(dir, "credentials.json")
	cfg.DefaultList = "groceries"
	for _, p := range []string{cfg.CredentialsLocation, cfg.TokenPath()} {
		if err := os.WriteFile(p, []byte("{}"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	return cfg
}

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestSetup_ResolvesListOnce(t *testing.T) {
	cfg := testConfig(t)
	svc := testutil.NewFakeService()
	svc.AddList("list-g", "Groceries")
	svc.AddTask("list-g", "t1", "Milk", "")

	var logs bytes.Buffer
	inst, err := Setup(context.Background(), cfg, svc, testLogger(&logs))
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if inst.List.ID != "list-g" {
		t.Errorf("list ID = %q, want list-g", inst.List.ID)
	}

	inst.Refresher.Refresh(context.Background())
	inst.Handlers.HandleNewTask(context.Background(), handlers.NewTaskRequest{Title: "Eggs"})

	if got := svc.Calls().ResolveList; got != 1 {
		t.Errorf("ResolveList calls = %d, want 1", got)
	}
	if got := len(inst.Store.Snapshot(cache.SensorView).Items); got != 1 {
		t.Errorf("sensor items = %d, want 1", got)
	}
	if _, ok := svc.Task("list-g", "task-1"); !ok {
		t.Error("created task not stored in the resolved list")
	}
}

func TestSetup_MissingFiles(t *testing.T) {
	cfg := testConfig(t)
	if err := os.Remove(cfg.TokenPath()); err != nil {
		t.Fatal(err)
	}
	svc := testutil.NewFakeService()

	_, err := Setup(context.Background(), cfg, svc, nil)
	if !errors.Is(err, config.ErrMissingFiles) {
		t.Fatalf("Setup() error = %v, want ErrMissingFiles", err)
	}
	if !strings.Contains(err.Error(), cfg.TokenPath()) {
		t.Errorf("error %q does not name the missing token", err)
	}
	if got := svc.Calls().ResolveList; got != 0 {
		t.Errorf("ResolveList calls = %d, want 0", got)
	}
}

func TestSetup_ListResolutionFails(t *testing.T) {
	tests := []struct {
		name  string
		lists [][2]string
		want  error
	}{
		{"not found", nil, service.ErrNotFound},
		{"ambiguous", [][2]string{{"a", "Groceries"}, {"b", "groceries "}}, service.ErrAmbiguous},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			svc := testutil.NewFakeService()
			for _, l := range tt.lists {
				svc.AddList(l[0], l[1])
			}
			if _, err := Setup(context.Background(), cfg, svc, nil); !errors.Is(err, tt.want) {
				t.Errorf("Setup() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRun_RefreshesUntilCancelled(t *testing.T) {
	cfg := testConfig(t)
	cfg.ScanIntervalSec = 1
	svc := testutil.NewFakeService()
	svc.AddList("list-g", "Groceries")

	inst, err := Setup(context.Background(), cfg, svc, nil)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	updated := make(chan cache.Snapshot, 4)
	inst.Store.OnUpdate(func(s cache.Snapshot) { updated <- s })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		inst.Run(ctx)
		close(done)
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-updated:
		case <-time.After(5 * time.Second):
			t.Fatal("initial refresh did not write both views")
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	if got := svc.Calls().ListTasks; got != 2 {
		t.Errorf("ListTasks calls = %d, want 2 (throttle caps the scan ticks)", got)
	}
}

func TestClose_DiscardsViews(t *testing.T) {
	cfg := testConfig(t)
	svc := testutil.NewFakeService()
	svc.AddList("list-g", "Groceries")
	svc.AddTask("list-g", "t1", "Milk", "")

	var logs bytes.Buffer
	inst, err := Setup(context.Background(), cfg, svc, testLogger(&logs))
	if err != nil {
		t.Fatal(err)
	}
	inst.Refresher.Refresh(context.Background())
	inst.Close()

	for _, v := range cache.Views {
		snap := inst.Store.Snapshot(v)
		if len(snap.Items) != 0 || !snap.UpdatedAt.IsZero() {
			t.Errorf("%s not discarded: %+v", v, snap)
		}
	}
	if !strings.Contains(logs.String(), "integration unloaded") {
		t.Errorf("unload not logged: %s", logs.String())
	}
}
