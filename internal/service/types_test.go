package service

import (
	"testing"
	"time"
)

func TestFormatDue(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"utc date", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "2024-01-15T00:00:00.000Z"},
		{"time of day dropped", time.Date(2024, 1, 15, 17, 42, 9, 123456789, time.UTC), "2024-01-15T00:00:00.000Z"},
		{"local calendar date kept", time.Date(2024, 3, 1, 23, 30, 0, 0, time.FixedZone("UTC-5", -5*3600)), "2024-03-01T00:00:00.000Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDue(tt.in); got != tt.want {
				t.Errorf("FormatDue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTask_DueTime(t *testing.T) {
	task := Task{Due: "2024-01-15T00:00:00.000Z"}
	due, ok := task.DueTime()
	if !ok {
		t.Fatal("DueTime() ok = false, want true")
	}
	if !due.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("DueTime() = %v", due)
	}

	if _, ok := (Task{}).DueTime(); ok {
		t.Error("DueTime() on task without due date: ok = true, want false")
	}
	if _, ok := (Task{Due: "tomorrow"}).DueTime(); ok {
		t.Error("DueTime() on malformed due date: ok = true, want false")
	}
}
