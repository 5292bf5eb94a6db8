package homeassistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gtasks/internal/config"
	"gtasks/internal/handlers"
)

// EventPrefix prefixes the bus event types the listener subscribes to.
// Firing gtasks_new_task with data {"title": ...} creates a task.
const EventPrefix = "gtasks_"

// DefaultReconnectDelay is the pause between connection attempts.
const DefaultReconnectDelay = 10 * time.Second

// Dispatcher runs a named task command with a JSON payload.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, payload []byte)
}

// Listener subscribes to the task command events on the HA bus and
// dispatches their data.
type Listener struct {
	client     *WSClient
	dispatcher Dispatcher
	logger     *slog.Logger

	// ReconnectDelay is the pause after a failed or dropped connection.
	ReconnectDelay time.Duration
}

// NewListener creates a Listener for the configured HA instance.
func NewListener(cfg config.HomeAssistantConfig, dispatcher Dispatcher, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		client:         NewWSClient(cfg.URL, cfg.Token, logger),
		dispatcher:     dispatcher,
		logger:         logger,
		ReconnectDelay: DefaultReconnectDelay,
	}
}

// EventTypes returns the bus event types mapped to their service names.
func EventTypes() map[string]string {
	return map[string]string{
		EventPrefix + handlers.ServiceNewTask:      handlers.ServiceNewTask,
		EventPrefix + handlers.ServiceCompleteTask: handlers.ServiceCompleteTask,
	}
}

// Run connects, subscribes and dispatches events until ctx is cancelled,
// reconnecting after every drop. A rejected token ends Run with an error.
func (l *Listener) Run(ctx context.Context) error {
	defer l.client.Close()

	for {
		err := l.client.Connect(ctx)
		if errors.Is(err, ErrAuthInvalid) {
			return fmt.Errorf("home assistant: %w", err)
		}
		if err == nil {
			err = l.subscribe(ctx)
		}
		if err != nil {
			l.logger.Warn("home assistant connection failed", "error", err, "retry_in", l.ReconnectDelay)
		} else {
			l.consume(ctx)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.ReconnectDelay):
		}
	}
}

// subscribe adds the event types that Connect did not already restore.
func (l *Listener) subscribe(ctx context.Context) error {
	for eventType := range EventTypes() {
		if l.client.Subscribed(eventType) {
			continue
		}
		if err := l.client.Subscribe(ctx, eventType); err != nil {
			return err
		}
	}
	return nil
}

// consume dispatches events until the connection drops or ctx ends.
func (l *Listener) consume(ctx context.Context) {
	done := l.client.Done()
	services := EventTypes()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			l.logger.Warn("home assistant connection lost")
			return
		case ev := <-l.client.Events():
			name, ok := services[ev.Type]
			if !ok {
				l.logger.Debug("ignoring event", "event_type", ev.Type)
				continue
			}
			l.logger.Log(ctx, config.LevelTrace, "home assistant event received",
				"event_type", ev.Type, "data", string(ev.Data))
			l.dispatcher.Dispatch(ctx, name, ev.Data)
		}
	}
}
