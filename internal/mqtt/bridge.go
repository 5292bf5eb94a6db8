package mqtt

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"gtasks/internal/cache"
	"gtasks/internal/config"
	"gtasks/internal/handlers"
)

const (
	// StateOn and StateOff are the binary sensor payloads.
	StateOn  = "ON"
	StateOff = "OFF"

	connectTimeout = 30 * time.Second
	publishTimeout = 10 * time.Second
)

// Dispatcher runs a named task command with a JSON payload.
// *handlers.Handlers satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, payload []byte)
}

// Names are the HA entity names of the two views.
type Names struct {
	Sensor       string
	BinarySensor string
}

// entity binds a cache view to its HA component and topic segment.
type entity struct {
	suffix    string
	component string
	view      cache.View
}

var entities = []entity{
	{suffix: "tasks", component: "sensor", view: cache.SensorView},
	{suffix: "due", component: "binary_sensor", view: cache.BinarySensorView},
}

// commands lists the services accepted on command topics.
var commands = []string{handlers.ServiceNewTask, handlers.ServiceCompleteTask}

// Bridge publishes cached views as HA entities and forwards command
// topic messages to a Dispatcher.
type Bridge struct {
	cfg        config.MQTTConfig
	instanceID string
	names      Names
	device     DeviceInfo
	store      *cache.Store
	dispatcher Dispatcher
	logger     *slog.Logger

	mu  sync.Mutex
	cm  *autopaho.ConnectionManager
	ctx context.Context
}

// New creates a Bridge and registers it for store updates. It does not
// connect; call [Bridge.Start].
func New(cfg config.MQTTConfig, instanceID, version string, names Names, store *cache.Store, dispatcher Dispatcher, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bridge{
		cfg:        cfg,
		instanceID: instanceID,
		names:      names,
		device:     NewDeviceInfo(instanceID, cfg.DeviceName, version),
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
	}
	store.OnUpdate(b.onUpdate)
	return b
}

// Start connects to the broker and waits for the first connection. A
// connection timeout is logged, not returned; autopaho keeps retrying in
// the background until ctx is cancelled.
func (b *Bridge) Start(ctx context.Context) error {
	brokerURL, err := url.Parse(b.cfg.Broker)
	if err != nil {
		return fmt.Errorf("parse mqtt broker URL: %w", err)
	}

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerURL},
		KeepAlive:       30,
		ConnectUsername: b.cfg.Username,
		ConnectPassword: []byte(b.cfg.Password),
		WillMessage: &paho.WillMessage{
			Topic:   b.availabilityTopic(),
			Payload: []byte("offline"),
			QoS:     1,
			Retain:  true,
		},
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			b.logger.Info("mqtt connected to broker", "broker", b.cfg.Broker)
			b.publishDiscovery(ctx, cm)
			b.publishAvailability(ctx, cm, "online")
			b.subscribeCommands(ctx, cm)
			for _, e := range entities {
				if snap := b.store.Snapshot(e.view); !snap.UpdatedAt.IsZero() {
					b.publishState(ctx, cm, e, snap)
				}
			}
		},
		OnConnectError: func(err error) {
			b.logger.Warn("mqtt connection error", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: "gtasks-" + b.cfg.DeviceName,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				func(pr paho.PublishReceived) (bool, error) {
					b.handleMessage(ctx, pr.Packet.Topic, pr.Packet.Payload)
					return true, nil
				},
			},
		},
	}

	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	b.mu.Lock()
	b.cm = cm
	b.ctx = ctx
	b.mu.Unlock()

	connCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := cm.AwaitConnection(connCtx); err != nil {
		b.logger.Warn("mqtt initial connection timed out, will retry in background", "error", err)
	}
	return nil
}

// Stop publishes "offline" and disconnects. ctx bounds both steps.
func (b *Bridge) Stop(ctx context.Context) error {
	cm := b.conn()
	if cm == nil {
		return nil
	}
	b.publishAvailability(ctx, cm, "offline")
	return cm.Disconnect(ctx)
}

func (b *Bridge) conn() *autopaho.ConnectionManager {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cm
}

// --- Topic helpers ---

func (b *Bridge) baseTopic() string {
	return config.AppName + "/" + b.cfg.DeviceName
}

func (b *Bridge) availabilityTopic() string {
	return b.baseTopic() + "/availability"
}

func (b *Bridge) stateTopic(suffix string) string {
	return b.baseTopic() + "/" + suffix + "/state"
}

func (b *Bridge) attributesTopic(suffix string) string {
	return b.baseTopic() + "/" + suffix + "/attributes"
}

func (b *Bridge) commandTopic(service string) string {
	return b.baseTopic() + "/" + service
}

func (b *Bridge) discoveryTopic(component, suffix string) string {
	return b.cfg.DiscoveryPrefix + "/" + component + "/" + b.cfg.DeviceName + "/" + suffix + "/config"
}

// --- Discovery ---

func (b *Bridge) entityConfig(e entity) EntityConfig {
	cfg := EntityConfig{
		UniqueID:            b.instanceID + "_" + e.suffix,
		StateTopic:          b.stateTopic(e.suffix),
		AvailabilityTopic:   b.availabilityTopic(),
		JsonAttributesTopic: b.attributesTopic(e.suffix),
		Device:              b.device,
	}
	switch e.view {
	case cache.SensorView:
		cfg.Name = b.names.Sensor
		cfg.ObjectID = b.names.Sensor
		cfg.Icon = "mdi:format-list-checks"
		cfg.UnitOfMeasurement = "tasks"
		cfg.StateClass = "measurement"
	case cache.BinarySensorView:
		cfg.Name = b.names.BinarySensor
		cfg.ObjectID = b.names.BinarySensor
		cfg.Icon = "mdi:calendar-alert"
		cfg.PayloadOn = StateOn
		cfg.PayloadOff = StateOff
	}
	return cfg
}

func (b *Bridge) publishDiscovery(ctx context.Context, cm *autopaho.ConnectionManager) {
	for _, e := range entities {
		topic := b.discoveryTopic(e.component, e.suffix)
		payload, err := json.Marshal(b.entityConfig(e))
		if err != nil {
			b.logger.Error("mqtt marshal discovery payload", "entity", e.suffix, "error", err)
			continue
		}
		if _, err := cm.Publish(ctx, &paho.Publish{
			Topic:   topic,
			Payload: payload,
			QoS:     1,
			Retain:  true,
		}); err != nil {
			b.logger.Warn("mqtt discovery publish failed", "entity", e.suffix, "topic", topic, "error", err)
		} else {
			b.logger.Debug("mqtt discovery published", "entity", e.suffix, "topic", topic)
		}
	}
}

func (b *Bridge) publishAvailability(ctx context.Context, cm *autopaho.ConnectionManager, status string) {
	if _, err := cm.Publish(ctx, &paho.Publish{
		Topic:   b.availabilityTopic(),
		Payload: []byte(status),
		QoS:     1,
		Retain:  true,
	}); err != nil {
		b.logger.Warn("mqtt availability publish failed", "status", status, "error", err)
	} else {
		b.logger.Info("mqtt availability published", "status", status)
	}
}

// --- Commands ---

func (b *Bridge) subscribeCommands(ctx context.Context, cm *autopaho.ConnectionManager) {
	subs := make([]paho.SubscribeOptions, 0, len(commands))
	for _, name := range commands {
		subs = append(subs, paho.SubscribeOptions{Topic: b.commandTopic(name), QoS: 1})
	}
	if _, err := cm.Subscribe(ctx, &paho.Subscribe{Subscriptions: subs}); err != nil {
		b.logger.Warn("mqtt command subscribe failed", "error", err)
		return
	}
	b.logger.Debug("mqtt command topics subscribed", "topics", len(subs))
}

// route maps a command topic to its service name.
func (b *Bridge) route(topic string) (string, bool) {
	for _, name := range commands {
		if topic == b.commandTopic(name) {
			return name, true
		}
	}
	return "", false
}

// handleMessage dispatches a command off the paho receive goroutine; a
// completion makes three remote calls and must not stall keepalives.
func (b *Bridge) handleMessage(ctx context.Context, topic string, payload []byte) {
	name, ok := b.route(topic)
	if !ok {
		b.logger.Debug("mqtt message on unrouted topic", "topic", topic, "payload_size", len(payload))
		return
	}
	b.logger.Log(ctx, config.LevelTrace, "mqtt command received", "topic", topic, "payload", string(payload))
	go b.dispatcher.Dispatch(ctx, name, payload)
}

// --- State ---

// taskAttributes is one task in the attributes document.
type taskAttributes struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Due    string `json:"due,omitempty"`
	Status string `json:"status"`
}

type attributesDoc struct {
	Tasks     []taskAttributes `json:"tasks"`
	UpdatedAt string           `json:"updated_at"`
}

// statePayload renders a view as an entity state.
func statePayload(snap cache.Snapshot) string {
	if snap.View == cache.BinarySensorView {
		if len(snap.Items) > 0 {
			return StateOn
		}
		return StateOff
	}
	return strconv.Itoa(len(snap.Items))
}

// attributesPayload renders a view as the JSON attributes document.
func attributesPayload(snap cache.Snapshot) ([]byte, error) {
	doc := attributesDoc{
		Tasks:     make([]taskAttributes, 0, len(snap.Items)),
		UpdatedAt: snap.UpdatedAt.UTC().Format(time.RFC3339),
	}
	for _, t := range snap.Items {
		doc.Tasks = append(doc.Tasks, taskAttributes{ID: t.ID, Title: t.Title, Due: t.Due, Status: t.Status})
	}
	return json.Marshal(doc)
}

func entityFor(view cache.View) (entity, bool) {
	for _, e := range entities {
		if e.view == view {
			return e, true
		}
	}
	return entity{}, false
}

// onUpdate is the store listener. Updates before the first connection
// are dropped; OnConnectionUp republishes the latest snapshots.
func (b *Bridge) onUpdate(snap cache.Snapshot) {
	b.mu.Lock()
	cm, parent := b.cm, b.ctx
	b.mu.Unlock()
	if cm == nil {
		return
	}
	e, ok := entityFor(snap.View)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(parent, publishTimeout)
	defer cancel()
	b.publishState(ctx, cm, e, snap)
}

func (b *Bridge) publishState(ctx context.Context, cm *autopaho.ConnectionManager, e entity, snap cache.Snapshot) {
	attrs, err := attributesPayload(snap)
	if err != nil {
		b.logger.Error("mqtt marshal attributes", "entity", e.suffix, "error", err)
		return
	}

	msgs := []*paho.Publish{
		{Topic: b.stateTopic(e.suffix), Payload: []byte(statePayload(snap)), Retain: true},
		{Topic: b.attributesTopic(e.suffix), Payload: attrs, Retain: true},
	}
	for _, msg := range msgs {
		if _, err := cm.Publish(ctx, msg); err != nil {
			b.logger.Debug("mqtt state publish failed", "topic", msg.Topic, "error", err)
			return
		}
	}
	b.logger.Debug("mqtt state published", "entity", e.suffix, "view", snap.View, "items", len(snap.Items))
}
