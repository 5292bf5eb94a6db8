// Package mqtt presents the cached task views to Home Assistant through
// MQTT discovery and accepts task commands on MQTT topics.
//
// The bridge uses Eclipse Paho v2's [autopaho] package for connection
// management with automatic reconnection. On every (re-)connect it
// publishes retained discovery config payloads for the tasks sensor and
// the due-tasks binary sensor, a birth message ("online") to the
// availability topic, the latest cached states, and subscribes to the
// command topics. A will message flips availability to "offline" on
// unexpected disconnects.
//
// State is pushed from cache update notifications rather than on a
// timer, so entities change only when a refresh actually lands.
package mqtt
