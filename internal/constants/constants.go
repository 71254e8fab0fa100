// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for subscriber channels.
	// A subscriber that falls this far behind is dropped.
	EventChannelBuffer = 100

	// MQTTQueueBuffer is the number of events queued for the MQTT publisher
	MQTTQueueBuffer = 256
)

// WebSocket timing constants
const (
	// WSWriteWait is the time allowed to write a message to the peer
	WSWriteWait = 10 * time.Second

	// WSPongWait is the time allowed to read the next pong from the peer
	WSPongWait = 60 * time.Second

	// WSPingPeriod must be less than WSPongWait
	WSPingPeriod = (WSPongWait * 9) / 10

	// WSMaxMessageSize limits inbound frames; clients only send control messages
	WSMaxMessageSize = 512
)

// Handler constants
const (
	// SSEKeepAlive is the interval between SSE comment lines on idle streams
	SSEKeepAlive = 30 * time.Second

	// JPEGQuality is used when encoding snapshots and the live frame
	JPEGQuality = 85
)

// Persistence constants
const (
	// PersistTimeout bounds a single gateway call from the recognition loop
	PersistTimeout = 5 * time.Second

	// MQTTPublishTimeout bounds a single broker publish
	MQTTPublishTimeout = 10 * time.Second

	// MQTTConnectTimeout bounds the initial broker connection
	MQTTConnectTimeout = 30 * time.Second
)
