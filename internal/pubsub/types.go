package pubsub

import "cloud.google.com/go/pubsub"

type client struct {
	client *pubsub.Client
}

// noop is used when no GCP project is configured.
type noop struct{}

// EventType represents the type of event/message sent via pubsub.
type EventType string

const (
	// EventMatchRecorded is published whenever a match is added to the log.
	EventMatchRecorded EventType = "match-recorded"
)

// MatchRecorded is the payload of EventMatchRecorded.
type MatchRecorded struct {
	MatchID int64 `msgpack:"match_id"`
	EventID int64 `msgpack:"event_id"`
}

// PushRequest is the JSON envelope of a Pub/Sub push delivery.
type PushRequest struct {
	Subscription string `json:"subscription"`
	Message      struct {
		ID   string `json:"messageId"`
		Data string `json:"data"` // base64-encoded message payload
	} `json:"message"`
}
