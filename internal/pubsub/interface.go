package pubsub

// PubSubClient publishes domain events and decodes their payloads.
type PubSubClient interface {
	SendMessage(topic EventType, data any) error
	ProcessMessage(data []byte, returnValue any) error
}
