package nextmqtt

// Message is an inbound PUBLISH delivered to the caller's receive
// callback.
type Message struct {
	Topic     string
	Payload   []byte
	QoS       QoS
	Retained  bool
	Duplicate bool
}
