package protocol

import (
	"fmt"
	"strings"
)

// QoS is the delivery-quality hint carried by a broker message.
type QoS byte

const (
	AtMostOnce  QoS = 0
	AtLeastOnce QoS = 1
	ExactlyOnce QoS = 2
)

func (q QoS) String() string {
	switch q {
	case AtMostOnce:
		return "at-most-once"
	case AtLeastOnce:
		return "at-least-once"
	case ExactlyOnce:
		return "exactly-once"
	default:
		return fmt.Sprintf("qos(%d)", byte(q))
	}
}

// Message is one publish-subscribe unit. Construct with NewMessage so the
// topic invariant holds.
type Message struct {
	topic   string
	payload []byte
	qos     QoS
}

// NewMessage copies payload and rejects an empty topic or unknown QoS.
func NewMessage(topic string, payload []byte, qos QoS) (Message, error) {
	if strings.TrimSpace(topic) == "" {
		return Message{}, ErrEmptyTopic
	}
	if qos > ExactlyOnce {
		return Message{}, fmt.Errorf("%w: %d", ErrInvalidQoS, qos)
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	return Message{topic: topic, payload: buf, qos: qos}, nil
}

func (m Message) Topic() string {
	return m.topic
}

// Payload returns a copy of the message body.
func (m Message) Payload() []byte {
	out := make([]byte, len(m.payload))
	copy(out, m.payload)
	return out
}

func (m Message) QoS() QoS {
	return m.qos
}
