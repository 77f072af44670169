package protocol

import "errors"

var (
	ErrEmptyTopic = errors.New("protocol: empty topic")
	ErrInvalidQoS = errors.New("protocol: invalid qos")
)
