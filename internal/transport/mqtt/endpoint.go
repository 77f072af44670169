package mqtt

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

const defaultPort = "1883"

var ErrInvalidConnect = errors.New("mqtt: invalid connect string")

// Endpoint is a parsed broker connect string.
type Endpoint struct {
	Broker   string
	Username string
	Password string
}

func (e Endpoint) HasCredentials() bool {
	return e.Username != ""
}

// String hides the password.
func (e Endpoint) String() string {
	if !e.HasCredentials() {
		return e.Broker
	}
	return fmt.Sprintf("%s (user %s)", e.Broker, e.Username)
}

// ParseEndpoint reads tcp://[user[:password]@]host[:port]. The mqtt
// scheme is accepted as an alias for tcp.
func ParseEndpoint(raw string) (Endpoint, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %v", ErrInvalidConnect, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "tcp", "mqtt":
	default:
		return Endpoint{}, fmt.Errorf("%w: scheme %q", ErrInvalidConnect, u.Scheme)
	}
	if u.Path != "" && u.Path != "/" {
		return Endpoint{}, fmt.Errorf("%w: unexpected path %q", ErrInvalidConnect, u.Path)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return Endpoint{}, fmt.Errorf("%w: query and fragment are not allowed", ErrInvalidConnect)
	}
	host := u.Hostname()
	if host == "" {
		return Endpoint{}, fmt.Errorf("%w: missing host", ErrInvalidConnect)
	}
	port := u.Port()
	if port == "" {
		port = defaultPort
	}

	ep := Endpoint{Broker: "tcp://" + net.JoinHostPort(host, port)}
	if u.User != nil {
		ep.Username = u.User.Username()
		ep.Password, _ = u.User.Password()
		if ep.Username == "" {
			return Endpoint{}, fmt.Errorf("%w: empty username", ErrInvalidConnect)
		}
	}
	return ep, nil
}
