package dashboard

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Engine.IO v4 packet types.
const (
	eioOpen    = '0'
	eioClose   = '1'
	eioPing    = '2'
	eioPong    = '3'
	eioMessage = '4'
)

// Socket.IO v5 packet types, carried inside Engine.IO message packets.
const (
	sioConnect      = '0'
	sioDisconnect   = '1'
	sioEvent        = '2'
	sioConnectError = '4'
)

// openPayload is the body of the Engine.IO open packet.
type openPayload struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"` // milliseconds
	PingTimeout  int    `json:"pingTimeout"`  // milliseconds
}

// websocketURL maps a dashboard base URL (http, https, ws or wss) to the
// Engine.IO websocket endpoint.
func websocketURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid dashboard URL %q: %w", raw, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid dashboard URL %q: unsupported scheme %q", raw, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid dashboard URL %q: missing host", raw)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/socket.io/"
	} else if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// nsPrefix returns the namespace segment of a Socket.IO packet; the default
// namespace is implicit.
func nsPrefix(ns string) string {
	if ns == "" || ns == "/" {
		return ""
	}
	return ns + ","
}

// encodeEvent builds `42<ns>["event",payload]`.
func encodeEvent(ns, event string, payload any) ([]byte, error) {
	body, err := json.Marshal([]any{event, payload})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", event, err)
	}
	frame := make([]byte, 0, len(body)+len(ns)+3)
	frame = append(frame, eioMessage, sioEvent)
	frame = append(frame, nsPrefix(ns)...)
	return append(frame, body...), nil
}

// connectFrame builds the namespace connect packet.
func connectFrame(ns string) []byte {
	return append([]byte{eioMessage, sioConnect}, nsPrefix(ns)...)
}

// disconnectFrame builds the namespace disconnect packet.
func disconnectFrame(ns string) []byte {
	return append([]byte{eioMessage, sioDisconnect}, nsPrefix(ns)...)
}
