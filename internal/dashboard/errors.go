package dashboard

import "errors"

var (
	// ErrHandshake is returned when the server does not complete the Engine.IO
	// open or the Socket.IO namespace connect.
	ErrHandshake = errors.New("socket.io handshake failed")

	// ErrClosed is returned by Emit after the connection has been closed
	// by either side.
	ErrClosed = errors.New("dashboard connection closed")
)
