package ports

// Transport is the client-facing connection layer the sync core drives.
// Send must not block beyond a single non-blocking enqueue: a closed or
// saturated connection is reported as an error immediately.
type Transport interface {
	Send(connID string, msg []byte) error
	Close(connID string)

	OnConnect(fn func(connID string))
	OnMessage(fn func(connID string, data []byte))
	OnDisconnect(fn func(connID string))
}
