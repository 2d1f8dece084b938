package services

import (
	"context"

	socketio "github.com/googollee/go-socket.io"
)

// Publisher is the fire-and-forget fanout collaborator. Delivery is
// best-effort: callers log a failed publish and carry on, they never fail the
// request over it. Ordering within one channel follows publish order because
// every publish happens on the single writer path that also mutates state.
type Publisher interface {
	Publish(ctx context.Context, channel, event string, payload interface{}) error
}

// SocketNotifier publishes by broadcasting to the socket.io room named after
// the channel. Clients subscribe by joining the room.
type SocketNotifier struct {
	Server *socketio.Server
}

func (n *SocketNotifier) Publish(_ context.Context, channel, event string, payload interface{}) error {
	n.Server.BroadcastToRoom("/", channel, event, payload)
	return nil
}
