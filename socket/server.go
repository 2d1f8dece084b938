package socket

import (
	"log"

	socketio "github.com/googollee/go-socket.io"
)

// NewSocketServer initializes the Socket.IO server clients subscribe to.
// Rooms are channel names with colons already escaped to double underscores;
// the server only manages membership, all publishing goes through the
// notifier on the request path.
func NewSocketServer() *socketio.Server {
	server := socketio.NewServer(nil)

	server.OnConnect("/", func(c socketio.Conn) error {
		log.Println("Socket connected:", c.ID())
		return nil
	})

	server.OnEvent("/", "join", func(c socketio.Conn, channel string) {
		if channel == "" {
			log.Println("Ignoring join with empty channel from", c.ID())
			return
		}
		c.Join(channel)
		log.Printf("Socket %s joined channel %s", c.ID(), channel)
	})

	server.OnEvent("/", "leave", func(c socketio.Conn, channel string) {
		if channel == "" {
			return
		}
		c.Leave(channel)
		log.Printf("Socket %s left channel %s", c.ID(), channel)
	})

	server.OnError("/", func(c socketio.Conn, err error) {
		log.Println("Socket error:", err)
	})

	server.OnDisconnect("/", func(c socketio.Conn, reason string) {
		log.Println("Socket disconnected:", c.ID(), reason)
	})

	return server
}
