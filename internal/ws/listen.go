package ws

import (
	"context"
	"errors"

	"github.com/gorilla/websocket"
)

// Listen dials a hub at url and calls fn for every event until ctx is done
// or the server closes the connection.
func Listen(ctx context.Context, url string, fn func(WSEvent)) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		var ev WSEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return nil
			}
			return err
		}
		fn(ev)
	}
}
