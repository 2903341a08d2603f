package http

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"
	"github.com/samirrijal/picplace/internal/pkg/logging"
	"github.com/samirrijal/picplace/internal/pkg/metrics"
)

const (
	channelFixes  = "fixes"
	channelNearby = "nearby"
)

// wsMessage is sent from client to subscribe/unsubscribe to feeds.
type wsMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe"
	Channel string `json:"channel"` // "fixes" | "nearby" (default: fixes)
}

// wsEvent wraps every payload pushed to the client.
type wsEvent struct {
	Channel string `json:"channel"`
	Data    any    `json:"data"`
}

// WebSocketHandler returns a handler that streams accepted fixes and, when
// NATS is available, nearby notifications to connected clients.
// Clients send JSON: {"action":"subscribe","channel":"nearby"}
// Every connection starts subscribed to "fixes".
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		logger := logging.Component("websocket").With("remote", c.RemoteAddr().String())
		logger.Info("ws client connected")

		var mu sync.Mutex
		writeJSON := func(v any) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		subs := make(map[string]func()) // channel -> unsubscribe

		subscribe := func(channel string) error {
			switch channel {
			case channelFixes:
				subCtx, subCancel := context.WithCancel(ctx)
				fixes := deps.Control.Tracking().Watch(subCtx)
				go func() {
					for fix := range fixes {
						if err := writeJSON(wsEvent{Channel: channelFixes, Data: fix}); err != nil {
							subCancel()
						}
					}
				}()
				subs[channel] = subCancel
				return nil
			case channelNearby:
				if deps.NATS == nil || deps.NearbySubject == "" {
					return errNearbyUnavailable
				}
				s, err := deps.NATS.Subscribe(deps.NearbySubject, func(msg *nats.Msg) {
					_ = writeJSON(wsEvent{Channel: channelNearby, Data: json.RawMessage(msg.Data)})
				})
				if err != nil {
					return err
				}
				subs[channel] = func() { _ = s.Unsubscribe() }
				return nil
			default:
				return errUnknownChannel
			}
		}

		if err := subscribe(channelFixes); err != nil {
			logger.Error("ws default subscribe error", "error", err)
			return
		}

		// Keep-alive ping
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}
			channel := m.Channel
			if channel == "" {
				channel = channelFixes
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[channel]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "channel": channel})
					continue
				}
				if err := subscribe(channel); err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				_ = writeJSON(map[string]string{"status": "subscribed", "channel": channel})

			case "unsubscribe":
				if unsub, exists := subs[channel]; exists {
					unsub()
					delete(subs, channel)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "channel": channel})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + channel})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		for _, unsub := range subs {
			unsub()
		}
		logger.Info("ws client disconnected")
	}
}
