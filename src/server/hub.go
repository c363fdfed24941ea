package server

import (
	"encoding/json"
	"net/http"

	"product-filter/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// replayRequest asks the hub to send the latest events to a new subscriber.
type replayRequest struct {
	client     *Client
	categories []string
}

func (s *APIServer) startHub() {
	s.hubOnce.Do(func() { go s.handleWebsockets() })
}

// handleWebsockets is the main Hub loop. It owns the clients map.
func (s *APIServer) handleWebsockets() {
	for {
		select {
		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.connections.Add(1)

		case client := <-s.unregister:
			s.drop(client)

		case event := <-s.broadcast:
			s.stateMutex.Lock()
			s.latest[event.Category] = event
			s.stateMutex.Unlock()

			for client := range s.clients {
				if !client.subscribed(event.Category) {
					continue
				}
				select {
				case client.send <- event:
				default:
					// Slow consumer
					s.drop(client)
				}
			}

		case r := <-s.replay:
			if _, ok := s.clients[r.client]; !ok {
				continue
			}
			for _, ev := range s.snapshot(r.categories) {
				select {
				case r.client.send <- ev:
				default:
				}
			}

		case <-s.quit:
			for client := range s.clients {
				s.drop(client)
			}
			return
		}
	}
}

func (s *APIServer) drop(client *Client) {
	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		close(client.send)
		s.connections.Add(-1)
	}
}

func (s *APIServer) connectionCount() int {
	return int(s.connections.Load())
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// Broadcast queues an event for the subscribers of its category. The event
// is dropped when the queue is full.
func (s *APIServer) Broadcast(event *models.MPipelineEvent) {
	if event == nil {
		return
	}
	select {
	case s.broadcast <- event:
	default:
		s.Logger.Warning("Broadcast queue full, dropping %s event for %s", event.Type, event.Category)
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *APIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := newClient(s, conn)
	select {
	case s.register <- client:
	case <-s.quit:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage applies a subscribe command and replays the latest
// event of each subscribed category.
func (s *APIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	switch cmd.Command {
	case "subscribe":
		client.subscribe(cmd.Categories)
	case "unsubscribe":
		client.unsubscribe(cmd.Categories)
		return
	default:
		return
	}

	select {
	case s.replay <- replayRequest{client: client, categories: cmd.Categories}:
	case <-s.quit:
	}
}

// -----------------------------------------------------------------------------

// snapshot returns the latest events of the given categories, or of all
// categories when none are given, each marked INITIAL.
func (s *APIServer) snapshot(categories []string) []*models.MPipelineEvent {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()

	var out []*models.MPipelineEvent
	for cat, ev := range s.latest {
		if len(categories) > 0 && !contains(categories, cat) {
			continue
		}
		initial := *ev
		initial.Type = "INITIAL"
		out = append(out, &initial)
	}
	return out
}
