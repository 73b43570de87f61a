package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	wsReadLimit  = 4096
	wsWriteWait  = 10 * time.Second
	wsIdleExpiry = 10 * time.Minute
)

// handleWebSocket answers each slider message with a prediction. Clients
// send {"features": {...}} and get a PredictResponse or {"error": ...}
// back; a bad message does not close the socket.
func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	conn.SetReadLimit(wsReadLimit)

	d.clientsMu.Lock()
	d.clients[conn] = true
	d.clientsMu.Unlock()
	if d.metrics != nil {
		d.metrics.WSConnectionsAdd(1)
	}

	log.Debug().Str("remote", r.RemoteAddr).Msg("WebSocket client connected")

	defer func() {
		d.clientsMu.Lock()
		delete(d.clients, conn)
		d.clientsMu.Unlock()
		conn.Close()
		if d.metrics != nil {
			d.metrics.WSConnectionsAdd(-1)
		}
		log.Debug().Str("remote", r.RemoteAddr).Msg("WebSocket client disconnected")
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(wsIdleExpiry))

		var req PredictRequest
		if err := conn.ReadJSON(&req); err != nil {
			if isDecodeError(err) {
				if !d.writeSocket(conn, errorResponse{Error: "invalid message: " + err.Error()}) {
					return
				}
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("WebSocket read failed")
			}
			return
		}

		resp, err := d.predict(r.Context(), req.Features, sourceSocket)
		var out any = resp
		if err != nil {
			_, body := predictError(err)
			out = body
		}
		if !d.writeSocket(conn, out) {
			return
		}
	}
}

func (d *Dashboard) writeSocket(conn *websocket.Conn, v any) bool {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(v); err != nil {
		log.Warn().Err(err).Msg("Failed to send WebSocket message")
		return false
	}
	return true
}

// isDecodeError separates malformed messages, after which the connection
// is still usable, from transport failures.
func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
