package api

import (
    "net/http"
    "time"

    "github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// streamEvents upgrades to WebSocket and forwards optimization lifecycle
// events for one run until the client disconnects.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request, optID string) {
    if optID == "" {
        writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
        return
    }
    conn, err := upgrader.Upgrade(w, r, nil)
    if err != nil {
        return
    }
    defer func() { _ = conn.Close() }()

    ch := s.Broker.Subscribe(optID)
    defer s.Broker.Unsubscribe(optID, ch)

    conn.SetReadLimit(1 << 16)
    _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
    conn.SetPongHandler(func(string) error {
        _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
        return nil
    })

    // Drain the read side so control frames are processed and client close
    // is noticed.
    done := make(chan struct{})
    go func() {
        defer close(done)
        for {
            if _, _, err := conn.ReadMessage(); err != nil {
                return
            }
        }
    }()

    ticker := time.NewTicker(20 * time.Second)
    defer ticker.Stop()
    for {
        select {
        case evt, ok := <-ch:
            if !ok {
                return
            }
            _ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
            if err := conn.WriteJSON(evt); err != nil {
                return
            }
        case <-ticker.C:
            _ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
            if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
                return
            }
        case <-done:
            return
        }
    }
}
