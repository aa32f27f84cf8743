// Package main runs a demo WebSocket client for optimization events.
package main

import (
    "bytes"
    "encoding/json"
    "fmt"
    "log"
    "net/http"
    "net/url"
    "os"
    "os/signal"
    "time"

    "github.com/gorilla/websocket"
)

func main() {
    port := os.Getenv("PORT")
    if port == "" {
        port = "8080"
    }
    base := fmt.Sprintf("http://localhost:%s", port)

    // Kick off an async run so events arrive while it executes.
    body := []byte(`{
        "vehicles": [{"id": "v1", "type": "car", "startLocation": {"lat": 52.52, "lng": 13.405}}],
        "jobs": [
            {"id": "j1", "location": {"lat": 52.53, "lng": 13.41}, "duration": 300},
            {"id": "j2", "location": {"lat": 52.50, "lng": 13.39}, "duration": 300}
        ]
    }`)
    req, _ := http.NewRequest(http.MethodPost, base+"/v1/optimize?async=true", bytes.NewReader(body))
    req.Header.Set("Content-Type", "application/json")
    resp, err := http.DefaultClient.Do(req)
    if err != nil {
        log.Fatal(err)
    }
    defer func() { _ = resp.Body.Close() }()
    var accepted struct {
        ID string `json:"id"`
    }
    if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
        log.Fatal(err)
    }
    log.Printf("Optimization ID: %s", accepted.ID)

    u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/optimizations/" + accepted.ID + "/events"}
    c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
    if err != nil {
        log.Fatal("dial:", err)
    }
    defer func() { _ = c.Close() }()

    done := make(chan struct{})
    go func() {
        defer close(done)
        for {
            var evt struct {
                Type string         `json:"type"`
                Data map[string]any `json:"data"`
            }
            if err := c.ReadJSON(&evt); err != nil {
                log.Printf("read: %v", err)
                return
            }
            log.Printf("WS <- %s: %v", evt.Type, evt.Data)
        }
    }()

    interrupt := make(chan os.Signal, 1)
    signal.Notify(interrupt, os.Interrupt)
    select {
    case <-done:
    case <-interrupt:
        _ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
        select {
        case <-done:
        case <-time.After(time.Second):
        }
    }
}
