// Package service hosts the ICL compiler behind an HTTP and WebSocket
// surface: a plain net/http.ServeMux for request/response operations,
// plus a Hub that
// pushes explain-watch events to subscribed gorilla/websocket clients
// as a source file is recompiled.
package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/icl-lang/iclc/core/compiler"
	"github.com/icl-lang/iclc/core/lower"
	"github.com/icl-lang/iclc/core/registry"
	"github.com/icl-lang/iclc/internal/logging"
)

// Config configures Start.
type Config struct {
	Port     int
	Registry *registry.Registry
}

// Start registers routes and blocks serving HTTP on cfg.Port.
func Start(cfg Config) error {
	hub := NewHub()
	go hub.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/compile", handleCompile(cfg.Registry))
	mux.HandleFunc("/check", handleCheck)
	mux.HandleFunc("/explain", handleExplain(cfg.Registry))
	mux.HandleFunc("/explain/watch", handleExplainWatch(hub))

	addr := fmt.Sprintf(":%d", cfg.Port)
	logging.ServerStartup("icl_service", "http", cfg.Port)
	return http.ListenAndServe(addr, logging.Middleware(mux))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// compileRequest is the JSON body every request/response handler
// accepts: a source payload plus the subset of compiler.Options that
// makes sense over the wire.
type compileRequest struct {
	File      string   `json:"file"`
	Source    string   `json:"source"`
	Targets   []string `json:"targets"`
	Optimize  bool     `json:"optimize"`
	AliasMode string   `json:"alias_mode"`
}

func (req compileRequest) options() compiler.Options {
	mode := compiler.AliasOff
	switch req.AliasMode {
	case "core":
		mode = compiler.AliasCore
	case "extended":
		mode = compiler.AliasExtended
	}
	return compiler.Options{Targets: req.Targets, Optimize: req.Optimize, AliasMode: mode}
}

func handleCompile(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req compileRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		outcomes, err := compiler.Compile(requestFile(req.File), req.Source, req.options(), reg, nil)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, encodeOutcomes(outcomes))
	}
}

// outcomeDoc mirrors compiler.TargetOutcome as a JSON-friendly record;
// TargetOutcome.Diagnostics is a plain error interface, which encoding/json
// would otherwise render as an empty object for error types with no
// exported fields.
type outcomeDoc struct {
	Target      string            `json:"target"`
	Files       map[string]string `json:"files,omitempty"`
	PrimaryPath string            `json:"primary_path,omitempty"`
	Error       string            `json:"error,omitempty"`
}

func encodeOutcomes(outcomes []compiler.TargetOutcome) []outcomeDoc {
	docs := make([]outcomeDoc, len(outcomes))
	for i, o := range outcomes {
		doc := outcomeDoc{Target: o.Target}
		if o.Diagnostics != nil {
			doc.Error = o.Diagnostics.Error()
		} else if o.Bundle != nil {
			doc.PrimaryPath = o.Bundle.PrimaryPath
			doc.Files = make(map[string]string, len(o.Bundle.Files))
			for path, data := range o.Bundle.Files {
				doc.Files[path] = string(data)
			}
		}
		docs[i] = doc
	}
	return docs
}

func handleCheck(w http.ResponseWriter, r *http.Request) {
	var req compileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := compiler.Check(requestFile(req.File), req.Source, req.options(), nil); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleExplain(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req compileRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		var target string
		if len(req.Targets) > 0 {
			target = req.Targets[0]
		}
		var caps *lower.Capabilities
		if target != "" {
			p, ok := reg.Get(target)
			if !ok {
				writeError(w, http.StatusBadRequest, fmt.Errorf("CLI002: unknown target %q", target))
				return
			}
			c := p.Manifest().Capabilities()
			caps = &c
		}
		result, err := compiler.Explain(requestFile(req.File), req.Source, req.options(), nil, target, caps)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		out, err := compiler.EncodeExplain(result)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out)
	}
}

func requestFile(name string) string {
	if name == "" {
		return "<request>"
	}
	return name
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// ---- WebSocket explain-watch channel ----

// WatchEvent is one push notification a `/explain/watch` client
// receives when a watched compile job finishes.
type WatchEvent struct {
	JobID     string          `json:"job_id"`
	Type      string          `json:"type"` // "result" or "error"
	Payload   json.RawMessage `json:"payload,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// Client is one subscribed WebSocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans WatchEvents out to every connected client through a single
// register/unregister/broadcast loop.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
}

// NewHub creates an empty Hub; callers must run Hub.Run in a goroutine.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes registrations and broadcasts until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			logging.WebSocketEvent("client_connected", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			logging.WebSocketEvent("client_disconnected", len(h.clients))

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
		}
	}
}

// Broadcast pushes ev to every connected client.
func (h *Hub) Broadcast(ev WatchEvent) {
	if ev.Timestamp == "" {
		ev.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		logging.Error("failed to marshal watch event", "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		logging.Warn("watch broadcast channel full, dropping event")
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     sameOrigin,
}

// sameOrigin rejects cross-origin upgrade requests unless no Origin
// header was sent at all (a non-browser client such as a CLI or test
// harness).
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

func handleExplainWatch(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Error("websocket upgrade failed", "error", err)
			return
		}
		client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256)}
		hub.register <- client
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error("websocket unexpected close", "error", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// NewJobID returns a fresh job identifier for a watched compile run.
func NewJobID() string {
	return uuid.NewString()
}
