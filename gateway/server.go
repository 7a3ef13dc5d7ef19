// Package gateway exposes the diagnostic operations over HTTP and streams
// every outcome to WebSocket clients.
package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/gavinwade12/udsgateway/explain"
	"github.com/gavinwade12/udsgateway/protocols/uds"
)

// DefaultListenAddr is the address the gateway listens on when none is configured.
const DefaultListenAddr = ":5000"

// Operations are the diagnostic operations the gateway serves. *uds.Client
// implements it.
type Operations interface {
	ReadMemory(ctx context.Context, address string, length int) uds.Outcome
	WriteMemory(ctx context.Context, address, value string) uds.Outcome
	ReadDataByIdentifier(ctx context.Context, dataID string) uds.Outcome
	ECUReset(ctx context.Context) uds.Outcome
}

// Config configures a Server.
type Config struct {
	ListenAddr string
}

// Server is the HTTP front end for the gateway.
type Server struct {
	cfg       Config
	ops       Operations
	explainer explain.Explainer

	clients   map[*wsClient]struct{}
	clientsMu sync.RWMutex
	upgrader  websocket.Upgrader
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Event is the JSON structure sent to all WebSocket clients.
type Event struct {
	Operation string      `json:"operation"`
	Outcome   uds.Outcome `json:"outcome"`
	Stamp     int64       `json:"stamp"` // Unix ms
}

// New creates a new Server. The explainer may be nil, in which case
// explanations are reported as unavailable.
func New(cfg Config, ops Operations, e explain.Explainer) *Server {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}

	return &Server{
		cfg:       cfg,
		ops:       ops,
		explainer: e,
		clients:   make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the gateway's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/read_memory", s.handleReadMemory)
	mux.HandleFunc("/api/write_memory", s.handleWriteMemory)
	mux.HandleFunc("/api/read_data_id", s.handleReadDataID)
	mux.HandleFunc("/api/ecu_reset", s.handleECUReset)
	mux.HandleFunc("/api/explain", s.handleExplain)

	return mux
}

// Run serves HTTP until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
		s.closeClients()
	}()

	log.Printf("[gateway] listening on %s", s.cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serving HTTP")
	}
	return nil
}

type readMemoryRequest struct {
	Address string      `json:"address"`
	Length  json.Number `json:"length"`
}

type writeMemoryRequest struct {
	Address string `json:"address"`
	Value   string `json:"value"`
}

type readDataIDRequest struct {
	DataID string `json:"data_id"`
}

type explainRequest struct {
	RawResponse string `json:"raw_response"`
	Context     string `json:"context"`
}

type explainResponse struct {
	Explanation string `json:"explanation"`
}

func (s *Server) handleReadMemory(w http.ResponseWriter, r *http.Request) {
	var req readMemoryRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	length, err := req.Length.Int64()
	if err != nil {
		s.reply(w, "read_memory", uds.Reject(uds.ServiceReadMemory, uds.NRCIncorrectMessageLength, "invalid length "+req.Length.String()))
		return
	}
	if length < 0 || length > 0xFFFF {
		// out of range either way; keeps the int conversion safe
		length = 0
	}

	s.reply(w, "read_memory", s.ops.ReadMemory(r.Context(), req.Address, int(length)))
}

func (s *Server) handleWriteMemory(w http.ResponseWriter, r *http.Request) {
	var req writeMemoryRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	s.reply(w, "write_memory", s.ops.WriteMemory(r.Context(), req.Address, req.Value))
}

func (s *Server) handleReadDataID(w http.ResponseWriter, r *http.Request) {
	var req readDataIDRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	s.reply(w, "read_data_id", s.ops.ReadDataByIdentifier(r.Context(), req.DataID))
}

func (s *Server) handleECUReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.reply(w, "ecu_reset", s.ops.ECUReset(r.Context()))
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	text := explain.Describe(r.Context(), s.explainer, req.RawResponse, req.Context)
	writeJSON(w, explainResponse{Explanation: text})
}

func decodeRequest(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) reply(w http.ResponseWriter, op string, out uds.Outcome) {
	log.Printf("[api] %s: %s | raw: %s", op, out.Message, out.RawHex)
	writeJSON(w, out)
	s.broadcast(Event{Operation: op, Outcome: out, Stamp: time.Now().UnixMilli()})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] writing response: %v", err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade error: %v", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 64),
	}

	s.clientsMu.Lock()
	s.clients[client] = struct{}{}
	n := len(s.clients)
	s.clientsMu.Unlock()
	log.Printf("[ws] client connected (%d total)", n)

	// Writer goroutine
	go func() {
		defer conn.Close()
		for msg := range client.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	// Reader goroutine (keep-alive and disconnect detection)
	go func() {
		defer func() {
			s.clientsMu.Lock()
			delete(s.clients, client)
			n := len(s.clients)
			s.clientsMu.Unlock()
			close(client.send)
			log.Printf("[ws] client disconnected (%d total)", n)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (s *Server) broadcast(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for client := range s.clients {
		select {
		case client.send <- data:
		default:
			// client too slow, skip
		}
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

func (s *Server) closeClients() {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for client := range s.clients {
		client.conn.Close()
	}
}
