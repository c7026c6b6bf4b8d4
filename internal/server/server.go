// Package server exposes the agent loop over a WebSocket transport so
// editor frontends can run tasks and answer askUser prompts.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"codescout/internal/agent"
	"codescout/internal/logging"
	"codescout/internal/types"
)

// Inbound message types.
const (
	msgTask   = "task"
	msgAnswer = "answer"
)

// Outbound message types.
const (
	msgUpdate = "update"
	msgPrompt = "prompt"
	msgError  = "error"
)

// message is the single envelope for both directions of the protocol.
type message struct {
	Type string `json:"type"`

	// task
	Goal  string   `json:"goal,omitempty"`
	Tools []string `json:"tools,omitempty"`

	// update
	TaskID  string `json:"taskId,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Content string `json:"content,omitempty"`

	// prompt / answer
	PromptID string `json:"promptId,omitempty"`
	Question string `json:"question,omitempty"`
	Answer   string `json:"answer,omitempty"`

	// error
	Error string `json:"error,omitempty"`
}

// Server serves the agent loop over /ws.
type Server struct {
	loop     *agent.Loop
	upgrader websocket.Upgrader
}

// New creates a Server around loop.
func New(loop *agent.Loop) *Server {
	return &Server{
		loop: loop,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Local editor transport; the frontend sets no Origin header.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Get("/ws", s.handleWS)
	return r
}

// ListenAndServe blocks serving on addr until the listener fails or ctx
// is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Router()}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	logging.Server("listening on %s", addr)
	err := srv.ListenAndServe()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// conn wraps a websocket connection with a write lock; gorilla allows only
// one concurrent writer.
type conn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *conn) send(m message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.WriteJSON(m); err != nil {
		logging.ServerDebug("write failed: %v", err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Get(logging.CategoryServer).Warnf("upgrade failed: %v", err)
		return
	}
	c := &conn{ws: ws}
	logging.Server("client connected from %s", r.RemoteAddr)

	// Each connection owns its correlator: answers from this client resolve
	// only prompts this client was asked, and closing the connection cancels
	// only this client's outstanding prompts.
	loop := s.loop.WithCorrelator(nil)

	ctx, cancel := context.WithCancel(r.Context())
	var tasks sync.WaitGroup
	defer func() {
		cancel()
		// This connection's prompts can never be answered once the transport
		// is gone; fail their tasks now rather than at the timeout.
		loop.Correlator().CancelAll()
		tasks.Wait()
		ws.Close()
		logging.Server("client disconnected")
	}()

	for {
		var m message
		if err := ws.ReadJSON(&m); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.ServerDebug("read failed: %v", err)
			}
			return
		}

		switch m.Type {
		case msgTask:
			if m.Goal == "" {
				c.send(message{Type: msgError, Error: "task requires a goal"})
				continue
			}
			tasks.Add(1)
			go func(goal string, toolNames []string) {
				defer tasks.Done()
				runTask(ctx, loop, c, goal, toolNames)
			}(m.Goal, m.Tools)

		case msgAnswer:
			if m.PromptID == "" {
				c.send(message{Type: msgError, Error: "answer requires a promptId"})
				continue
			}
			loop.Correlator().Resolve(m.PromptID, m.Answer)

		default:
			c.send(message{Type: msgError, Error: "unknown message type: " + m.Type})
		}
	}
}

func runTask(ctx context.Context, loop *agent.Loop, c *conn, goal string, toolNames []string) {
	onUpdate := func(u types.AgentUpdate) {
		c.send(message{
			Type:    msgUpdate,
			TaskID:  u.TaskID,
			Kind:    string(u.Kind),
			Content: u.Content,
		})
	}
	onPrompt := func(taskID, promptID, question string) {
		c.send(message{
			Type:     msgPrompt,
			TaskID:   taskID,
			PromptID: promptID,
			Question: question,
		})
	}
	loop.RunTask(ctx, goal, toolNames, onUpdate, onPrompt)
}
