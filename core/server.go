package mal

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Server exposes sessions over a unix socket. A single actor goroutine owns
// every session, so environments are never touched concurrently; each
// session has its own global environment.
type Server struct {
	sessions map[string]*Session
	opts     SessionOptions
	requests chan serverRequest
	listener net.Listener
	done     chan struct{}
	stopOnce sync.Once
}

type serverRequest struct {
	msg      map[string]any
	response chan map[string]any
}

// NewServer creates the default session and restores every session found in
// the store.
func NewServer(opts SessionOptions) (*Server, error) {
	s := &Server{
		sessions: make(map[string]*Session),
		opts:     opts,
		requests: make(chan serverRequest, 64),
		done:     make(chan struct{}),
	}
	ids := []string{DefaultSessionID}
	if opts.Store != nil {
		stored, err := opts.Store.Sessions()
		if err != nil {
			return nil, fmt.Errorf("list stored sessions: %w", err)
		}
		for _, id := range stored {
			if id != DefaultSessionID {
				ids = append(ids, id)
			}
		}
	}
	for _, id := range ids {
		sess, err := NewSession(id, opts)
		if err != nil {
			return nil, err
		}
		s.sessions[id] = sess
	}
	if len(ids) > 1 {
		log.Printf("restored %d stored sessions", len(ids)-1)
	}
	return s, nil
}

// Listen binds the unix socket, removing a stale one first.
func (s *Server) Listen(sockPath string) error {
	os.Remove(sockPath)
	l, err := net.Listen("unix", sockPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = l
	return nil
}

// Run starts the actor and accepts connections. Blocks until Shutdown.
func (s *Server) Run() {
	go s.actorLoop()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConnection(conn)
	}
}

// Shutdown stops accepting connections and stops the actor.
func (s *Server) Shutdown() {
	s.stopOnce.Do(func() {
		if s.listener != nil {
			s.listener.Close()
		}
		close(s.done)
	})
}

// actorLoop is the single goroutine that owns session state.
func (s *Server) actorLoop() {
	for {
		select {
		case req := <-s.requests:
			req.response <- s.handleRequest(req.msg)
		case <-s.done:
			return
		}
	}
}

// sendToActor hands a request to the actor and waits for its response.
func (s *Server) sendToActor(msg map[string]any) (map[string]any, error) {
	resp := make(chan map[string]any, 1)
	select {
	case s.requests <- serverRequest{msg: msg, response: resp}:
	case <-s.done:
		return nil, errors.New("server shutting down")
	}
	select {
	case r := <-resp:
		return r, nil
	case <-s.done:
		return nil, errors.New("server shutting down")
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	for {
		msg, err := ReadMsg(conn)
		if err != nil {
			if err != io.EOF {
				log.Printf("read client message: %v", err)
			}
			return
		}

		resp, err := s.sendToActor(msg)
		if err != nil {
			return
		}
		if err := WriteMsg(conn, resp); err != nil {
			log.Printf("write client response: %v", err)
			return
		}
	}
}

func (s *Server) handleRequest(msg map[string]any) map[string]any {
	id, _ := msg["id"].(string)

	op, _ := msg["op"].(string)
	switch op {
	case "":
		return s.manual(id)
	case "open":
		return s.handleOpen(id)
	case "eval":
		return s.handleEval(id, msg)
	case "traces":
		return s.handleTraces(id, msg)
	case "globals":
		return s.handleGlobals(id, msg)
	case "reset":
		return s.handleReset(id, msg)
	case "close":
		return s.handleClose(id, msg)
	case "sessions":
		return s.handleSessions(id)
	default:
		return errorResponse(id, fmt.Sprintf("unknown op: %s", op))
	}
}

func (s *Server) manual(id string) map[string]any {
	builtins := make([]any, 0, len(BuiltinNames()))
	for _, name := range BuiltinNames() {
		builtins = append(builtins, name)
	}
	return map[string]any{
		"id": id,
		"ok": true,
		"value": map[string]any{
			"name":    "mal-server",
			"version": "1.0.0",
			"ops": map[string]any{
				"open":     "Create a session. Returns its id.",
				"eval":     "Evaluate source text. Params: expr (string), session (string, optional)",
				"traces":   "Recent evaluations. Params: session (optional), n (int, optional), persisted (bool, optional)",
				"globals":  "User-defined global names. Params: session (optional)",
				"reset":    "Drop all bindings, traces and stored definitions. Params: session (optional)",
				"close":    "Reset and remove a session. Params: session (string)",
				"sessions": "List open session ids.",
			},
			"builtins": builtins,
			"forms":    []any{"def!", "let*", "do", "if", "fn*"},
		},
	}
}

// session resolves the "session" field, defaulting to the default session.
func (s *Server) session(msg map[string]any) (*Session, error) {
	sid, _ := msg["session"].(string)
	if sid == "" {
		sid = DefaultSessionID
	}
	sess, ok := s.sessions[sid]
	if !ok {
		return nil, fmt.Errorf("unknown session: %s", sid)
	}
	return sess, nil
}

func (s *Server) handleOpen(id string) map[string]any {
	sid := uuid.NewString()
	sess, err := NewSession(sid, s.opts)
	if err != nil {
		return errorResponse(id, err.Error())
	}
	s.sessions[sid] = sess
	log.Printf("session %s opened", sid)
	return map[string]any{"id": id, "ok": true, "value": sid}
}

func (s *Server) handleEval(id string, msg map[string]any) map[string]any {
	expr, ok := msg["expr"].(string)
	if !ok {
		return errorResponse(id, "eval: missing 'expr' string")
	}
	sess, err := s.session(msg)
	if err != nil {
		return errorResponse(id, err.Error())
	}
	val, err := sess.Eval(expr)
	if err != nil {
		resp := errorResponse(id, err.Error())
		if kind := KindOf(err); kind != KindNone {
			resp["kind"] = kind.String()
		}
		return resp
	}
	return map[string]any{"id": id, "ok": true, "value": val.String()}
}

func (s *Server) handleTraces(id string, msg map[string]any) map[string]any {
	sess, err := s.session(msg)
	if err != nil {
		return errorResponse(id, err.Error())
	}
	n := 0
	if raw, ok := msg["n"]; ok {
		f, ok := raw.(float64)
		if !ok {
			return errorResponse(id, "traces: 'n' must be a number")
		}
		n = int(f)
	}

	if persisted, _ := msg["persisted"].(bool); persisted {
		if s.opts.Store == nil {
			return errorResponse(id, "traces: no store configured")
		}
		recs, err := s.opts.Store.Traces(sess.ID, n)
		if err != nil {
			return errorResponse(id, err.Error())
		}
		out := make([]any, len(recs))
		for i, r := range recs {
			out[i] = r
		}
		return map[string]any{"id": id, "ok": true, "value": out}
	}

	traces := sess.Traces(n)
	out := make([]any, len(traces))
	for i := range traces {
		out[i] = traces[i].ToGo()
	}
	return map[string]any{"id": id, "ok": true, "value": out}
}

func (s *Server) handleGlobals(id string, msg map[string]any) map[string]any {
	sess, err := s.session(msg)
	if err != nil {
		return errorResponse(id, err.Error())
	}
	names := sess.Globals()
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return map[string]any{"id": id, "ok": true, "value": out}
}

func (s *Server) handleReset(id string, msg map[string]any) map[string]any {
	sess, err := s.session(msg)
	if err != nil {
		return errorResponse(id, err.Error())
	}
	if err := sess.Reset(); err != nil {
		return errorResponse(id, err.Error())
	}
	return map[string]any{"id": id, "ok": true, "value": sess.ID}
}

func (s *Server) handleClose(id string, msg map[string]any) map[string]any {
	sid, _ := msg["session"].(string)
	if sid == "" {
		return errorResponse(id, "close: missing 'session' string")
	}
	if sid == DefaultSessionID {
		return errorResponse(id, "close: the default session cannot be closed")
	}
	sess, ok := s.sessions[sid]
	if !ok {
		return errorResponse(id, fmt.Sprintf("unknown session: %s", sid))
	}
	if err := sess.Reset(); err != nil {
		return errorResponse(id, err.Error())
	}
	delete(s.sessions, sid)
	log.Printf("session %s closed", sid)
	return map[string]any{"id": id, "ok": true, "value": sid}
}

func (s *Server) handleSessions(id string) map[string]any {
	ids := make([]string, 0, len(s.sessions))
	for sid := range s.sessions {
		ids = append(ids, sid)
	}
	sort.Strings(ids)
	out := make([]any, len(ids))
	for i, sid := range ids {
		out[i] = sid
	}
	return map[string]any{"id": id, "ok": true, "value": out}
}

func errorResponse(id, errMsg string) map[string]any {
	return map[string]any{"id": id, "ok": false, "error": errMsg}
}
