package mal

import (
	"net"
	"testing"
)

func newTestServer(t *testing.T, opts SessionOptions) *Server {
	t.Helper()
	s, err := NewServer(opts)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func mustOK(t *testing.T, resp map[string]any) any {
	t.Helper()
	if ok, _ := resp["ok"].(bool); !ok {
		t.Fatalf("expected ok response, got %v", resp)
	}
	return resp["value"]
}

func mustFail(t *testing.T, resp map[string]any) string {
	t.Helper()
	if ok, _ := resp["ok"].(bool); ok {
		t.Fatalf("expected error response, got %v", resp)
	}
	msg, _ := resp["error"].(string)
	return msg
}

func TestServerManual(t *testing.T) {
	s := newTestServer(t, SessionOptions{})
	v := mustOK(t, s.handleRequest(map[string]any{"id": "m1"}))
	manual, ok := v.(map[string]any)
	if !ok || manual["name"] != "mal-server" {
		t.Fatalf("unexpected manual %v", v)
	}
	if builtins, _ := manual["builtins"].([]any); len(builtins) != len(BuiltinNames()) {
		t.Fatalf("manual should list every builtin, got %v", manual["builtins"])
	}
}

func TestServerEvalDefaultSession(t *testing.T) {
	s := newTestServer(t, SessionOptions{})
	mustOK(t, s.handleRequest(map[string]any{"op": "eval", "expr": "(def! a 41)"}))
	resp := s.handleRequest(map[string]any{"id": "e1", "op": "eval", "expr": "(+ a 1)"})
	if v := mustOK(t, resp); v != "42" {
		t.Fatalf("expected 42, got %v", v)
	}
	if resp["id"] != "e1" {
		t.Fatalf("id not echoed: %v", resp)
	}
}

func TestServerEvalError(t *testing.T) {
	s := newTestServer(t, SessionOptions{})
	resp := s.handleRequest(map[string]any{"op": "eval", "expr": "(/ 1 0)"})
	mustFail(t, resp)
	if resp["kind"] != "DivisionByZero" {
		t.Fatalf("expected DivisionByZero kind, got %v", resp["kind"])
	}

	resp = s.handleRequest(map[string]any{"op": "eval"})
	if msg := mustFail(t, resp); msg == "" {
		t.Fatal("expected missing expr error")
	}
}

func TestServerSessionsAreIsolated(t *testing.T) {
	s := newTestServer(t, SessionOptions{})
	sid, _ := mustOK(t, s.handleRequest(map[string]any{"op": "open"})).(string)
	if sid == "" {
		t.Fatal("expected a session id")
	}

	mustOK(t, s.handleRequest(map[string]any{"op": "eval", "session": sid, "expr": "(def! x 1)"}))
	resp := s.handleRequest(map[string]any{"op": "eval", "expr": "x"})
	mustFail(t, resp)
	if resp["kind"] != "SymbolNotFound" {
		t.Fatalf("expected SymbolNotFound in default session, got %v", resp)
	}

	ids, _ := mustOK(t, s.handleRequest(map[string]any{"op": "sessions"})).([]any)
	if len(ids) != 2 {
		t.Fatalf("expected 2 sessions, got %v", ids)
	}
}

func TestServerUnknownSession(t *testing.T) {
	s := newTestServer(t, SessionOptions{})
	mustFail(t, s.handleRequest(map[string]any{"op": "eval", "session": "nope", "expr": "1"}))
	mustFail(t, s.handleRequest(map[string]any{"op": "close", "session": "nope"}))
}

func TestServerTracesAndGlobals(t *testing.T) {
	s := newTestServer(t, SessionOptions{})
	s.handleRequest(map[string]any{"op": "eval", "expr": "(def! b 2)"})
	s.handleRequest(map[string]any{"op": "eval", "expr": "(nope)"})

	traces, _ := mustOK(t, s.handleRequest(map[string]any{"op": "traces"})).([]any)
	if len(traces) != 2 {
		t.Fatalf("expected 2 traces, got %v", traces)
	}
	last, _ := traces[1].(map[string]any)
	if last["kind"] != "SymbolNotFound" {
		t.Fatalf("unexpected last trace %v", last)
	}

	one, _ := mustOK(t, s.handleRequest(map[string]any{"op": "traces", "n": 1.0})).([]any)
	if len(one) != 1 {
		t.Fatalf("expected 1 trace, got %v", one)
	}
	mustFail(t, s.handleRequest(map[string]any{"op": "traces", "n": "1"}))
	mustFail(t, s.handleRequest(map[string]any{"op": "traces", "persisted": true}))

	globals, _ := mustOK(t, s.handleRequest(map[string]any{"op": "globals"})).([]any)
	if len(globals) != 1 || globals[0] != "b" {
		t.Fatalf("expected [b], got %v", globals)
	}
}

func TestServerPersistedTraces(t *testing.T) {
	store := openTestStore(t)
	s := newTestServer(t, SessionOptions{Store: store})
	s.handleRequest(map[string]any{"op": "eval", "expr": "(def! a 1)"})
	s.handleRequest(map[string]any{"op": "eval", "expr": "(+ a 1)"})

	recs, _ := mustOK(t, s.handleRequest(map[string]any{"op": "traces", "persisted": true})).([]any)
	if len(recs) != 2 {
		t.Fatalf("expected 2 persisted traces, got %v", recs)
	}
	if rec, _ := recs[1].(TraceRecord); rec.Result != "2" {
		t.Fatalf("unexpected record %v", recs[1])
	}
}

func TestServerRestoresStoredSessions(t *testing.T) {
	store := openTestStore(t)
	s := newTestServer(t, SessionOptions{Store: store})
	sid, _ := mustOK(t, s.handleRequest(map[string]any{"op": "open"})).(string)
	s.handleRequest(map[string]any{"op": "eval", "session": sid, "expr": "(def! kept 7)"})

	restarted := newTestServer(t, SessionOptions{Store: store})
	v := mustOK(t, restarted.handleRequest(map[string]any{"op": "eval", "session": sid, "expr": "kept"}))
	if v != "7" {
		t.Fatalf("expected 7 after restart, got %v", v)
	}
}

func TestServerResetAndClose(t *testing.T) {
	s := newTestServer(t, SessionOptions{})
	sid, _ := mustOK(t, s.handleRequest(map[string]any{"op": "open"})).(string)
	s.handleRequest(map[string]any{"op": "eval", "session": sid, "expr": "(def! x 1)"})

	mustOK(t, s.handleRequest(map[string]any{"op": "reset", "session": sid}))
	mustFail(t, s.handleRequest(map[string]any{"op": "eval", "session": sid, "expr": "x"}))

	mustFail(t, s.handleRequest(map[string]any{"op": "close"}))
	mustFail(t, s.handleRequest(map[string]any{"op": "close", "session": DefaultSessionID}))
	mustOK(t, s.handleRequest(map[string]any{"op": "close", "session": sid}))
	mustFail(t, s.handleRequest(map[string]any{"op": "eval", "session": sid, "expr": "1"}))
}

func TestServerUnknownOp(t *testing.T) {
	s := newTestServer(t, SessionOptions{})
	if msg := mustFail(t, s.handleRequest(map[string]any{"op": "frobnicate"})); msg != "unknown op: frobnicate" {
		t.Fatalf("unexpected error %q", msg)
	}
}

func TestServerConnection(t *testing.T) {
	s := newTestServer(t, SessionOptions{})
	go s.actorLoop()
	defer s.Shutdown()

	client, conn := net.Pipe()
	defer client.Close()
	go s.handleConnection(conn)

	for _, tc := range []struct {
		expr string
		want string
	}{
		{"(def! inc (fn* (x) (+ x 1)))", "<user:fn>"},
		{"(inc 41)", "42"},
	} {
		if err := WriteMsg(client, map[string]any{"id": NextID(), "op": "eval", "expr": tc.expr}); err != nil {
			t.Fatal(err)
		}
		resp, err := ReadMsg(client)
		if err != nil {
			t.Fatal(err)
		}
		if resp["value"] != tc.want {
			t.Fatalf("eval %s: expected %s, got %v", tc.expr, tc.want, resp)
		}
	}
}

func TestServerShutdownRejectsRequests(t *testing.T) {
	s := newTestServer(t, SessionOptions{})
	s.Shutdown()
	s.Shutdown()
	if _, err := s.sendToActor(map[string]any{"op": "sessions"}); err == nil {
		t.Fatal("expected error after shutdown")
	}
}
