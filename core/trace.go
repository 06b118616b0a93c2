package mal

// Trace captures one top-level input of a session: what was read, what it
// produced, and which global names it defined.
type Trace struct {
	Input     string    // source text as submitted
	Result    Value     // last form's value; zero Value on error
	Error     string    // non-empty on error
	Kind      ErrorKind // KindNone on success
	Defined   []string  // names bound in the global scope by def!
	Timestamp string    // RFC 3339, UTC
}

// OK reports whether the input evaluated without error.
func (t *Trace) OK() bool {
	return t.Error == ""
}

// ToValue renders a Trace as a mal List of keyword/value pairs, e.g.
// (:input "(+ 1 2)" :result 3 :error nil :defined () :timestamp "...").
func (t *Trace) ToValue() Value {
	defined := make([]Value, len(t.Defined))
	for i, name := range t.Defined {
		defined[i] = SymVal(name)
	}
	result := NilVal()
	errVal := NilVal()
	if t.OK() {
		result = t.Result
	} else {
		errVal = StrVal(t.Error)
	}
	return ListVal([]Value{
		KeywordVal("input"), StrVal(t.Input),
		KeywordVal("result"), result,
		KeywordVal("error"), errVal,
		KeywordVal("defined"), ListVal(defined),
		KeywordVal("timestamp"), StrVal(t.Timestamp),
	})
}

// ToGo converts a Trace to plain Go values for JSON responses.
func (t *Trace) ToGo() map[string]any {
	defined := make([]any, len(t.Defined))
	for i, name := range t.Defined {
		defined[i] = name
	}
	m := map[string]any{
		"input":     t.Input,
		"defined":   defined,
		"timestamp": t.Timestamp,
	}
	if t.OK() {
		m["result"] = t.Result.String()
		m["error"] = nil
	} else {
		m["result"] = nil
		m["error"] = t.Error
		m["kind"] = t.Kind.String()
	}
	return m
}
