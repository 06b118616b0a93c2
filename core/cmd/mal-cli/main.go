package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"os"

	mal "github.com/rphilander/mal/core"
)

// buildRequest turns -expr into an eval request, or reads a raw JSON request
// from in when expr is empty.
func buildRequest(expr, session string, in io.Reader) (map[string]any, error) {
	msg := map[string]any{}
	if expr != "" {
		msg["op"] = "eval"
		msg["expr"] = expr
	} else {
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("parse JSON: %w", err)
		}
	}
	if session != "" {
		msg["session"] = session
	}
	if _, ok := msg["id"]; !ok {
		msg["id"] = mal.NextID()
	}
	return msg, nil
}

// roundTrip sends one request and waits for its response.
func roundTrip(conn io.ReadWriter, msg map[string]any) (map[string]any, error) {
	if err := mal.WriteMsg(conn, msg); err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	resp, err := mal.ReadMsg(conn)
	if err != nil {
		return nil, fmt.Errorf("receive: %w", err)
	}
	return resp, nil
}

func main() {
	expr := flag.String("expr", "", "evaluate this source text instead of reading a JSON request from stdin")
	session := flag.String("session", "", "session id to address (default session when empty)")
	raw := flag.Bool("json", false, "print the full JSON response even for -expr")
	flag.Parse()

	sockPath := os.Getenv("MAL_SOCK")
	if sockPath == "" {
		sockPath = mal.DefaultConfig().Socket
	}

	msg, err := buildRequest(*expr, *session, os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	resp, err := roundTrip(conn, msg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ok, _ := resp["ok"].(bool)

	// -expr prints like the REPL does.
	if *expr != "" && !*raw {
		if ok {
			fmt.Println(resp["value"])
			return
		}
		fmt.Printf("error: %v\n", resp["error"])
		os.Exit(2)
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "format response: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
	if !ok {
		os.Exit(2)
	}
}
