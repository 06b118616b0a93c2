package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/peterh/liner"

	mal "github.com/rphilander/mal/core"
)

func main() {
	configPath := flag.String("config", os.Getenv("MAL_CONFIG"), "path to a YAML config file")
	sessionID := flag.String("session", mal.DefaultSessionID, "session id used for the stored definition log")
	flag.Parse()

	cfg, err := mal.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	store, err := cfg.OpenStore()
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	if store != nil {
		defer store.Close()
	}

	sess, err := mal.NewSession(*sessionID, cfg.SessionOptions(store))
	if err != nil {
		log.Fatalf("start session: %v", err)
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if cfg.History != "" {
		if f, err := os.Open(cfg.History); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
		defer writeHistory(line, cfg.History)
	}

	for {
		input, err := line.Prompt(cfg.Prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("read input: %v", err)
			}
			fmt.Println()
			return
		}
		if mal.Blank(input) {
			continue
		}
		line.AppendHistory(input)
		fmt.Println(sess.Rep(input))
	}
}

func writeHistory(line *liner.State, path string) {
	f, err := os.Create(path)
	if err != nil {
		log.Printf("write history: %v", err)
		return
	}
	defer f.Close()
	if _, err := line.WriteHistory(f); err != nil {
		log.Printf("write history: %v", err)
	}
}
