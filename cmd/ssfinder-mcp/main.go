package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/joelkehle/ssfinder/internal/config"
	"github.com/joelkehle/ssfinder/internal/mcptool"
	"github.com/joelkehle/ssfinder/internal/store"
)

const version = "0.1.0"

func main() {
	cfg := config.Load()
	record := flag.Bool("record", true, "Record classifications in the history database")
	flag.Parse()
	// Stdout carries the protocol.
	log.SetOutput(os.Stderr)
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	engine, err := config.NewEngine(cfg)
	if err != nil {
		log.Fatal(err)
	}
	tools := &mcptool.Tools{Engine: engine, Credential: cfg.Credential}
	if *record {
		st, err := store.Open(cfg.DBPath, store.Config{})
		if err != nil {
			log.Fatal(err)
		}
		defer st.Close()
		tools.Recorder = st
	}

	if err := server.ServeStdio(tools.NewServer(version)); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
