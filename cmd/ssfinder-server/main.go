package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joelkehle/ssfinder/internal/browser"
	"github.com/joelkehle/ssfinder/internal/config"
	"github.com/joelkehle/ssfinder/internal/enrich"
	"github.com/joelkehle/ssfinder/internal/httpapi"
	"github.com/joelkehle/ssfinder/internal/jobdesc"
	"github.com/joelkehle/ssfinder/internal/llm"
	"github.com/joelkehle/ssfinder/internal/render"
	"github.com/joelkehle/ssfinder/internal/store"
	"github.com/joelkehle/ssfinder/internal/telemetry"
)

func main() {
	cfg := config.Load()
	var (
		addr      = flag.String("addr", cfg.Addr, "Listen address")
		dbPath    = flag.String("db", cfg.DBPath, "SQLite database for classification history")
		webSearch = flag.Bool("web-search", false, "Search job portals with headless Chromium before generating descriptions")
		pdf       = flag.Bool("pdf", true, "Serve PDF reports through headless Chromium")
	)
	flag.Parse()
	cfg.Addr = *addr
	cfg.DBPath = *dbPath
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	shutdown, err := telemetry.Setup(ctx, "ssfinder-server", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdown(sctx); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	engine, err := config.NewEngine(cfg)
	if err != nil {
		log.Fatal(err)
	}
	st, err := store.Open(cfg.DBPath, store.Config{})
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	opts := httpapi.Options{
		Engine:     engine,
		Store:      st,
		Credential: cfg.Credential,
		NewDescriber: func(apiKey string) httpapi.Describer {
			return jobdesc.NewGenerator(llm.NewAnthropicCaller(apiKey, cfg.LLMConfig()))
		},
	}
	if *webSearch {
		portals, err := enrich.LoadPortals(cfg.PortalsFile)
		if err != nil {
			log.Fatal(err)
		}
		opts.Searcher = enrich.NewPortalAggregator(portals, enrich.DefaultSourceTimeout)
	}
	if *pdf {
		opts.PDF = render.NewPDFRenderer(browser.DefaultTimeout)
	}

	log.Printf("ssfinder-server listening on %s (db=%s, default_ai=%v, web_search=%v)", cfg.Addr, cfg.DBPath, cfg.DefaultAI, *webSearch)
	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewServer(opts)}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
