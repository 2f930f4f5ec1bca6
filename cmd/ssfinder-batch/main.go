package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/joelkehle/ssfinder/internal/batch"
	"github.com/joelkehle/ssfinder/internal/config"
	"github.com/joelkehle/ssfinder/internal/enrich"
	"github.com/joelkehle/ssfinder/internal/jobdesc"
	"github.com/joelkehle/ssfinder/internal/llm"
	"github.com/joelkehle/ssfinder/internal/store"
)

func main() {
	cfg := config.Load()
	var (
		outDir    = flag.String("out", "", "Output directory (default: next to each input, or <watch>/out)")
		watchDir  = flag.String("watch", "", "Watch this directory for new .csv/.xlsx files instead of processing arguments")
		workers   = flag.Int("workers", cfg.Workers, "Parallel classifications")
		maxRows   = flag.Int("max-rows", cfg.MaxBatchSize, "Reject files with more data rows than this")
		generate  = flag.Bool("generate-description", false, "Expand each description with the LLM (needs ANTHROPIC_API_KEY and SSFINDER_DEFAULT_AI)")
		webSearch = flag.Bool("web-search", false, "Search job portals for reference postings (with -generate-description)")
		record    = flag.Bool("record", true, "Record classifications in the history database")
	)
	flag.Parse()
	cfg.Workers = *workers
	cfg.MaxBatchSize = *maxRows
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	if *watchDir == "" && flag.NArg() == 0 {
		log.Fatal("usage: ssfinder-batch [flags] file.csv|file.xlsx ... or -watch dir")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	engine, err := config.NewEngine(cfg)
	if err != nil {
		log.Fatal(err)
	}
	runner := &batch.Runner{
		Classifier: engine,
		Credential: cfg.Credential(""),
		Workers:    cfg.Workers,
		MaxRows:    cfg.MaxBatchSize,
	}
	if *generate {
		if runner.Credential == "" {
			log.Fatal("-generate-description needs SSFINDER_DEFAULT_AI=true and ANTHROPIC_API_KEY")
		}
		runner.Describer = jobdesc.NewGenerator(llm.NewAnthropicCaller(runner.Credential, cfg.LLMConfig()))
		if *webSearch {
			portals, err := enrich.LoadPortals(cfg.PortalsFile)
			if err != nil {
				log.Fatal(err)
			}
			runner.Searcher = enrich.NewPortalAggregator(portals, enrich.DefaultSourceTimeout)
		}
	}
	if *record {
		st, err := store.Open(cfg.DBPath, store.Config{})
		if err != nil {
			log.Fatal(err)
		}
		defer st.Close()
		runner.Recorder = st
	}

	if *watchDir != "" {
		w, err := batch.NewWatcher(*watchDir, *outDir, runner.ProcessFile)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("ssfinder-batch watching %s (workers=%d, max_rows=%d)", *watchDir, cfg.Workers, cfg.MaxBatchSize)
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			log.Fatal(err)
		}
		return
	}

	failed := false
	for _, input := range flag.Args() {
		dir := *outDir
		if dir == "" {
			dir = filepath.Dir(input)
		}
		rec, err := runner.ProcessFile(ctx, input, batch.OutputPath(dir, input))
		if err != nil {
			log.Printf("ssfinder-batch %s failed: %v", input, err)
			failed = true
			continue
		}
		log.Printf("ssfinder-batch %s -> %s (%d rows, %d failed)", input, rec.Output, rec.Rows, rec.Failed)
	}
	if failed {
		os.Exit(1)
	}
}
