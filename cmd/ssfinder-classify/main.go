package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/dustin/go-humanize"

	"github.com/joelkehle/ssfinder/internal/browser"
	"github.com/joelkehle/ssfinder/internal/classify"
	"github.com/joelkehle/ssfinder/internal/config"
	"github.com/joelkehle/ssfinder/internal/enrich"
	"github.com/joelkehle/ssfinder/internal/jobdesc"
	"github.com/joelkehle/ssfinder/internal/llm"
	"github.com/joelkehle/ssfinder/internal/render"
	"github.com/joelkehle/ssfinder/internal/store"
)

func main() {
	cfg := config.Load()
	var (
		company     = flag.String("company", "", "Company name")
		title       = flag.String("title", "", "Job title")
		description = flag.String("description", "", "Job description")
		useAI       = flag.Bool("ai", cfg.DefaultAI, "Classify with ANTHROPIC_API_KEY")
		generate    = flag.Bool("generate-description", false, "Expand the description with the LLM before classifying (needs -ai)")
		webSearch   = flag.Bool("web-search", false, "Search job portals for reference postings (with -generate-description)")
		asJSON      = flag.Bool("json", false, "Print the result and trace as JSON")
		save        = flag.Bool("save", false, "Record the classification in the history database")
		pdfPath     = flag.String("pdf", "", "Write a PDF report to this path")
	)
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	credential := ""
	if *useAI {
		if err := llm.ValidateAPIKey(cfg.APIKey); err != nil {
			log.Fatal(err)
		}
		credential = cfg.APIKey
	}
	q := classify.Query{Company: *company, JobTitle: *title, JobDescription: *description, AICredential: credential}.Sanitize()
	if err := q.Validate(); err != nil {
		log.Fatal(err)
	}

	engine, err := config.NewEngine(cfg)
	if err != nil {
		log.Fatal(err)
	}

	if *generate && credential != "" {
		refs := ""
		if *webSearch {
			portals, err := enrich.LoadPortals(cfg.PortalsFile)
			if err != nil {
				log.Fatal(err)
			}
			postings := enrich.NewPortalAggregator(portals, enrich.DefaultSourceTimeout).Search(ctx, q.JobTitle, q.Company)
			log.Printf("ssfinder found %d reference postings", len(postings))
			refs = enrich.FormatPostings(postings)
		}
		gen := jobdesc.NewGenerator(llm.NewAnthropicCaller(credential, cfg.LLMConfig()))
		q.JobDescription, _ = gen.Describe(ctx, jobdesc.Request{
			Company:            q.Company,
			JobTitle:           q.JobTitle,
			InitialDescription: q.JobDescription,
			References:         refs,
		})
	}

	res, tr := engine.ClassifyWithProgress(ctx, q, func(stage, message string) {
		log.Printf("ssfinder [%s] %s", stage, message)
	})
	rec := store.Record{Source: store.SourceCLI, Query: q, Result: res, Trace: tr}

	if *save {
		st, err := store.Open(cfg.DBPath, store.Config{})
		if err != nil {
			log.Fatal(err)
		}
		defer st.Close()
		if rec, err = st.Save(ctx, rec); err != nil {
			log.Fatal(err)
		}
		total, err := st.Count(ctx)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("ssfinder saved %s (%s classifications in %s)", rec.ID, humanize.Comma(int64(total)), cfg.DBPath)
	}

	if *pdfPath != "" {
		pdf, err := render.NewPDFRenderer(browser.DefaultTimeout).Render(ctx, rec)
		if err != nil {
			log.Fatal(err)
		}
		if err := os.WriteFile(*pdfPath, pdf, 0o644); err != nil {
			log.Fatal(err)
		}
		log.Printf("ssfinder wrote %s (%s)", *pdfPath, humanize.Bytes(uint64(len(pdf))))
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]any{"id": rec.ID, "result": res, "trace": tr}); err != nil {
			log.Fatal(err)
		}
		return
	}
	fmt.Println(classify.Summary(res))
}
