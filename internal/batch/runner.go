package batch

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joelkehle/ssfinder/internal/classify"
	"github.com/joelkehle/ssfinder/internal/enrich"
	"github.com/joelkehle/ssfinder/internal/jobdesc"
	"github.com/joelkehle/ssfinder/internal/store"
)

const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// Outcome is the result for one Job. Outcomes keep the input order.
type Outcome struct {
	Job         Job             `json:"job"`
	Description string          `json:"description"`
	Result      classify.Result `json:"result"`
	Trace       classify.Trace  `json:"trace"`
	Status      string          `json:"status"`
	Error       string          `json:"error,omitempty"`
}

type Classifier interface {
	ClassifyWithTrace(ctx context.Context, q classify.Query) (classify.Result, classify.Trace)
}

type Searcher interface {
	Search(ctx context.Context, jobTitle, company string) []enrich.Posting
}

type Describer interface {
	Describe(ctx context.Context, req jobdesc.Request) (string, bool)
}

type Recorder interface {
	Save(ctx context.Context, rec store.Record) (store.Record, error)
}

// Runner classifies jobs on a bounded pool of workers. Searcher, Describer
// and Recorder are optional.
type Runner struct {
	Classifier Classifier
	Searcher   Searcher
	Describer  Describer
	Recorder   Recorder
	Credential string
	Workers    int
	MaxRows    int
}

type ProgressFn func(done, total int, last Outcome)

// Run classifies every job. Per-job problems are reported in the Outcome; the
// returned error is only the context's.
func (r *Runner) Run(ctx context.Context, jobs []Job, progress ProgressFn) ([]Outcome, error) {
	workers := r.Workers
	if workers <= 0 {
		workers = 1
	}
	outcomes := make([]Outcome, len(jobs))
	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out := r.one(gctx, jobs[i])
			outcomes[i] = out
			mu.Lock()
			done++
			n := done
			if progress != nil {
				progress(n, len(jobs), out)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, ctx.Err()
}

func (r *Runner) one(ctx context.Context, job Job) Outcome {
	out := Outcome{Job: job, Description: job.JobDescription}
	q := classify.Query{
		Company:        job.Company,
		JobTitle:       job.JobTitle,
		JobDescription: job.JobDescription,
		AICredential:   r.Credential,
	}.Sanitize()
	if err := q.Validate(); err != nil {
		out.Status = StatusFailed
		out.Error = strings.ReplaceAll(err.Error(), "\n", "; ")
		return out
	}

	if r.Describer != nil {
		refs := ""
		if r.Searcher != nil {
			refs = enrich.FormatPostings(r.Searcher.Search(ctx, q.JobTitle, q.Company))
		}
		desc, _ := r.Describer.Describe(ctx, jobdesc.Request{
			Company:            q.Company,
			JobTitle:           q.JobTitle,
			InitialDescription: q.JobDescription,
			References:         refs,
		})
		q.JobDescription = desc
		out.Description = desc
	}

	out.Result, out.Trace = r.Classifier.ClassifyWithTrace(ctx, q)
	out.Status = StatusSuccess
	if out.Result.Industry.Code == classify.UnknownCode {
		out.Status = StatusFailed
		out.Error = "classification failed"
	}
	if r.Recorder != nil {
		if _, err := r.Recorder.Save(ctx, store.Record{Source: store.SourceBatch, Query: q, Result: out.Result, Trace: out.Trace}); err != nil {
			log.Printf("batch record row=%d failed: %v", job.Row, err)
		}
	}
	return out
}

// FileRecord summarises one processed input file.
type FileRecord struct {
	RunID       string    `json:"run_id"`
	Input       string    `json:"input"`
	Output      string    `json:"output"`
	Rows        int       `json:"rows"`
	Failed      int       `json:"failed"`
	Error       string    `json:"error,omitempty"`
	ModTime     time.Time `json:"mod_time"`
	ProcessedAt time.Time `json:"processed_at"`
}

// ProcessFile reads input, classifies it and writes the result to output.
func (r *Runner) ProcessFile(ctx context.Context, input, output string) (FileRecord, error) {
	rec := FileRecord{RunID: uuid.NewString(), Input: input, Output: output}
	sheet, err := ReadFile(input, r.MaxRows)
	if err != nil {
		return rec, fmt.Errorf("%s: %w", input, err)
	}
	rec.Rows = len(sheet.Jobs)
	log.Printf("batch run=%s input=%s rows=%s estimate=%s", rec.RunID, input, humanize.Comma(int64(rec.Rows)), FormatEstimate(EstimateDuration(rec.Rows, r.Searcher != nil)))

	started := time.Now()
	outcomes, err := r.Run(ctx, sheet.Jobs, nil)
	if err != nil {
		return rec, err
	}
	for _, o := range outcomes {
		if o.Status == StatusFailed {
			rec.Failed++
		}
	}
	if err := WriteFile(output, sheet, outcomes); err != nil {
		return rec, fmt.Errorf("write %s: %w", output, err)
	}
	log.Printf("batch run=%s done rows=%d failed=%d took=%s output=%s", rec.RunID, rec.Rows, rec.Failed, time.Since(started).Round(time.Millisecond), output)
	return rec, nil
}

// EstimateDuration is a rough wall-clock estimate for n jobs run one at a
// time: 10s per job with portal search, 5s without.
func EstimateDuration(n int, webSearch bool) time.Duration {
	per := 5 * time.Second
	if webSearch {
		per = 10 * time.Second
	}
	return time.Duration(n) * per
}

// FormatEstimate renders d as "~8 minutes".
func FormatEstimate(d time.Duration) string {
	if d <= 0 {
		return "~0 seconds"
	}
	now := time.Now()
	return "~" + strings.TrimSpace(humanize.RelTime(now, now.Add(d), "", ""))
}
