// Package jobdesc expands a short job description into an overview and
// responsibilities using an LLM and reference postings.
package jobdesc

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/joelkehle/ssfinder/internal/llm"
)

const (
	temperature = 0.7
	maxTokens   = 800
)

const systemPrompt = `You are an expert HR professional and job description writer. Create concise, professional job descriptions that cover only the job overview and key responsibilities. Leave out requirements, qualifications and benefits.`

type Request struct {
	Company            string
	JobTitle           string
	InitialDescription string
	// References is reference text, usually enrich.FormatPostings output.
	References string
}

type Generator struct {
	caller llm.LLMCaller
}

func NewGenerator(caller llm.LLMCaller) *Generator {
	return &Generator{caller: caller}
}

// Generate returns the model's description.
func (g *Generator) Generate(ctx context.Context, req Request) (string, error) {
	out, err := g.caller.Complete(ctx, llm.Completion{
		System:      systemPrompt,
		Prompt:      buildPrompt(req),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("generate description: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("generate description: %w", llm.ErrEmptyResponse)
	}
	return out, nil
}

// Describe returns the description to classify with: the initial description
// followed by the generated text. When generation fails the initial
// description is returned unchanged.
func (g *Generator) Describe(ctx context.Context, req Request) (string, bool) {
	generated, err := g.Generate(ctx, req)
	if err != nil {
		log.Printf("jobdesc fallback company=%q title=%q err=%v", req.Company, req.JobTitle, err)
		return req.InitialDescription, false
	}
	return strings.TrimSpace(req.InitialDescription + " " + generated), true
}

func buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Create a professional job description for the following position:\n\n")
	fmt.Fprintf(&b, "**Company:** %s\n", req.Company)
	fmt.Fprintf(&b, "**Job Title:** %s\n", req.JobTitle)
	if d := strings.TrimSpace(req.InitialDescription); d != "" {
		fmt.Fprintf(&b, "\n**Initial Description Provided:**\n%s\n", d)
	}
	if r := strings.TrimSpace(req.References); r != "" {
		fmt.Fprintf(&b, "\n**Reference Job Descriptions from Similar Positions:**\n%s\n", r)
	}
	b.WriteString(`
Write ONLY:

1. **Job Overview**: a 2-3 sentence summary of the role
2. **Key Responsibilities**: 5-8 bullet points

Keep it between 150 and 300 words.`)
	return b.String()
}
