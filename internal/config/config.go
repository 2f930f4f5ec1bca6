// Package config reads ssfinder settings from the environment and builds the
// classification engine the binaries share.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joelkehle/ssfinder/internal/classify"
	"github.com/joelkehle/ssfinder/internal/llm"
	"github.com/joelkehle/ssfinder/internal/taxonomy"
)

const (
	DefaultWorkers      = 4
	DefaultMaxBatchSize = 100
)

type Config struct {
	Addr string

	SSICPath string
	SSOCPath string
	// SkipRows below zero picks the per-format default.
	SkipRows int

	DBPath      string
	WeightsFile string

	LLMModel   string
	LLMTimeout time.Duration
	// DefaultAI classifies with APIKey when a request carries no credential.
	DefaultAI bool
	APIKey    string

	Workers      int
	MaxBatchSize int
	PortalsFile  string
	OTLPEndpoint string
}

func Load() Config {
	return Config{
		Addr:         getenv("SSFINDER_ADDR", ":8095"),
		SSICPath:     getenv("SSFINDER_SSIC_PATH", "data/ssic2025.xlsx"),
		SSOCPath:     getenv("SSFINDER_SSOC_PATH", "data/ssoc2024.xlsx"),
		SkipRows:     envInt("SSFINDER_TAXONOMY_SKIP_ROWS", -1),
		DBPath:       getenv("SSFINDER_DB_PATH", "ssfinder.db"),
		WeightsFile:  strings.TrimSpace(os.Getenv("SSFINDER_WEIGHTS_FILE")),
		LLMModel:     getenv("SSFINDER_LLM_MODEL", llm.DefaultModel),
		LLMTimeout:   time.Duration(envInt("SSFINDER_LLM_TIMEOUT_SEC", int(llm.DefaultTimeout/time.Second))) * time.Second,
		DefaultAI:    envBool("SSFINDER_DEFAULT_AI", false),
		APIKey:       strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")),
		Workers:      envInt("SSFINDER_WORKERS", DefaultWorkers),
		MaxBatchSize: envInt("SSFINDER_MAX_BATCH", DefaultMaxBatchSize),
		PortalsFile:  strings.TrimSpace(os.Getenv("SSFINDER_PORTALS_FILE")),
		OTLPEndpoint: strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
	}
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.SSICPath) == "" || strings.TrimSpace(c.SSOCPath) == "" {
		errs = append(errs, errors.New("SSFINDER_SSIC_PATH and SSFINDER_SSOC_PATH are required"))
	}
	if c.Workers <= 0 {
		errs = append(errs, errors.New("SSFINDER_WORKERS must be positive"))
	}
	if c.MaxBatchSize <= 0 {
		errs = append(errs, errors.New("SSFINDER_MAX_BATCH must be positive"))
	}
	if c.LLMTimeout <= 0 {
		errs = append(errs, errors.New("SSFINDER_LLM_TIMEOUT_SEC must be positive"))
	}
	if c.DefaultAI {
		if err := llm.ValidateAPIKey(c.APIKey); err != nil {
			errs = append(errs, fmt.Errorf("SSFINDER_DEFAULT_AI needs ANTHROPIC_API_KEY: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Credential returns the credential to classify with: the request's own when
// given, else the configured key when DefaultAI is on.
func (c Config) Credential(requested string) string {
	if k := strings.TrimSpace(requested); k != "" {
		return k
	}
	if c.DefaultAI {
		return c.APIKey
	}
	return ""
}

// LLMConfig is the caller configuration derived from c.
func (c Config) LLMConfig() llm.Config {
	return llm.Config{Model: c.LLMModel, Timeout: c.LLMTimeout}
}

// NewEngine loads both taxonomy tables and the optional weights file.
func NewEngine(c Config) (*classify.Engine, error) {
	ssic, err := taxonomy.LoadFile(taxonomy.SSIC, c.SSICPath, c.SkipRows)
	if err != nil {
		return nil, err
	}
	ssoc, err := taxonomy.LoadFile(taxonomy.SSOC, c.SSOCPath, c.SkipRows)
	if err != nil {
		return nil, err
	}
	ecfg := classify.Config{NewCaller: llm.Factory(c.LLMConfig())}
	if c.WeightsFile != "" {
		w, err := classify.LoadWeights(c.WeightsFile)
		if err != nil {
			return nil, err
		}
		ecfg.Weights = &w
	}
	e, err := classify.New(ssic, ssoc, ecfg)
	if err != nil {
		return nil, err
	}
	log.Printf("ssfinder taxonomy loaded ssic=%d ssoc=%d weights=%q", ssic.Len(), ssoc.Len(), c.WeightsFile)
	return e, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
