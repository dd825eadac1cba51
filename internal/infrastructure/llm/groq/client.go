package groq

import (
	"net/http"
	"strings"
	"time"

	"github.com/apiarylabs/ledgerpilot/internal/infrastructure/resilience"
)

const (
	defaultBaseURL = "https://api.groq.com/openai/v1"

	// The structurer gets the large model: re-associating column-major OCR
	// tables into line items needs it. The auditor's yes/no/uncertain call
	// runs on the fast one.
	defaultStructureModel = "llama-3.3-70b-versatile"
	defaultAuditModel     = "llama-3.1-8b-instant"
)

// Client is the shared chat-completions transport for the structuring and
// auditor adapters. An empty API key is a supported degraded mode: the
// structurer emits a marked fallback record and the auditor reports itself
// unavailable.
type Client struct {
	baseURL        string
	apiKey         string
	structureModel string
	auditModel     string
	httpClient     *http.Client
	executor       *resilience.Executor
}

type Options struct {
	BaseURL        string
	StructureModel string
	AuditModel     string
	Executor       *resilience.Executor
}

func New(apiKey string, options Options) *Client {
	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	structureModel := options.StructureModel
	if structureModel == "" {
		structureModel = defaultStructureModel
	}
	auditModel := options.AuditModel
	if auditModel == "" {
		auditModel = defaultAuditModel
	}
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         apiKey,
		structureModel: structureModel,
		auditModel:     auditModel,
		httpClient:     &http.Client{Timeout: 120 * time.Second},
		executor:       options.Executor,
	}
}

func (c *Client) configured() bool {
	return c.apiKey != ""
}
