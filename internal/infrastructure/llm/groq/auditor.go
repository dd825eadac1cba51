package groq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/apiarylabs/ledgerpilot/internal/core/domain"
	"github.com/apiarylabs/ledgerpilot/internal/core/ports"
)

// Auditor is the reasoning service behind the autonomous secondary review.
// Transport and parse trouble degrade to an uncertain verdict; only a
// missing API key is reported as an error, because then the service is not
// merely flaky but absent.
type Auditor struct {
	client *Client
	logger *slog.Logger
}

func NewAuditor(client *Client, logger *slog.Logger) *Auditor {
	return &Auditor{client: client, logger: logger}
}

func (a *Auditor) Judge(ctx context.Context, text string, record *domain.ExtractedRecord) (ports.Verdict, error) {
	if !a.client.configured() {
		return ports.Verdict{}, fmt.Errorf("auditor reasoning service not configured")
	}

	extracted := "{}"
	if record != nil {
		if data, err := json.MarshalIndent(record, "", "  "); err == nil {
			extracted = string(data)
		}
	}
	userPrompt := fmt.Sprintf("### RAW TEXT:\n%s\n\n### EXTRACTED JSON STRUCTURE:\n%s", text, extracted)

	var raw string
	call := func(callCtx context.Context) error {
		var err error
		raw, err = a.client.chatJSON(callCtx, a.client.auditModel,
			auditSystemPrompt, userPrompt, 600, "audit")
		return err
	}

	// No retries: a slow or failing auditor must degrade, not stall the
	// pipeline. The breaker still shields a dead upstream.
	var err error
	if a.client.executor != nil {
		err = a.client.executor.ExecuteNoRetry(ctx, "groq.audit", call, classifyGroqError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		a.logger.Warn("audit_call_failed", "error", err)
		return ports.Verdict{
			Decision: ports.VerdictUncertain,
			Reason:   "reasoning service call failed",
		}, nil
	}

	var result struct {
		Decision string `json:"decision"`
		Reason   string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(stripMarkdownFence(raw)), &result); err != nil {
		a.logger.Warn("audit_response_unparsable", "error", err)
		return ports.Verdict{
			Decision: ports.VerdictUncertain,
			Reason:   "reasoning service returned unparsable output",
		}, nil
	}

	reason := strings.TrimSpace(result.Reason)
	if reason == "" {
		reason = "no reason provided"
	}

	switch strings.ToUpper(strings.TrimSpace(result.Decision)) {
	case "APPROVED":
		return ports.Verdict{Decision: ports.VerdictApprove, Reason: reason}, nil
	case "REJECTED":
		return ports.Verdict{Decision: ports.VerdictReject, Reason: reason}, nil
	default:
		return ports.Verdict{Decision: ports.VerdictUncertain, Reason: reason}, nil
	}
}
