package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/apiarylabs/ledgerpilot/internal/core/domain"
	"github.com/apiarylabs/ledgerpilot/internal/core/ports"
)

// auditFastTrackConfidence is deliberately looser than the default policy
// auto-approve threshold: the auditor is a secondary gate for documents that
// only landed in review because they were borderline but clean.
const auditFastTrackConfidence = 0.55

// AuditVerdict is the auditor's final word on one reviewed document.
type AuditVerdict struct {
	Status domain.DocumentStatus
	Reason string
	// Urgent is set only for rejections attributable to fraud.
	Urgent bool
}

// AuditUseCase is the autonomous secondary review stage. It runs only on
// documents already routed to human review, and it absorbs every failure of
// the external reasoning service: the worst outcome is "still needs a
// human", never an error and never an unresolved status.
type AuditUseCase struct {
	judge  ports.AuditorJudge
	logger *slog.Logger
}

func NewAuditUseCase(judge ports.AuditorJudge, logger *slog.Logger) *AuditUseCase {
	return &AuditUseCase{judge: judge, logger: logger}
}

func (uc *AuditUseCase) Review(ctx context.Context, doc *domain.Document, rawText string) AuditVerdict {
	if conf := doc.Confidence; conf != nil && *conf >= auditFastTrackConfidence &&
		!doc.DuplicateFlag && !doc.FraudFlag {
		return AuditVerdict{
			Status: domain.StatusApproved,
			Reason: fmt.Sprintf("fast-track: confidence %.1f%% met the %.0f%% auditor threshold with no duplicate or fraud signals",
				*conf*100, auditFastTrackConfidence*100),
		}
	}

	verdict, err := uc.judge.Judge(ctx, rawText, doc.Extracted)
	if err != nil {
		uc.logger.Warn("auditor_judge_failed", "document_id", doc.ID, "error", err)
		return AuditVerdict{
			Status: domain.StatusAdminPassNeeded,
			Reason: "auditor reasoning service unavailable, yielding to human review",
		}
	}

	switch verdict.Decision {
	case ports.VerdictApprove:
		return AuditVerdict{
			Status: domain.StatusApproved,
			Reason: "auditor approved: " + verdict.Reason,
		}
	case ports.VerdictReject:
		return AuditVerdict{
			Status: domain.StatusRejected,
			Reason: "auditor rejected: " + verdict.Reason,
			Urgent: doc.FraudFlag,
		}
	default:
		return AuditVerdict{
			Status: domain.StatusAdminPassNeeded,
			Reason: "auditor uncertain: " + verdict.Reason,
		}
	}
}
