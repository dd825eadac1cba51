package smtp

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/apiarylabs/ledgerpilot/internal/core/domain"
)

// Notifier sends outbound status mail over SMTP with STARTTLS. Missing
// credentials put it in disabled mode: Notify logs and returns nil, so the
// pipeline behaves identically with or without a mail account.
type Notifier struct {
	host     string
	port     int
	username string
	password string
	from     string
	logger   *slog.Logger

	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

func New(host string, port int, username, password string, logger *slog.Logger) *Notifier {
	return &Notifier{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     username,
		logger:   logger,
		send:     smtp.SendMail,
	}
}

func (n *Notifier) Notify(ctx context.Context, recipient, documentLabel string, status domain.DocumentStatus, vendor, reason string) error {
	if n.username == "" || n.password == "" {
		n.logger.Info("notification_skipped", "recipient", recipient, "status", status)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, body := composeStatusMail(documentLabel, status, vendor, reason)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: LedgerPilot <%s>\r\n", n.from)
	fmt.Fprintf(&msg, "To: %s\r\n", recipient)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	auth := smtp.PlainAuth("", n.username, n.password, n.host)
	if err := n.send(addr, auth, n.from, []string{recipient}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send status mail: %w", err)
	}

	n.logger.Info("notification_sent", "recipient", recipient, "status", status)
	return nil
}

func composeStatusMail(documentLabel string, status domain.DocumentStatus, vendor, reason string) (string, string) {
	label := documentLabel
	if vendor != "" {
		label = vendor
	}

	var subject string
	var outcome string
	switch status {
	case domain.StatusApproved:
		subject = "Document Approved: " + label
		outcome = "has been approved and finalized."
	case domain.StatusAutoApproved:
		subject = "Document Auto-Approved: " + label
		outcome = "has been automatically approved and finalized."
	case domain.StatusRejected:
		subject = "Document Rejected: " + label
		if reason == "" {
			reason = "no reason provided"
		}
		outcome = "has been rejected.\n\nReason: " + reason
	case domain.StatusProcessingFailed:
		subject = "Processing Failed: " + label
		outcome = "failed to process. An administrator has been notified."
	default:
		subject = "Update on Document: " + label
		outcome = "has a status update: " + string(status) + "."
	}

	body := fmt.Sprintf("Hello,\n\nYour document '%s' ", documentLabel)
	if vendor != "" {
		body += fmt.Sprintf("from vendor '%s' ", vendor)
	}
	body += outcome
	body += "\n\nBest,\nLedgerPilot"
	return subject, body
}
