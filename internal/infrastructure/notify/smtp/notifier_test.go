package smtp

import (
	"context"
	"io"
	"log/slog"
	"net/smtp"
	"strings"
	"testing"

	"github.com/apiarylabs/ledgerpilot/internal/core/domain"
)

func testNotifier() (*Notifier, *[]string) {
	var sent []string
	n := New("mail.example.com", 587, "bot@example.com", "secret",
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	n.send = func(_ string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
		sent = append(sent, string(msg))
		return nil
	}
	return n, &sent
}

func TestNotifyComposesRejectionMail(t *testing.T) {
	n, sent := testNotifier()

	err := n.Notify(context.Background(), "user@example.com", "inv.pdf",
		domain.StatusRejected, "Acme Corp", "fabricated vendor")
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if len(*sent) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(*sent))
	}
	mail := (*sent)[0]
	if !strings.Contains(mail, "Subject: Document Rejected: Acme Corp") {
		t.Fatalf("unexpected subject in mail:\n%s", mail)
	}
	if !strings.Contains(mail, "Reason: fabricated vendor") {
		t.Fatalf("missing rejection reason:\n%s", mail)
	}
}

func TestNotifyWithoutCredentialsIsNoop(t *testing.T) {
	n, sent := testNotifier()
	n.username = ""

	err := n.Notify(context.Background(), "user@example.com", "inv.pdf",
		domain.StatusApproved, "", "")
	if err != nil {
		t.Fatalf("disabled notifier must not error: %v", err)
	}
	if len(*sent) != 0 {
		t.Fatalf("disabled notifier must not send, got %d", len(*sent))
	}
}
