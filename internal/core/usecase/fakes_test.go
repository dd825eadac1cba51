package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/apiarylabs/ledgerpilot/internal/core/domain"
	"github.com/apiarylabs/ledgerpilot/internal/core/ports"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type repoFake struct {
	doc      *domain.Document
	getErr   error
	listed   []domain.Document
	listErr  error
	firstDoc *domain.Document
	firstErr error

	created     []*domain.Document
	batches     [][]*domain.Document
	createErr   error
	batchErr    error
	statusCalls []domain.DocumentStatus
	statusErr   error
	signals     []domain.Signals
	signalsErr  error
	failedIDs   []string
	markErr     error
	resetIDs    []string
	resetErr    error
	deletedIDs  []string
	deleteErr   error

	hashMatch    bool
	hashErr      error
	tripletMatch bool
	tripletErr   error
}

func (f *repoFake) Create(_ context.Context, doc *domain.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, doc)
	return nil
}

func (f *repoFake) CreateBatch(_ context.Context, docs []*domain.Document) error {
	if f.batchErr != nil {
		return f.batchErr
	}
	f.batches = append(f.batches, docs)
	return nil
}

func (f *repoFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copyDoc := *f.doc
	return &copyDoc, nil
}

func (f *repoFake) FirstByTenant(context.Context, string) (*domain.Document, error) {
	if f.firstErr != nil {
		return nil, f.firstErr
	}
	if f.firstDoc == nil {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "first document of tenant",
			errors.New("tenant has no documents"))
	}
	copyDoc := *f.firstDoc
	return &copyDoc, nil
}

func (f *repoFake) UpdateStatus(_ context.Context, _ string, status domain.DocumentStatus) error {
	if f.statusErr != nil {
		return f.statusErr
	}
	f.statusCalls = append(f.statusCalls, status)
	return nil
}

func (f *repoFake) ApplySignals(_ context.Context, _ string, s domain.Signals) error {
	if f.signalsErr != nil {
		return f.signalsErr
	}
	f.signals = append(f.signals, s)
	return nil
}

func (f *repoFake) MarkFailed(_ context.Context, id string, _ float64) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.failedIDs = append(f.failedIDs, id)
	return nil
}

func (f *repoFake) ResetForReprocess(_ context.Context, id string) error {
	if f.resetErr != nil {
		return f.resetErr
	}
	f.resetIDs = append(f.resetIDs, id)
	return nil
}

func (f *repoFake) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

func (f *repoFake) ListByStatus(context.Context, string, []domain.DocumentStatus) ([]domain.Document, error) {
	return f.listed, f.listErr
}

func (f *repoFake) ListByIDs(context.Context, string, []string) ([]domain.Document, error) {
	return f.listed, f.listErr
}

func (f *repoFake) ExistsWithTextHash(context.Context, string, string, string) (bool, error) {
	return f.hashMatch, f.hashErr
}

func (f *repoFake) ExistsWithTriplet(context.Context, string, string, string, float64, string) (bool, error) {
	return f.tripletMatch, f.tripletErr
}

type ledgerFake struct {
	events    []domain.Event
	appendErr error
	listErr   error
}

func (f *ledgerFake) Append(_ context.Context, event *domain.Event) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.events = append(f.events, *event)
	return nil
}

func (f *ledgerFake) ListByDocument(context.Context, string) ([]domain.Event, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.events, nil
}

func (f *ledgerFake) types() []string {
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

func (f *ledgerFake) hasType(eventType string) bool {
	for _, e := range f.events {
		if e.Type == eventType {
			return true
		}
	}
	return false
}

type policyRepoFake struct {
	policy    *domain.Policy
	getErr    error
	upserts   []domain.Policy
	upsertErr error
}

func (f *policyRepoFake) GetByTenant(context.Context, string) (*domain.Policy, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copyPolicy := *f.policy
	return &copyPolicy, nil
}

func (f *policyRepoFake) Upsert(_ context.Context, policy *domain.Policy) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, *policy)
	return nil
}

type storageFake struct {
	data      []byte
	saved     map[string][]byte
	saveErr   error
	openErr   error
	deleted   []string
	deleteErr error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	content, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.saved == nil {
		f.saved = map[string][]byte{}
	}
	f.saved[key] = content
	return nil
}

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

func (f *storageFake) Delete(_ context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, key)
	return nil
}

type queueFake struct {
	published  []ports.Task
	publishErr error
}

func (f *queueFake) Publish(_ context.Context, task ports.Task) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, task)
	return nil
}

func (f *queueFake) Subscribe(context.Context, func(context.Context, ports.Task) error) error {
	return nil
}

type extractorFake struct {
	text  string
	err   error
	block bool
}

func (f *extractorFake) Extract(ctx context.Context, _ []byte, _ string) (string, error) {
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type tabularFake struct {
	rows [][]string
	err  error
}

func (f *tabularFake) Rows([]byte, string) ([][]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

type structurerFake struct {
	record *domain.ExtractedRecord
	err    error
}

func (f *structurerFake) Structure(context.Context, string) (*domain.ExtractedRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

type judgeFake struct {
	verdict ports.Verdict
	err     error
	calls   int
}

func (f *judgeFake) Judge(context.Context, string, *domain.ExtractedRecord) (ports.Verdict, error) {
	f.calls++
	if f.err != nil {
		return ports.Verdict{}, f.err
	}
	return f.verdict, nil
}

type notification struct {
	recipient string
	status    domain.DocumentStatus
	reason    string
}

type notifierFake struct {
	sent []notification
	err  error
}

func (f *notifierFake) Notify(_ context.Context, recipient, _ string, status domain.DocumentStatus, _, reason string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, notification{recipient: recipient, status: status, reason: reason})
	return nil
}

func floatPtr(v float64) *float64 { return &v }
