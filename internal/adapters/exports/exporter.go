// Package exports renders stored simulation runs into downloadable artifacts
// (JSON report, CSV series, PNG epidemic curve, AVI animation) on a
// background worker.
package exports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"spreadsim/internal/core"
	"spreadsim/pkg/domain"
)

// Format names an artifact encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatPNG  Format = "png"
	FormatAVI  Format = "avi"
)

// Formats lists every supported format.
func Formats() []Format {
	return []Format{FormatJSON, FormatCSV, FormatPNG, FormatAVI}
}

// ParseFormats turns a comma separated list such as "json,png" into formats.
// Blank entries are skipped.
func ParseFormats(list string) ([]Format, error) {
	var out []Format
	for _, raw := range strings.Split(list, ",") {
		name := Format(strings.ToLower(strings.TrimSpace(raw)))
		if name == "" {
			continue
		}
		if !name.Valid() {
			return nil, fmt.Errorf("unsupported export format %q", raw)
		}
		out = append(out, name)
	}
	return out, nil
}

// Valid reports whether the worker can render f.
func (f Format) Valid() bool {
	switch f {
	case FormatJSON, FormatCSV, FormatPNG, FormatAVI:
		return true
	}
	return false
}

// ExportStatus describes the lifecycle stage of an export request.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

// Terminal reports whether no further transitions follow.
func (s ExportStatus) Terminal() bool {
	return s == ExportStatusSucceeded || s == ExportStatusFailed
}

// ExportArtifact captures a stored artifact.
type ExportArtifact struct {
	ID          string         `json:"id"`
	Format      Format         `json:"format"`
	ContentType string         `json:"content_type"`
	SizeBytes   int64          `json:"size_bytes"`
	URL         string         `json:"url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ExportRecord tracks an export request and the artifacts it produced.
type ExportRecord struct {
	ID          string           `json:"id"`
	RunID       string           `json:"run_id"`
	Formats     []Format         `json:"formats"`
	Status      ExportStatus     `json:"status"`
	Error       string           `json:"error,omitempty"`
	Artifacts   []ExportArtifact `json:"artifacts,omitempty"`
	RequestedBy string           `json:"requested_by"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// ExportInput is an enqueue request. Frames are not persisted with runs, so
// animation exports receive them from the caller.
type ExportInput struct {
	RunID       string
	Formats     []Format
	RequestedBy string
	Frames      []domain.Snapshot
}

// RunSource resolves stored runs. core.Service satisfies it.
type RunSource interface {
	GetRun(ctx context.Context, id string) (domain.Run, error)
}

// AuditLogger records export audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry captures one export status change.
type AuditEntry struct {
	ID         string         `json:"id"`
	ExportID   string         `json:"export_id"`
	Action     string         `json:"action"`
	Actor      string         `json:"actor"`
	RunID      string         `json:"run_id"`
	Status     ExportStatus   `json:"status"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

const auditAction = "run_export"

// ErrQueueFull is returned when the worker backlog is saturated.
var ErrQueueFull = errors.New("export queue full")

// Worker executes run exports asynchronously.
type Worker struct {
	runs   RunSource
	store  ObjectStore
	audit  AuditLogger
	logger core.Logger
	now    func() time.Time
	newID  func() string

	queue chan exportTask
	mu    sync.RWMutex
	jobs  map[string]*ExportRecord

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// WorkerOption customises a Worker.
type WorkerOption func(*Worker)

// WithWorkerLogger installs a structured logger.
func WithWorkerLogger(logger core.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithWorkerClock overrides the time source.
func WithWorkerClock(now func() time.Time) WorkerOption {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
	}
}

// WithQueueSize sets the backlog capacity (default 32).
func WithQueueSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.queue = make(chan exportTask, n)
		}
	}
}

type exportTask struct {
	id    string
	input ExportInput
}

type renderedArtifact struct {
	Artifact ExportArtifact
	Payload  []byte
}

// NewWorker constructs an export worker. A nil store keeps rendered artifacts
// unstored; a nil audit logger disables auditing.
func NewWorker(runs RunSource, store ObjectStore, audit AuditLogger, opts ...WorkerOption) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		runs:   runs,
		store:  store,
		audit:  audit,
		logger: core.NewNoopLogger(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		queue:  make(chan exportTask, 32),
		jobs:   make(map[string]*ExportRecord),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for the loop to exit. Queued
// requests that were not started stay queued.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case task := <-w.queue:
			w.process(task)
		}
	}
}

// EnqueueExport schedules an export job and returns the queued record.
func (w *Worker) EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error) {
	if w.runs == nil {
		return ExportRecord{}, fmt.Errorf("export run source not configured")
	}
	if strings.TrimSpace(input.RunID) == "" {
		return ExportRecord{}, fmt.Errorf("run id required")
	}
	formats := input.Formats
	if len(formats) == 0 {
		formats = []Format{FormatJSON, FormatCSV}
	}
	uniq := make([]Format, 0, len(formats))
	seen := make(map[Format]struct{}, len(formats))
	for _, f := range formats {
		if _, dup := seen[f]; dup {
			continue
		}
		if !f.Valid() {
			return ExportRecord{}, fmt.Errorf("unsupported export format %q", f)
		}
		seen[f] = struct{}{}
		uniq = append(uniq, f)
	}

	id := w.newID()
	now := w.now()
	record := ExportRecord{
		ID:          id,
		RunID:       input.RunID,
		Formats:     uniq,
		Status:      ExportStatusQueued,
		RequestedBy: input.RequestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// mu is held until the queued entry is audited so the worker cannot
	// record a later status first.
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case w.queue <- exportTask{id: id, input: input}:
	default:
		return ExportRecord{}, ErrQueueFull
	}
	w.jobs[id] = &record
	queued := record.copy()
	w.record(ctx, queued, nil)
	return queued, nil
}

// GetExport returns a snapshot of the export record.
func (w *Worker) GetExport(id string) (ExportRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return ExportRecord{}, false
	}
	return record.copy(), true
}

// Wait polls until the export reaches a terminal status or ctx ends.
func (w *Worker) Wait(ctx context.Context, id string) (ExportRecord, error) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		record, ok := w.GetExport(id)
		if !ok {
			return ExportRecord{}, fmt.Errorf("export %s not found", id)
		}
		if record.Status.Terminal() {
			return record, nil
		}
		select {
		case <-ctx.Done():
			return record, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Worker) process(task exportTask) {
	if _, ok := w.GetExport(task.id); !ok {
		return
	}
	w.transition(task.id, ExportStatusRunning, "", nil)

	run, err := w.runs.GetRun(w.ctx, task.input.RunID)
	if err != nil {
		w.transition(task.id, ExportStatusFailed, fmt.Sprintf("resolve run: %v", err), nil)
		return
	}

	record, _ := w.GetExport(task.id)
	artifacts := make([]ExportArtifact, 0, len(record.Formats))
	for _, format := range record.Formats {
		rendered, err := materialize(format, run, task.input.Frames)
		if err != nil {
			w.transition(task.id, ExportStatusFailed, err.Error(), nil)
			return
		}
		rendered.Artifact.ID = artifactKey(run.ID, task.id, format)
		rendered.Artifact.CreatedAt = w.now()
		if w.store == nil {
			artifacts = append(artifacts, rendered.Artifact)
			continue
		}
		stored, err := w.store.Put(w.ctx, rendered.Artifact.ID, rendered.Payload, rendered.Artifact.ContentType, rendered.Artifact.Metadata)
		if err != nil {
			w.transition(task.id, ExportStatusFailed, fmt.Sprintf("store artifact failed: %v", err), nil)
			return
		}
		stored.Format = format
		if stored.ContentType == "" {
			stored.ContentType = rendered.Artifact.ContentType
		}
		if stored.SizeBytes == 0 {
			stored.SizeBytes = rendered.Artifact.SizeBytes
		}
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = rendered.Artifact.CreatedAt
		}
		stored.Metadata = mergeMetadata(rendered.Artifact.Metadata, stored.Metadata)
		artifacts = append(artifacts, stored)
	}
	w.transition(task.id, ExportStatusSucceeded, "", artifacts)
}

func artifactKey(runID, exportID string, format Format) string {
	return fmt.Sprintf("%s%s.%s", ArtifactPrefix(runID), exportID, format)
}

// ArtifactPrefix is the key prefix shared by every artifact of a run.
func ArtifactPrefix(runID string) string {
	return "runs/" + runID + "/"
}

func (w *Worker) transition(id string, status ExportStatus, message string, artifacts []ExportArtifact) {
	now := w.now()
	w.mu.Lock()
	record, ok := w.jobs[id]
	if !ok {
		w.mu.Unlock()
		return
	}
	record.Status = status
	record.Error = message
	record.UpdatedAt = now
	if status.Terminal() {
		record.CompletedAt = &now
	}
	if status == ExportStatusSucceeded {
		record.Artifacts = artifacts
	}
	snapshot := record.copy()
	w.mu.Unlock()

	var meta map[string]any
	switch {
	case status == ExportStatusFailed:
		meta = map[string]any{"error": message}
		w.logger.Warn("export failed", "export", id, "run", snapshot.RunID, "error", message)
	case status == ExportStatusSucceeded:
		meta = map[string]any{"artifacts": len(artifacts)}
		w.logger.Info("export succeeded", "export", id, "run", snapshot.RunID, "artifacts", len(artifacts))
	}
	w.record(w.ctx, snapshot, meta)
}

func (w *Worker) record(ctx context.Context, rec ExportRecord, meta map[string]any) {
	if w.audit == nil {
		return
	}
	w.audit.Record(ctx, AuditEntry{
		ID:         w.newID(),
		ExportID:   rec.ID,
		Action:     auditAction,
		Actor:      rec.RequestedBy,
		RunID:      rec.RunID,
		Status:     rec.Status,
		Metadata:   meta,
		OccurredAt: rec.UpdatedAt,
	})
}

func (r ExportRecord) copy() ExportRecord {
	dup := r
	dup.Formats = append([]Format(nil), r.Formats...)
	if len(r.Artifacts) > 0 {
		dup.Artifacts = make([]ExportArtifact, len(r.Artifacts))
		for i, a := range r.Artifacts {
			a.Metadata = cloneMap(a.Metadata)
			dup.Artifacts[i] = a
		}
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		dup.CompletedAt = &t
	}
	return dup
}

func mergeMetadata(base, extra map[string]any) map[string]any {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
