package exports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"spreadsim/internal/blob"
	"spreadsim/internal/core"
)

// ObjectStore persists export artifacts.
type ObjectStore interface {
	// Put stores a new immutable object and fails if key exists.
	Put(ctx context.Context, key string, payload []byte, contentType string, metadata map[string]any) (ExportArtifact, error)
	// Get returns the artifact metadata and full payload bytes.
	Get(ctx context.Context, key string) (ExportArtifact, []byte, error)
	// Delete removes the object; returns true if it existed.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns artifacts whose IDs start with prefix, sorted by ID.
	List(ctx context.Context, prefix string) ([]ExportArtifact, error)
}

// BlobObjectStore adapts a blob.Store. Metadata values are flattened to
// strings since blob metadata is a flat string map.
type BlobObjectStore struct {
	store blob.Store
}

// NewBlobObjectStore wraps store.
func NewBlobObjectStore(store blob.Store) *BlobObjectStore {
	return &BlobObjectStore{store: store}
}

func (s *BlobObjectStore) Put(ctx context.Context, key string, payload []byte, contentType string, metadata map[string]any) (ExportArtifact, error) {
	info, err := s.store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: contentType,
		Metadata:    flattenMetadata(metadata),
	})
	if err != nil {
		return ExportArtifact{}, err
	}
	artifact := fromInfo(info)
	if url, err := s.store.URL(ctx, key, blob.URLOptions{}); err == nil {
		artifact.URL = url
	} else if !errors.Is(err, blob.ErrUnsupported) {
		return ExportArtifact{}, fmt.Errorf("artifact url: %w", err)
	}
	return artifact, nil
}

func (s *BlobObjectStore) Get(ctx context.Context, key string) (ExportArtifact, []byte, error) {
	info, rc, err := s.store.Get(ctx, key)
	if err != nil {
		return ExportArtifact{}, nil, err
	}
	defer rc.Close()
	payload, err := io.ReadAll(rc)
	if err != nil {
		return ExportArtifact{}, nil, err
	}
	return fromInfo(info), payload, nil
}

func (s *BlobObjectStore) Delete(ctx context.Context, key string) (bool, error) {
	return s.store.Delete(ctx, key)
}

func (s *BlobObjectStore) List(ctx context.Context, prefix string) ([]ExportArtifact, error) {
	infos, err := s.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]ExportArtifact, len(infos))
	for i, info := range infos {
		out[i] = fromInfo(info)
	}
	return out, nil
}

func fromInfo(info blob.Info) ExportArtifact {
	a := ExportArtifact{
		ID:          info.Key,
		Format:      formatOf(info.Key),
		ContentType: info.ContentType,
		SizeBytes:   info.Size,
		URL:         info.URL,
		CreatedAt:   info.LastModified,
	}
	if len(info.Metadata) > 0 {
		a.Metadata = make(map[string]any, len(info.Metadata))
		for k, v := range info.Metadata {
			a.Metadata[k] = v
		}
	}
	return a
}

// formatOf recovers the format from an artifact key extension.
func formatOf(key string) Format {
	f := Format(strings.TrimPrefix(path.Ext(key), "."))
	if !f.Valid() {
		return ""
	}
	return f
}

func flattenMetadata(in map[string]any) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = fmt.Sprint(v)
	}
	return out
}

// MemoryObjectStore is an in-memory ObjectStore for tests.
type MemoryObjectStore struct {
	mu      sync.RWMutex
	objects map[string]storedObject
}

type storedObject struct {
	artifact ExportArtifact
	payload  []byte
}

// NewMemoryObjectStore constructs an in-memory object store.
func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{objects: make(map[string]storedObject)}
}

func (s *MemoryObjectStore) Put(_ context.Context, key string, payload []byte, contentType string, metadata map[string]any) (ExportArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[key]; exists {
		return ExportArtifact{}, fmt.Errorf("object %s already exists", key)
	}
	artifact := ExportArtifact{
		ID:          key,
		Format:      formatOf(key),
		ContentType: contentType,
		SizeBytes:   int64(len(payload)),
		Metadata:    cloneMap(metadata),
		CreatedAt:   time.Now().UTC(),
		URL:         "mem:///" + key,
	}
	s.objects[key] = storedObject{artifact: artifact, payload: bytes.Clone(payload)}
	return copyArtifact(artifact), nil
}

func (s *MemoryObjectStore) Get(_ context.Context, key string) (ExportArtifact, []byte, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return ExportArtifact{}, nil, fmt.Errorf("object %s not found", key)
	}
	return copyArtifact(obj.artifact), bytes.Clone(obj.payload), nil
}

func (s *MemoryObjectStore) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed := s.objects[key]
	delete(s.objects, key)
	return existed, nil
}

func (s *MemoryObjectStore) List(_ context.Context, prefix string) ([]ExportArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ExportArtifact, 0, len(s.objects))
	for key, obj := range s.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, copyArtifact(obj.artifact))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func copyArtifact(a ExportArtifact) ExportArtifact {
	a.Metadata = cloneMap(a.Metadata)
	return a
}

// MemoryAuditLog captures audit entries in memory.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Record stores an audit entry.
func (l *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a copy of recorded audit entries.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]AuditEntry(nil), l.entries...)
}

// LoggerAuditLog writes audit entries to a structured logger at debug level.
type LoggerAuditLog struct {
	Logger core.Logger
}

func (l LoggerAuditLog) Record(_ context.Context, entry AuditEntry) {
	if l.Logger == nil {
		return
	}
	l.Logger.Debug("export audit", "export", entry.ExportID, "run", entry.RunID,
		"status", entry.Status, "actor", entry.Actor)
}
