package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/compiler"
	"github.com/GriffinCanCode/EnvForge/backend/internal/shared/id"
	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/zstd"
)

const snapshotExt = ".json.zst"

// ErrInvalidID is returned for ids that are not session ULIDs.
var ErrInvalidID = errors.New("invalid session id")

// Record is a persisted session.
type Record struct {
	ID        id.SessionID       `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	SavedAt   time.Time          `json:"saved_at"`
	Compiler  *compiler.Snapshot `json:"compiler"`
}

// Store persists session records.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	Load(ctx context.Context, sessionID id.SessionID) (*Record, error)
	List(ctx context.Context) ([]id.SessionID, error)
	Delete(ctx context.Context, sessionID id.SessionID) error
}

// FileStore keeps one zstd-compressed JSON file per session.
type FileStore struct {
	dir     string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &FileStore{dir: dir, encoder: enc, decoder: dec}, nil
}

// Dir returns the snapshot directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(sessionID id.SessionID) string {
	return filepath.Join(s.dir, sessionID.String()+snapshotExt)
}

// Save writes rec atomically.
func (s *FileStore) Save(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !rec.ID.Valid() {
		return fmt.Errorf("save %q: %w", rec.ID, ErrInvalidID)
	}
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	compressed := s.encoder.EncodeAll(data, make([]byte, 0, len(data)/2))

	tmp, err := os.CreateTemp(s.dir, rec.ID.String()+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(rec.ID)); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Load reads a record.
func (s *FileStore) Load(ctx context.Context, sessionID id.SessionID) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !sessionID.Valid() {
		return nil, fmt.Errorf("load %q: %w", sessionID, ErrInvalidID)
	}
	compressed, err := os.ReadFile(s.path(sessionID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	data, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
	}
	return decodeRecord(data)
}

// List returns stored session ids, oldest first.
func (s *FileStore) List(ctx context.Context) ([]id.SessionID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	var out []id.SessionID
	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), snapshotExt)
		if !ok || entry.IsDir() {
			continue
		}
		if sid := id.SessionID(name); sid.Valid() {
			out = append(out, sid)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Delete removes a record.
func (s *FileStore) Delete(ctx context.Context, sessionID id.SessionID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !sessionID.Valid() {
		return fmt.Errorf("delete %q: %w", sessionID, ErrInvalidID)
	}
	err := os.Remove(s.path(sessionID))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", sessionID, ErrNotFound)
	}
	return err
}

// Close releases the decoder.
func (s *FileStore) Close() error {
	s.decoder.Close()
	return s.encoder.Close()
}

// MemoryStore keeps encoded records in memory.
type MemoryStore struct {
	records sync.Map
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save stores an encoded copy of rec.
func (s *MemoryStore) Save(_ context.Context, rec *Record) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	s.records.Store(rec.ID, data)
	return nil
}

// Load decodes a stored record.
func (s *MemoryStore) Load(_ context.Context, sessionID id.SessionID) (*Record, error) {
	data, ok := s.records.Load(sessionID)
	if !ok {
		return nil, fmt.Errorf("load %s: %w", sessionID, ErrNotFound)
	}
	return decodeRecord(data.([]byte))
}

// List returns stored session ids, oldest first.
func (s *MemoryStore) List(_ context.Context) ([]id.SessionID, error) {
	var out []id.SessionID
	s.records.Range(func(key, _ any) bool {
		out = append(out, key.(id.SessionID))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Delete removes a record.
func (s *MemoryStore) Delete(_ context.Context, sessionID id.SessionID) error {
	if _, ok := s.records.LoadAndDelete(sessionID); !ok {
		return fmt.Errorf("delete %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

func encodeRecord(rec *Record) ([]byte, error) {
	data, err := sonic.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	return data, nil
}

func decodeRecord(data []byte) (*Record, error) {
	var rec Record
	if err := sonic.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if rec.Compiler == nil {
		return nil, fmt.Errorf("session %s has no compiler state", rec.ID)
	}
	return &rec, nil
}
