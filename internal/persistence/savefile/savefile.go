package savefile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"trenchline.gg/internal/persistence/gridcodec"
	"trenchline.gg/internal/persistence/kvstore"
)

var ErrNotFound = errors.New("save file not found")

const Ext = ".json"

// ResolvePath maps a bare save name onto dir, appending .json when missing.
// Absolute paths are used as given (still gaining the extension), so names
// from untrusted callers must be checked before they reach it.
func ResolvePath(dir, nameOrPath string) string {
	p := strings.TrimSpace(nameOrPath)
	if !strings.EqualFold(filepath.Ext(p), Ext) {
		p += Ext
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// Store reads and writes whole save documents by path.
type Store interface {
	Write(path string, b []byte) error
	Read(path string) ([]byte, error)
	Exists(path string) bool
}

// FileStore writes straight to the filesystem. The write is a single
// os.WriteFile; a crash mid-write can leave a truncated file.
type FileStore struct{}

func (FileStore) Write(path string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func (FileStore) Read(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return b, err
}

func (FileStore) Exists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

// KVStore keeps documents in the key-value store, keyed by path.
type KVStore struct {
	DB *kvstore.DB
}

func (s KVStore) Write(path string, b []byte) error {
	return s.DB.Set(context.Background(), path, string(b))
}

func (s KVStore) Read(path string) ([]byte, error) {
	v, ok, err := s.DB.Get(context.Background(), path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return []byte(v), nil
}

func (s KVStore) Exists(path string) bool {
	_, ok, err := s.DB.Get(context.Background(), path)
	return err == nil && ok
}

type Mode string

const (
	FallbackAuto   Mode = "auto"
	FallbackAlways Mode = "always"
	FallbackNever  Mode = "never"
)

// Fallback prefers the filesystem and falls back to the key-value store when
// the filesystem cannot be written, or always uses it in FallbackAlways mode.
type Fallback struct {
	Files Store
	KV    Store
	Mode  Mode
	Log   *log.Logger
}

func NewFallback(kv *kvstore.DB, mode Mode, logger *log.Logger) *Fallback {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	f := &Fallback{Files: FileStore{}, Mode: mode, Log: logger}
	if kv != nil {
		f.KV = KVStore{DB: kv}
	}
	if f.KV == nil {
		f.Mode = FallbackNever
	}
	return f
}

func (f *Fallback) Write(path string, b []byte) error {
	if f.Mode == FallbackAlways {
		return f.KV.Write(path, b)
	}
	err := f.Files.Write(path, b)
	if err == nil || f.Mode == FallbackNever {
		return err
	}
	f.Log.Printf("savefile: filesystem write %s failed (%v); using key-value store", path, err)
	return f.KV.Write(path, b)
}

func (f *Fallback) Read(path string) ([]byte, error) {
	if f.Mode == FallbackAlways {
		return f.KV.Read(path)
	}
	b, err := f.Files.Read(path)
	if err == nil || f.Mode == FallbackNever || !errors.Is(err, ErrNotFound) {
		return b, err
	}
	return f.KV.Read(path)
}

func (f *Fallback) Exists(path string) bool {
	if f.Mode != FallbackAlways && f.Files.Exists(path) {
		return true
	}
	return f.Mode != FallbackNever && f.KV.Exists(path)
}

// SaveToPath marshals doc and writes it through st.
func SaveToPath[T any](st Store, doc gridcodec.Document[T], path string) error {
	b, err := gridcodec.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal save: %w", err)
	}
	if err := st.Write(path, b); err != nil {
		return fmt.Errorf("write save %s: %w", path, err)
	}
	return nil
}

// LoadFromPath reads and validates the document at path.
func LoadFromPath[T any](st Store, path string) (gridcodec.Document[T], error) {
	b, err := st.Read(path)
	if err != nil {
		return gridcodec.Document[T]{}, err
	}
	doc, err := gridcodec.Unmarshal[T](b)
	if err != nil {
		return doc, fmt.Errorf("load save %s: %w", path, err)
	}
	return doc, nil
}
