package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

const backupExt = ".json.zst"

type Backup struct {
	Path      string
	Name      string
	CreatedAt time.Time
}

// BackupBeforeOverwrite compresses the current contents of savePath into
// dir/<name>-<UTC timestamp>.json.zst and prunes backups of that save down to
// the newest keep. It is a no-op when savePath does not exist or keep <= 0.
func BackupBeforeOverwrite(savePath, dir string, keep int) (string, error) {
	if keep <= 0 {
		return "", nil
	}
	b, err := os.ReadFile(savePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return BackupBytes(savePath, b, dir, keep)
}

// BackupBytes stores data as a backup of the save at savePath, for saves
// whose previous contents did not come from the local filesystem.
func BackupBytes(savePath string, data []byte, dir string, keep int) (string, error) {
	if keep <= 0 {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	name := saveName(savePath)
	stamp := time.Now().UTC().Format("20060102T150405.000000000Z")
	dst := filepath.Join(dir, fmt.Sprintf("%s-%s%s", name, stamp, backupExt))
	if err := compressTo(dst, data); err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	if err := prune(dir, name, keep); err != nil {
		return dst, err
	}
	return dst, nil
}

func compressTo(dst string, data []byte) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	if _, err := enc.Write(data); err != nil {
		_ = enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return out.Close()
}

// ReadBackup returns the decompressed save document stored in path.
func ReadBackup(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return io.ReadAll(dec)
}

// ListBackups returns the backups of the named save in dir, newest first.
func ListBackups(dir, name string) ([]Backup, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	name = saveName(name)
	var out []Backup
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), backupExt) {
			continue
		}
		base := strings.TrimSuffix(e.Name(), backupExt)
		i := strings.LastIndex(base, "-")
		if i <= 0 || base[:i] != name {
			continue
		}
		ts, err := time.Parse("20060102T150405.000000000Z", base[i+1:])
		if err != nil {
			continue
		}
		out = append(out, Backup{Path: filepath.Join(dir, e.Name()), Name: name, CreatedAt: ts})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func prune(dir, name string, keep int) error {
	bs, err := ListBackups(dir, name)
	if err != nil {
		return err
	}
	for i := keep; i < len(bs); i++ {
		if err := os.Remove(bs[i].Path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func saveName(p string) string {
	base := filepath.Base(p)
	if ext := filepath.Ext(base); strings.EqualFold(ext, ".json") {
		base = base[:len(base)-len(ext)]
	}
	return base
}
