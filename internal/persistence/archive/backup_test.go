package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestBackupBeforeOverwrite_CompressesAndRoundTrips(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "Saves", "MyFirstSave.json")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	want := []byte(`{"metadata":[{"key":"points","value":"150"}],"entries":[]}`)
	if err := os.WriteFile(src, want, 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	backups := filepath.Join(dir, "Saves", "backups")
	dst, err := BackupBeforeOverwrite(src, backups, 3)
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if dst == "" {
		t.Fatalf("expected a backup path")
	}
	got, err := ReadBackup(dst)
	if err != nil {
		t.Fatalf("ReadBackup: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("backup content mismatch: got=%q want=%q", got, want)
	}

	list, err := ListBackups(backups, "MyFirstSave.json")
	if err != nil || len(list) != 1 || list[0].Path != dst {
		t.Fatalf("ListBackups=%+v,%v", list, err)
	}
}

func TestBackupBeforeOverwrite_MissingSourceIsNoop(t *testing.T) {
	dir := t.TempDir()
	dst, err := BackupBeforeOverwrite(filepath.Join(dir, "none.json"), filepath.Join(dir, "b"), 3)
	if err != nil || dst != "" {
		t.Fatalf("dst=%q err=%v", dst, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "b")); !os.IsNotExist(err) {
		t.Fatalf("backup dir should not be created")
	}
}

func TestBackupBeforeOverwrite_PrunesOldest(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "slot.json")
	backups := filepath.Join(dir, "backups")
	for i := 0; i < 4; i++ {
		if err := os.WriteFile(src, []byte{byte('a' + i)}, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := BackupBeforeOverwrite(src, backups, 2); err != nil {
			t.Fatalf("backup %d: %v", i, err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	list, err := ListBackups(backups, "slot")
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len=%d want 2", len(list))
	}
	newest, err := ReadBackup(list[0].Path)
	if err != nil || string(newest) != "d" {
		t.Fatalf("newest=%q err=%v", newest, err)
	}
}

func TestListBackups_IgnoresOtherSaves(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"a", "a-b"} {
		src := filepath.Join(dir, n+".json")
		if err := os.WriteFile(src, []byte(n), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := BackupBeforeOverwrite(src, filepath.Join(dir, "bk"), 5); err != nil {
			t.Fatalf("backup: %v", err)
		}
	}
	list, _ := ListBackups(filepath.Join(dir, "bk"), "a")
	if len(list) != 1 {
		t.Fatalf("len=%d want 1: %+v", len(list), list)
	}
}

func TestBackupBytes_StoresGivenContents(t *testing.T) {
	dir := t.TempDir()
	dst, err := BackupBytes("Saves/FromKV.json", []byte(`{"entries":[]}`), dir, 1)
	if err != nil || dst == "" {
		t.Fatalf("dst=%q err=%v", dst, err)
	}
	got, err := ReadBackup(dst)
	if err != nil || string(got) != `{"entries":[]}` {
		t.Fatalf("got=%q err=%v", got, err)
	}
	if list, _ := ListBackups(dir, "FromKV"); len(list) != 1 {
		t.Fatalf("list=%+v", list)
	}
}
