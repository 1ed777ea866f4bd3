package wal

import (
	"os"
	"path/filepath"
	"testing"
)

type record struct {
	Seq  int    `json:"seq"`
	Note string `json:"note"`
}

func readRecords(t *testing.T, w *WAL) []record {
	t.Helper()
	var out []record
	err := w.ReadAll(func(raw []byte) error {
		var r record
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return out
}

func TestWriteAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.wal")

	w, err := NewWAL(path)
	if err != nil {
		t.Fatalf("NewWAL: %v", err)
	}
	for i := 1; i <= 3; i++ {
		if err := w.Write(record{Seq: i, Note: "n"}); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	w, err = NewWAL(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer w.Close()

	got := readRecords(t, w)
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	for i, r := range got {
		if r.Seq != i+1 {
			t.Errorf("record %d: seq %d", i, r.Seq)
		}
	}

	// 讀完之後仍然可以繼續 append
	if err := w.Write(record{Seq: 4}); err != nil {
		t.Fatalf("Write after ReadAll: %v", err)
	}
	if got := readRecords(t, w); len(got) != 4 {
		t.Fatalf("expected 4 records, got %d", len(got))
	}
}

func TestReadAllIgnoresTornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.wal")
	content := "{\"seq\":1,\"note\":\"a\"}\n{\"seq\":2,\"no"
	if err := os.WriteFile(path, []byte(content), FileModePrivate); err != nil {
		t.Fatal(err)
	}

	w, err := NewWAL(path, WithoutSync())
	if err != nil {
		t.Fatalf("NewWAL: %v", err)
	}
	defer w.Close()

	got := readRecords(t, w)
	if len(got) != 1 || got[0].Seq != 1 {
		t.Fatalf("unexpected records: %+v", got)
	}
}

func TestReadAllRejectsCorruptedRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.wal")
	if err := os.WriteFile(path, []byte("{\"seq\":1}\nnot-json\n"), FileModePrivate); err != nil {
		t.Fatal(err)
	}
	w, err := NewWAL(path)
	if err != nil {
		t.Fatalf("NewWAL: %v", err)
	}
	defer w.Close()

	if err := w.ReadAll(func([]byte) error { return nil }); err == nil {
		t.Fatal("expected error for corrupted record")
	}
}

func TestClosed(t *testing.T) {
	w, err := NewWAL(filepath.Join(t.TempDir(), "ledger.wal"))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := w.Write(record{Seq: 1}); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
