package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

const reportBody = "accession\tsequence name\nCM000663.2\t1\n"

func stores(t *testing.T) map[string]Store {
	t.Helper()
	fsStore, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("filesystem store: %v", err)
	}
	return map[string]Store{
		"memory": NewMemory(),
		"fs":     fsStore,
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := "reports/GCA_000001405.28_sequence_report.txt"
			opts := PutOptions{ContentType: "text/tab-separated-values", Metadata: map[string]string{"accession": "GCA_000001405.28"}}
			put, err := store.Put(ctx, key, strings.NewReader(reportBody), opts)
			if err != nil {
				t.Fatalf("put: %v", err)
			}
			if put.Size != int64(len(reportBody)) || put.ETag == "" {
				t.Fatalf("put info = %+v", put)
			}

			info, rc, err := store.Get(ctx, key)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			data, err := io.ReadAll(rc)
			_ = rc.Close()
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(data) != reportBody {
				t.Fatalf("payload mismatch: %q", data)
			}
			if info.ContentType != opts.ContentType || info.Metadata["accession"] != "GCA_000001405.28" {
				t.Fatalf("info mismatch: %+v", info)
			}

			head, err := store.Head(ctx, key)
			if err != nil || head.Size != put.Size {
				t.Fatalf("head: %+v %v", head, err)
			}
		})
	}
}

func TestPutReplacesExisting(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := "reports/refresh.txt"
			if _, err := store.Put(ctx, key, strings.NewReader("stale"), PutOptions{}); err != nil {
				t.Fatalf("first put: %v", err)
			}
			if _, err := store.Put(ctx, key, strings.NewReader("fresh"), PutOptions{}); err != nil {
				t.Fatalf("second put: %v", err)
			}
			_, rc, err := store.Get(ctx, key)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			data, _ := io.ReadAll(rc)
			_ = rc.Close()
			if string(data) != "fresh" {
				t.Fatalf("put did not replace: %q", data)
			}
		})
	}
}

func TestMissingKey(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, _, err := store.Get(ctx, "reports/nope.txt"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("get missing: %v", err)
			}
			if _, err := store.Head(ctx, "reports/nope.txt"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("head missing: %v", err)
			}
			existed, err := store.Delete(ctx, "reports/nope.txt")
			if err != nil || existed {
				t.Fatalf("delete missing: existed=%v err=%v", existed, err)
			}
		})
	}
}

func TestDeleteAndList(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			keys := []string{"reports/a.txt", "reports/b.txt", "other/c.txt"}
			for _, key := range keys {
				if _, err := store.Put(ctx, key, strings.NewReader(reportBody), PutOptions{}); err != nil {
					t.Fatalf("put %s: %v", key, err)
				}
			}
			infos, err := store.List(ctx, "reports/")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(infos) != 2 || infos[0].Key != "reports/a.txt" || infos[1].Key != "reports/b.txt" {
				t.Fatalf("list = %+v", infos)
			}

			existed, err := store.Delete(ctx, "reports/a.txt")
			if err != nil || !existed {
				t.Fatalf("delete: existed=%v err=%v", existed, err)
			}
			infos, err = store.List(ctx, "reports/")
			if err != nil || len(infos) != 1 {
				t.Fatalf("list after delete = %+v err=%v", infos, err)
			}
		})
	}
}

func TestFilesystemRejectsTraversalKeys(t *testing.T) {
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("filesystem store: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"", "  ", "../escape.txt", "/abs.txt", "a/../../escape.txt"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), PutOptions{}); err == nil {
			t.Fatalf("key %q must be rejected", key)
		}
	}
}

func TestDrivers(t *testing.T) {
	fsStore, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("filesystem store: %v", err)
	}
	if NewMemory().Driver() != DriverMemory {
		t.Fatalf("memory driver mismatch")
	}
	if fsStore.Driver() != DriverFilesystem {
		t.Fatalf("filesystem driver mismatch")
	}
}
