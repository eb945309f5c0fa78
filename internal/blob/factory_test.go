package blob

import (
	"context"
	"testing"
)

func TestOpenSelectsDriverFromEnv(t *testing.T) {
	t.Setenv("CONTIGALIAS_BLOB_DRIVER", "memory")
	store, err := Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Driver() != DriverMemory {
		t.Fatalf("driver = %s", store.Driver())
	}
}

func TestOpenDefaultsToFilesystem(t *testing.T) {
	t.Setenv("CONTIGALIAS_BLOB_DRIVER", "")
	t.Setenv("CONTIGALIAS_BLOB_FS_ROOT", t.TempDir())
	store, err := Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Driver() != DriverFilesystem {
		t.Fatalf("driver = %s", store.Driver())
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Setenv("CONTIGALIAS_BLOB_DRIVER", "tape")
	if _, err := Open(context.Background()); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
