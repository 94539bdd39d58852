package sink

import (
	"path/filepath"
	"testing"
)

func TestOpenSelectsDriver(t *testing.T) {
	t.Setenv("BUNDLEINDEX_SINK_DRIVER", "memory")
	s, err := Open()
	if err != nil {
		t.Fatalf("open memory sink: %v", err)
	}
	if s.Driver() != DriverMemory {
		t.Fatalf("driver = %s, want memory", s.Driver())
	}

	t.Setenv("BUNDLEINDEX_SINK_DRIVER", "sqlite")
	t.Setenv("BUNDLEINDEX_SINK_SQLITE_PATH", filepath.Join(t.TempDir(), "index.db"))
	s, err = Open()
	if err != nil {
		t.Fatalf("open sqlite sink: %v", err)
	}
	if s.Driver() != DriverSQLite {
		t.Fatalf("driver = %s, want sqlite", s.Driver())
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Setenv("BUNDLEINDEX_SINK_DRIVER", "dynamo")
	if _, err := Open(); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
