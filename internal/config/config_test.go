package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := c.Snapshot()
	want := Defaults()
	if got.StorageCapClass != want.StorageCapClass {
		t.Fatalf("got %+v, want defaults %+v", got, want)
	}
	if got.Paused {
		t.Fatal("expected paused=false default")
	}
	if !got.SanitizeURLParams {
		t.Fatal("expected sanitize_url_params=true default")
	}
}

func TestSetPausedPersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.SetPaused(true); err != nil {
		t.Fatalf("SetPaused: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.Snapshot().Paused {
		t.Fatal("expected persisted paused=true to survive reload")
	}
}

func TestSubscribeReceivesChange(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ch := c.Subscribe()

	if err := c.SetStorageCapClass(Cap1GB); err != nil {
		t.Fatalf("SetStorageCapClass: %v", err)
	}

	select {
	case change := <-ch:
		if change.Key != "storage_cap_class" {
			t.Fatalf("expected key storage_cap_class, got %q", change.Key)
		}
		if change.Settings.StorageCapClass != Cap1GB {
			t.Fatalf("expected Cap1GB, got %v", change.Settings.StorageCapClass)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change notification")
	}
}

func TestCapClassBytes(t *testing.T) {
	cases := map[CapClass]int64{
		Cap100MB: 100 << 20,
		Cap250MB: 250 << 20,
		Cap500MB: 500 << 20,
		Cap1GB:   1 << 30,
		Cap2GB:   2 << 30,
	}
	for cc, want := range cases {
		if got := cc.Bytes(); got != want {
			t.Errorf("%s.Bytes() = %d, want %d", cc, got, want)
		}
	}
}
