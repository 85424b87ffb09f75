package volumetric

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
}

// touchFuture bumps the file's mod time past the watcher's last-seen stamp so
// back-to-back writes within filesystem timestamp resolution still register.
func touchFuture(t *testing.T, path string, offset time.Duration) {
	t.Helper()
	stamp := time.Now().Add(offset)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("touching config file: %v", err)
	}
}

func TestForceReloadAppliesValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fog.json")
	writeConfigFile(t, path, `{"base_density": 0.08, "blend_alpha": 0.5}`)

	store := NewConfigStore(nil)
	w := NewConfigWatcher(path, store)

	if err := w.ForceReload(); err != nil {
		t.Fatalf("ForceReload failed: %v", err)
	}
	cfg := store.Current()
	if cfg.BaseFogDensity != 0.08 {
		t.Fatalf("base density not applied, got %g", cfg.BaseFogDensity)
	}
	if cfg.TemporalBlend != 0.5 {
		t.Fatalf("temporal blend not applied, got %g", cfg.TemporalBlend)
	}
	// Fields absent from the file inherit the prior snapshot.
	if cfg.GridWidth != DefaultGridWidth {
		t.Fatalf("missing fields must inherit, grid width %d", cfg.GridWidth)
	}
}

func TestReloadRejectsInvalidFileWholesale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fog.json")
	writeConfigFile(t, path, `{"base_density": 0.08}`)

	store := NewConfigStore(nil)
	w := NewConfigWatcher(path, store)
	if err := w.ForceReload(); err != nil {
		t.Fatalf("ForceReload failed: %v", err)
	}

	// One bad field rejects the whole file, including its valid fields.
	writeConfigFile(t, path, `{"base_density": 0.2, "blend_alpha": 1.2}`)
	if err := w.ForceReload(); err == nil {
		t.Fatal("expected the out-of-range blend to reject the reload")
	}
	cfg := store.Current()
	if cfg.BaseFogDensity != 0.08 {
		t.Fatalf("rejected reload must keep the previous snapshot, density %g", cfg.BaseFogDensity)
	}
}

func TestReloadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fog.json")
	writeConfigFile(t, path, `{"base_density": 0.08}`)

	store := NewConfigStore(nil)
	w := NewConfigWatcher(path, store)
	if err := w.ForceReload(); err != nil {
		t.Fatalf("ForceReload failed: %v", err)
	}

	writeConfigFile(t, path, `{"base_density": `)
	if err := w.ForceReload(); err == nil {
		t.Fatal("expected malformed JSON to reject the reload")
	}
	if store.Current().BaseFogDensity != 0.08 {
		t.Fatal("rejected reload must keep the previous snapshot")
	}
}

func TestReloadToleratesLineComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fog.json")
	writeConfigFile(t, path, `{
  // tuned for the harbor scene
  "base_density": 0.04,
  "color": [0.5, 0.6, 0.7] // cool blue
}`)

	store := NewConfigStore(nil)
	w := NewConfigWatcher(path, store)
	if err := w.ForceReload(); err != nil {
		t.Fatalf("ForceReload failed: %v", err)
	}
	cfg := store.Current()
	if cfg.BaseFogDensity != 0.04 {
		t.Fatalf("commented file not applied, density %g", cfg.BaseFogDensity)
	}
	if cfg.FogColor != ([3]float32{0.5, 0.6, 0.7}) {
		t.Fatalf("trailing comment broke parsing, color %v", cfg.FogColor)
	}
}

func TestCheckPollsOnCadence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fog.json")
	writeConfigFile(t, path, `{"base_density": 0.09}`)
	touchFuture(t, path, time.Second)

	store := NewConfigStore(nil)
	w := NewConfigWatcher(path, store, WithCheckInterval(5))

	// Below the cadence nothing is stat'd.
	for i := 0; i < 4; i++ {
		w.Check()
		if store.Current().BaseFogDensity == 0.09 {
			t.Fatalf("check %d loaded the file before the cadence", i+1)
		}
	}
	w.Check()
	if store.Current().BaseFogDensity != 0.09 {
		t.Fatal("the cadence check should have loaded the file")
	}
}

func TestCheckDoesNotRetryRejectedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fog.json")
	writeConfigFile(t, path, `{"blend_alpha": 1.2}`)
	touchFuture(t, path, time.Second)

	store := NewConfigStore(nil)
	w := NewConfigWatcher(path, store, WithCheckInterval(1))

	w.Check() // rejected
	before := store.Current()
	w.Check() // same mod time: no retry
	if store.Current() != before {
		t.Fatal("an unchanged rejected file must not be retried")
	}

	writeConfigFile(t, path, `{"blend_alpha": 0.6}`)
	touchFuture(t, path, 2*time.Second)
	w.Check()
	if store.Current().TemporalBlend != 0.6 {
		t.Fatalf("a changed file must be retried, blend %g", store.Current().TemporalBlend)
	}
}

func TestRecreateFlagOnGridChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fog.json")
	writeConfigFile(t, path, `{"base_density": 0.05}`)

	store := NewConfigStore(nil)
	w := NewConfigWatcher(path, store)

	if err := w.ForceReload(); err != nil {
		t.Fatalf("ForceReload failed: %v", err)
	}
	if w.ConsumeRecreateFlag() {
		t.Fatal("a reload without a grid change must not flag recreation")
	}

	writeConfigFile(t, path, `{"width": 64, "height": 64, "depth": 64}`)
	if err := w.ForceReload(); err != nil {
		t.Fatalf("ForceReload failed: %v", err)
	}
	if !w.ConsumeRecreateFlag() {
		t.Fatal("a grid change must flag recreation")
	}
	if w.ConsumeRecreateFlag() {
		t.Fatal("the flag must clear once consumed")
	}
}

func TestCheckIgnoresMissingFile(t *testing.T) {
	store := NewConfigStore(nil)
	w := NewConfigWatcher(filepath.Join(t.TempDir(), "missing.json"), store, WithCheckInterval(1))

	w.Check()
	if store.Current().GridWidth != DefaultGridWidth {
		t.Fatal("a missing file must leave the snapshot untouched")
	}
}
