package instrument

import (
	"path/filepath"
	"testing"

	"github.com/probekit/probekit/internal/codegen"
)

func mustNew(t *testing.T, file string, line int, captures []string) Instrument {
	t.Helper()
	in, err := New(file, line, captures, codegen.JavaScript)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return in
}

func TestNewResolvesAbsolutePath(t *testing.T) {
	in := mustNew(t, "some/relative.js", 3, nil)
	if !filepath.IsAbs(in.File) {
		t.Errorf("File = %q, want absolute", in.File)
	}
	if in.ID == "" {
		t.Error("ID is empty")
	}
	if in.Captures == nil {
		t.Error("nil captures should normalize to an empty slice")
	}
	if in.Language != codegen.JavaScript {
		t.Errorf("Language = %v, want JavaScript", in.Language)
	}
}

func TestNewDetectsLanguageFromExtension(t *testing.T) {
	in := mustNew(t, "script.py", 1, nil)
	if in.Language != codegen.Python {
		t.Errorf("Language = %v, want Python", in.Language)
	}
}

func TestNewIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		in := mustNew(t, "a.js", 1, nil)
		if seen[in.ID] {
			t.Fatalf("duplicate id %s", in.ID)
		}
		seen[in.ID] = true
	}
}

func TestLocation(t *testing.T) {
	in := mustNew(t, "app.ts", 42, []string{"x"})
	want := in.File + ":42"
	if got := in.Location(); got != want {
		t.Errorf("Location() = %q, want %q", got, want)
	}
}

func TestRegistryAddGetRemove(t *testing.T) {
	r := NewRegistry()
	in := mustNew(t, "a.js", 1, nil)

	r.Add(in)
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
	got, ok := r.Get(in.ID)
	if !ok || got.ID != in.ID {
		t.Fatalf("Get(%s) = (%v, %v)", in.ID, got, ok)
	}

	if !r.Remove(in.ID) {
		t.Error("Remove returned false for a present id")
	}
	if r.Remove(in.ID) {
		t.Error("Remove returned true for an absent id")
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d after removal, want 0", r.Len())
	}
}

func TestRegistryAllPreservesInsertionOrder(t *testing.T) {
	r := NewRegistry()
	var ids []string
	for i := 0; i < 5; i++ {
		in := mustNew(t, "a.js", i+1, nil)
		r.Add(in)
		ids = append(ids, in.ID)
	}
	// Removing from the middle must not disturb the rest of the order.
	r.Remove(ids[2])
	want := []string{ids[0], ids[1], ids[3], ids[4]}

	all := r.All()
	if len(all) != len(want) {
		t.Fatalf("All returned %d instruments, want %d", len(all), len(want))
	}
	for i, in := range all {
		if in.ID != want[i] {
			t.Errorf("All[%d] = %s, want %s", i, in.ID, want[i])
		}
	}
}

func TestRegistryByFile(t *testing.T) {
	r := NewRegistry()
	a1 := mustNew(t, "a.js", 1, nil)
	b := mustNew(t, "b.js", 2, nil)
	a2 := mustNew(t, "a.js", 3, nil)
	for _, in := range []Instrument{a1, b, a2} {
		r.Add(in)
	}

	got := r.ByFile(a1.File)
	if len(got) != 2 {
		t.Fatalf("ByFile returned %d instruments, want 2", len(got))
	}
	if got[0].ID != a1.ID || got[1].ID != a2.ID {
		t.Errorf("ByFile order = [%s %s], want [%s %s]", got[0].ID, got[1].ID, a1.ID, a2.ID)
	}

	if out := r.ByFile(filepath.Join(t.TempDir(), "none.js")); len(out) != 0 {
		t.Errorf("ByFile for an untargeted path returned %d instruments", len(out))
	}
}

func TestRegistryMarkStale(t *testing.T) {
	r := NewRegistry()
	a1 := mustNew(t, "a.js", 1, nil)
	a2 := mustNew(t, "a.js", 5, nil)
	b := mustNew(t, "b.js", 1, nil)
	for _, in := range []Instrument{a1, a2, b} {
		r.Add(in)
	}

	if n := r.MarkStale(a1.File); n != 2 {
		t.Fatalf("MarkStale flagged %d instruments, want 2", n)
	}
	// Marking again is a no-op: already-stale instruments are not recounted.
	if n := r.MarkStale(a1.File); n != 0 {
		t.Errorf("second MarkStale flagged %d instruments, want 0", n)
	}

	for _, id := range []string{a1.ID, a2.ID} {
		in, _ := r.Get(id)
		if !in.Stale {
			t.Errorf("instrument %s not marked stale", id)
		}
	}
	if in, _ := r.Get(b.ID); in.Stale {
		t.Error("instrument in a different file was marked stale")
	}
}

func TestRegistryClear(t *testing.T) {
	r := NewRegistry()
	r.Add(mustNew(t, "a.js", 1, nil))
	r.Add(mustNew(t, "b.js", 2, nil))

	r.Clear()
	if r.Len() != 0 {
		t.Errorf("Len = %d after Clear, want 0", r.Len())
	}
	if all := r.All(); len(all) != 0 {
		t.Errorf("All returned %d instruments after Clear", len(all))
	}
}
