package registry

import "testing"

type fakeEntry struct{ closed bool }

func (f *fakeEntry) Close() error {
	f.closed = true
	return nil
}

func TestInMemoryRegistryPutGet(t *testing.T) {
	r := NewInMemoryRegistry()
	e := &fakeEntry{}
	r.Put("a", e)

	got, ok := r.Get("a")
	if !ok || got != e {
		t.Fatalf("got %v, %v, want %v, true", got, ok, e)
	}
}

func TestInMemoryRegistryGetMissing(t *testing.T) {
	r := NewInMemoryRegistry()
	_, ok := r.Get("missing")
	if ok {
		t.Fatal("expected ok=false for missing id")
	}
}

func TestInMemoryRegistryPutReplaces(t *testing.T) {
	r := NewInMemoryRegistry()
	first := &fakeEntry{}
	second := &fakeEntry{}
	r.Put("a", first)
	r.Put("a", second)

	got, _ := r.Get("a")
	if got != second {
		t.Fatalf("got %v, want replacement %v", got, second)
	}
}

func TestInMemoryRegistryRemove(t *testing.T) {
	r := NewInMemoryRegistry()
	r.Put("a", &fakeEntry{})
	r.Remove("a")

	if _, ok := r.Get("a"); ok {
		t.Fatal("expected entry to be removed")
	}
}

func TestInMemoryRegistryAll(t *testing.T) {
	r := NewInMemoryRegistry()
	r.Put("a", &fakeEntry{})
	r.Put("b", &fakeEntry{})

	all := r.All()
	if len(all) != 2 {
		t.Fatalf("got %d entries, want 2", len(all))
	}
}
