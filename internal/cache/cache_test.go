package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type entry struct {
	Score int    `json:"score"`
	Note  string `json:"note"`
}

func TestDigestStable(t *testing.T) {
	a := Digest([]byte("curriculum"))
	b := Digest([]byte("curriculum"))
	if a != b {
		t.Fatalf("expected identical digests, got %q and %q", a, b)
	}
	if !ValidKey(a) {
		t.Fatalf("expected digest %q to be a valid key", a)
	}
	if Digest([]byte("curriculum ")) == a {
		t.Fatalf("expected different bytes to produce a different digest")
	}

	const emptySHA = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Digest(nil); got != emptySHA {
		t.Fatalf("unexpected digest of empty input: %s", got)
	}
}

func TestValidKey(t *testing.T) {
	valid := Digest([]byte("x"))
	cases := map[string]bool{
		valid:                       true,
		strings.ToUpper(valid):      false,
		valid[:63]:                  false,
		valid + "0":                 false,
		"../" + valid[3:]:           false,
		strings.Repeat("g", 64):     false,
		"":                          false,
	}
	for key, want := range cases {
		if got := ValidKey(key); got != want {
			t.Fatalf("ValidKey(%q) = %v, want %v", key, got, want)
		}
	}
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	file, err := NewFile(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	return map[string]Backend{
		"memory": NewMemory(),
		"file":   file,
	}
}

func TestCacheRoundTrip(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := New[entry](backend, nil)
			hash := Digest([]byte(name))

			if _, ok, err := c.Lookup(ctx, hash); err != nil || ok {
				t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
			}

			if err := c.Store(ctx, hash, &entry{Score: 75, Note: "ok"}); err != nil {
				t.Fatalf("Store: %v", err)
			}

			got, ok, err := c.Lookup(ctx, hash)
			if err != nil || !ok {
				t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
			}
			if got.Score != 75 || got.Note != "ok" {
				t.Fatalf("unexpected entry: %+v", got)
			}

			raw, ok, err := c.LookupRaw(ctx, hash)
			if err != nil || !ok {
				t.Fatalf("expected raw hit, got ok=%v err=%v", ok, err)
			}
			if string(raw) != `{"score":75,"note":"ok"}` {
				t.Fatalf("unexpected raw bytes: %s", raw)
			}
		})
	}
}

func TestCacheStoreIsIdempotent(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := New[entry](backend, nil)
			hash := Digest([]byte("same"))

			for i := 0; i < 3; i++ {
				if err := c.Store(ctx, hash, &entry{Score: 10}); err != nil {
					t.Fatalf("store %d: %v", i, err)
				}
			}
		})
	}
}

func TestCacheFirstWriterWins(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := New[entry](backend, zap.New(core))
			hash := Digest([]byte("conflict"))

			if err := c.Store(ctx, hash, &entry{Score: 1}); err != nil {
				t.Fatalf("first store: %v", err)
			}
			err := c.Store(ctx, hash, &entry{Score: 2})
			if !errors.Is(err, ErrConflict) {
				t.Fatalf("expected ErrConflict, got %v", err)
			}

			got, _, err := c.Lookup(ctx, hash)
			if err != nil {
				t.Fatalf("Lookup: %v", err)
			}
			if got.Score != 1 {
				t.Fatalf("expected first value to be kept, got %d", got.Score)
			}
		})
	}
	if observed.Len() != 2 {
		t.Fatalf("expected one conflict warning per backend, got %d", observed.Len())
	}
}

func TestCacheRejectsInvalidKeys(t *testing.T) {
	c := New[entry](NewMemory(), nil)
	ctx := context.Background()

	if _, _, err := c.Lookup(ctx, "../../etc/passwd"); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey on lookup, got %v", err)
	}
	if err := c.Store(ctx, "abc", &entry{}); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey on store, got %v", err)
	}
}

func TestCacheConcurrentStoresConverge(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := New[entry](backend, nil)
			hash := Digest([]byte("race"))

			var wg sync.WaitGroup
			errs := make([]error, 8)
			for i := range errs {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					errs[i] = c.Store(ctx, hash, &entry{Score: i})
				}(i)
			}
			wg.Wait()

			winners := 0
			for _, err := range errs {
				switch {
				case err == nil:
					winners++
				case errors.Is(err, ErrConflict):
				default:
					t.Fatalf("unexpected store error: %v", err)
				}
			}
			if winners != 1 {
				t.Fatalf("expected exactly one winner, got %d", winners)
			}

			first, _, _ := c.LookupRaw(ctx, hash)
			second, _, _ := c.LookupRaw(ctx, hash)
			if string(first) != string(second) {
				t.Fatalf("expected stable entry, got %s and %s", first, second)
			}
		})
	}
}

func TestFileBackendLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFile(dir)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	hash := Digest([]byte("tmp"))
	ctx := context.Background()

	if _, err := backend.PutIfAbsent(ctx, hash, []byte("{}")); err != nil {
		t.Fatalf("PutIfAbsent: %v", err)
	}
	created, err := backend.PutIfAbsent(ctx, hash, []byte(`{"x":1}`))
	if err != nil || created {
		t.Fatalf("expected second put to be refused, got created=%v err=%v", created, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != hash+".json" {
		t.Fatalf("unexpected directory contents: %v", entries)
	}
}

func TestMemoryCopiesData(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	data := []byte("abc")
	if _, err := m.PutIfAbsent(ctx, "k", data); err != nil {
		t.Fatalf("PutIfAbsent: %v", err)
	}
	data[0] = 'z'

	got, err := m.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "abc" {
		t.Fatalf("expected stored copy to be unaffected, got %s", got)
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", m.Len())
	}
}
