package history

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/analysis"
	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/scoring"
	"github.com/google/uuid"
)

func result(overall int, s scoring.Scores) analysis.Result {
	var r analysis.Result
	r.Overall = overall
	r.Categories = s
	r.Summary = "resumen"
	r.Hash = "abc"
	return r
}

func TestStoreAppendAndList(t *testing.T) {
	store, err := NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("ART", -3*3600))
	store.now = func() time.Time { return fixed }

	first, err := store.Append("ana", "cv-v1.pdf", result(70, scoring.Scores{Format: 60, Content: 70, Keywords: 80, Structure: 70, Education: 70, Redaccion: 70}))
	if err != nil {
		t.Fatalf("first append: %v", err)
	}
	if first.Trends != nil {
		t.Fatalf("expected no trends on first entry, got %v", first.Trends)
	}
	if _, err := uuid.Parse(first.ID); err != nil {
		t.Fatalf("expected uuid id, got %q", first.ID)
	}
	if !first.Timestamp.Equal(fixed) || first.Timestamp.Location() != time.UTC {
		t.Fatalf("unexpected timestamp %v", first.Timestamp)
	}

	second, err := store.Append("ana", "cv-v2.pdf", result(72, scoring.Scores{Format: 75, Content: 70, Keywords: 60, Structure: 70, Education: 70, Redaccion: 70}))
	if err != nil {
		t.Fatalf("second append: %v", err)
	}
	want := map[string]Trend{
		"format": TrendUp, "content": TrendStable, "keywords": TrendDown,
		"structure": TrendStable, "education": TrendStable, "redaccion": TrendStable,
		OverallKey: TrendUp,
	}
	for key, trend := range want {
		if second.Trends[key] != trend {
			t.Fatalf("trend %s: expected %s, got %s", key, trend, second.Trends[key])
		}
	}

	entries, err := store.List("ana")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].FileName != "cv-v1.pdf" || entries[1].ID != second.ID {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if entries[1].Result.Summary != "resumen" {
		t.Fatalf("expected result to round-trip, got %+v", entries[1].Result)
	}

	others, err := store.List("bruno")
	if err != nil || len(others) != 0 {
		t.Fatalf("expected empty history for new user, got %v err=%v", others, err)
	}
}

func TestStoreRejectsInvalidUsers(t *testing.T) {
	store, err := NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	for _, user := range []string{"", "../etc", "a/b", ".hidden", "con espacio"} {
		if _, err := store.List(user); !errors.Is(err, ErrInvalidUser) {
			t.Fatalf("expected ErrInvalidUser for %q, got %v", user, err)
		}
	}
}

func TestStoreReportsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ana.json"), []byte("{broken"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	store, err := NewStore(dir, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := store.List("ana"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestTrendsStable(t *testing.T) {
	s := scoring.Result{Overall: 50, Categories: scoring.Scores{Format: 50}}
	for key, trend := range Trends(s, s) {
		if trend != TrendStable {
			t.Fatalf("expected stable trend for %s, got %s", key, trend)
		}
	}
	if len(Trends(s, s)) != 7 {
		t.Fatalf("expected seven trends")
	}
}

func TestStoreAppendAcrossStoresKeepsEveryEntry(t *testing.T) {
	dir := t.TempDir()

	// Separate stores stand in for separate processes: they share no mutex.
	stores := make([]*Store, 4)
	for i := range stores {
		s, err := NewStore(dir, nil)
		if err != nil {
			t.Fatalf("NewStore: %v", err)
		}
		stores[i] = s
	}

	const perStore = 5
	var wg sync.WaitGroup
	errs := make(chan error, len(stores)*perStore)
	for _, s := range stores {
		wg.Add(1)
		go func(s *Store) {
			defer wg.Done()
			for i := 0; i < perStore; i++ {
				if _, err := s.Append("ana", "cv.pdf", result(50, scoring.Scores{})); err != nil {
					errs <- err
				}
			}
		}(s)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("append: %v", err)
	}

	entries, err := stores[0].List("ana")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != len(stores)*perStore {
		t.Fatalf("expected %d entries, got %d", len(stores)*perStore, len(entries))
	}
}
