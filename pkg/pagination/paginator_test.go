package pagination

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Sternrassler/hotspot-sync/pkg/hotspot"
	"github.com/Sternrassler/hotspot-sync/pkg/syncerr"
)

// scriptedFetcher serves n pages chained by cursors "c1".."c(n-1)".
type scriptedFetcher struct {
	pages   int
	failOn  int
	cursors []string
}

func (f *scriptedFetcher) FetchPage(_ context.Context, cursor string) (*hotspot.Page, error) {
	f.cursors = append(f.cursors, cursor)
	call := len(f.cursors)

	if call == f.failOn {
		return nil, syncerr.Transport(syncerr.StageFetch, "GET page", errors.New("connection refused"))
	}
	if call > f.pages {
		return nil, fmt.Errorf("unexpected fetch %d", call)
	}

	page := &hotspot.Page{
		Data: []hotspot.Hotspot{{Address: fmt.Sprintf("A%d", call)}},
	}
	if call < f.pages {
		next := fmt.Sprintf("c%d", call)
		page.Cursor = &next
	}
	return page, nil
}

func TestWalk_Termination(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("%d_pages", n), func(t *testing.T) {
			f := &scriptedFetcher{pages: n}
			p := New(f)

			seen := 0
			pages, err := p.Walk(context.Background(), func(page *hotspot.Page) error {
				seen++
				return nil
			})
			if err != nil {
				t.Fatalf("Walk() error = %v", err)
			}

			if pages != n || seen != n {
				t.Errorf("pages = %d, callbacks = %d, want %d", pages, seen, n)
			}
			if len(f.cursors) != n {
				t.Errorf("fetch calls = %d, want %d", len(f.cursors), n)
			}
		})
	}
}

func TestWalk_CursorThreading(t *testing.T) {
	f := &scriptedFetcher{pages: 4}
	p := New(f)

	if _, err := p.Walk(context.Background(), func(*hotspot.Page) error { return nil }); err != nil {
		t.Fatalf("Walk() error = %v", err)
	}

	expected := []string{"", "c1", "c2", "c3"}
	for i, want := range expected {
		if f.cursors[i] != want {
			t.Errorf("fetch %d cursor = %q, want %q", i+1, f.cursors[i], want)
		}
	}
}

func TestWalk_EmptyCursorContinues(t *testing.T) {
	empty := ""
	calls := 0
	fetcher := fetcherFunc(func(_ context.Context, cursor string) (*hotspot.Page, error) {
		calls++
		if calls == 1 {
			return &hotspot.Page{Cursor: &empty}, nil
		}
		return &hotspot.Page{}, nil
	})

	pages, err := New(fetcher).Walk(context.Background(), func(*hotspot.Page) error { return nil })
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if pages != 2 {
		t.Errorf("pages = %d, want 2 (an empty cursor is not the end signal)", pages)
	}
}

func TestWalk_FatalOnFirstError(t *testing.T) {
	f := &scriptedFetcher{pages: 5, failOn: 2}
	p := New(f)

	pages, err := p.Walk(context.Background(), func(*hotspot.Page) error { return nil })
	if err == nil {
		t.Fatal("Walk() should fail")
	}
	if len(f.cursors) != 2 {
		t.Errorf("fetch calls = %d, want 2", len(f.cursors))
	}
	if pages != 1 {
		t.Errorf("pages = %d, want 1", pages)
	}
	if stage, _ := syncerr.StageOf(err); stage != syncerr.StageFetch {
		t.Errorf("stage = %q, want fetch", stage)
	}
}

func TestWalk_CallbackErrorStops(t *testing.T) {
	f := &scriptedFetcher{pages: 3}
	p := New(f)
	sinkErr := errors.New("sink down")

	_, err := p.Walk(context.Background(), func(*hotspot.Page) error { return sinkErr })
	if !errors.Is(err, sinkErr) {
		t.Fatalf("Walk() error = %v, want %v", err, sinkErr)
	}
	if len(f.cursors) != 1 {
		t.Errorf("fetch calls = %d, want 1", len(f.cursors))
	}
}

func TestWalk_ContextCancelled(t *testing.T) {
	f := &scriptedFetcher{pages: 3}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(f).Walk(ctx, func(*hotspot.Page) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Walk() error = %v, want context.Canceled", err)
	}
	if stage, _ := syncerr.StageOf(err); stage != syncerr.StageFetch {
		t.Errorf("stage = %q, want fetch", stage)
	}
	if len(f.cursors) != 0 {
		t.Errorf("fetch calls = %d, want 0", len(f.cursors))
	}
}

func TestCollect(t *testing.T) {
	f := &scriptedFetcher{pages: 3}

	records, pages, err := New(f).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if pages != 3 {
		t.Errorf("pages = %d, want 3", pages)
	}

	expected := []string{"A1", "A2", "A3"}
	if len(records) != len(expected) {
		t.Fatalf("len(records) = %d, want %d", len(records), len(expected))
	}
	for i, want := range expected {
		if records[i].Address != want {
			t.Errorf("records[%d] = %q, want %q", i, records[i].Address, want)
		}
	}
}

func TestCollect_DiscardsOnError(t *testing.T) {
	f := &scriptedFetcher{pages: 3, failOn: 3}

	records, _, err := New(f).Collect(context.Background())
	if err == nil {
		t.Fatal("Collect() should fail")
	}
	if records != nil {
		t.Errorf("records = %v, want nil after failure", records)
	}
}

type fetcherFunc func(ctx context.Context, cursor string) (*hotspot.Page, error)

func (f fetcherFunc) FetchPage(ctx context.Context, cursor string) (*hotspot.Page, error) {
	return f(ctx, cursor)
}
