package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"memer/internal/model"
)

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsertChannelInsertsThenUpdates(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	first := model.ChannelDocument{Channel: "100", Name: "general", Sensitive: false, Time: 1700000000}
	if err := s.UpsertChannel(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := model.ChannelDocument{Channel: "100", Name: "memes", Sensitive: true, Time: 1700000500}
	if err := s.UpsertChannel(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	n, err := s.CountChannels(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if diff := cmp.Diff(1, n); diff != "" {
		t.Errorf("record count mismatch (-want +got):\n%s", diff)
	}

	got, err := s.GetChannel(ctx, "100")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(second, *got); diff != "" {
		t.Errorf("stored document mismatch (-want +got):\n%s", diff)
	}
}

func TestUpsertChannelConcurrentRetries(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.UpsertChannel(ctx, model.ChannelDocument{Channel: "7", Name: "retry"})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("upsert: %v", err)
		}
	}

	n, err := s.CountChannels(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if diff := cmp.Diff(1, n); diff != "" {
		t.Errorf("record count mismatch (-want +got):\n%s", diff)
	}
}

func TestListChannels(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	docs := []model.ChannelDocument{
		{Channel: "1", Name: "one", Time: 10},
		{Channel: "2", Name: "two", Sensitive: true, Time: 20},
		{Channel: "-1003", Name: "group", Time: 30},
	}
	for _, d := range docs {
		if err := s.UpsertChannel(ctx, d); err != nil {
			t.Fatalf("upsert %s: %v", d.Channel, err)
		}
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO channels (channel, name, nsfw, time) VALUES ('not-a-number', 'broken', 0, 0)`,
	); err != nil {
		t.Fatalf("insert raw: %v", err)
	}

	got, err := s.ListChannels(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	want := append(docs, model.ChannelDocument{Channel: "not-a-number", Name: "broken"})
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("documents mismatch (-want +got):\n%s", diff)
	}
}

func TestListChannelsEmpty(t *testing.T) {
	s := newTestDB(t)

	got, err := s.ListChannels(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no documents, got %v", got)
	}
}

func TestGetChannelNotFound(t *testing.T) {
	s := newTestDB(t)

	_, err := s.GetChannel(context.Background(), "404")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
