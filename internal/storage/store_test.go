package storage

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

// storeFactory opens a fresh store rooted in dir.
type storeFactory func(t *testing.T, dir string) Store

func testStoreBehaviour(t *testing.T, open storeFactory) {
	ctx := context.Background()

	t.Run("load missing dataset", func(t *testing.T) {
		dir := t.TempDir()
		store := open(t, dir)
		defer store.Close()

		_, err := store.Load(ctx, ChannelDataset(filepath.Join(dir, "data", "channels.csv")))
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Load() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("same record twice yields one row", func(t *testing.T) {
		dir := t.TempDir()
		store := open(t, dir)
		defer store.Close()
		ds := ChannelDataset(filepath.Join(dir, "data", "channels.csv"))
		rec := ChannelRecord{Name: "Example", ChannelID: "UC1", UploadsPlaylistID: "UU1"}

		for i := 0; i < 2; i++ {
			if _, err := store.Upsert(ctx, ds, ChannelTable(rec)); err != nil {
				t.Fatalf("Upsert() #%d error = %v", i+1, err)
			}
		}

		got, err := store.Load(ctx, ds)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got.Len() != 1 {
			t.Errorf("dataset has %d rows, want 1", got.Len())
		}
		if !reflect.DeepEqual(got.Columns, ChannelColumns) {
			t.Errorf("columns = %v, want %v", got.Columns, ChannelColumns)
		}
	})

	t.Run("newer record wins", func(t *testing.T) {
		dir := t.TempDir()
		store := open(t, dir)
		defer store.Close()
		ds := ChannelDataset(filepath.Join(dir, "data", "channels.csv"))

		if _, err := store.Upsert(ctx, ds, ChannelTable(ChannelRecord{Name: "K", Country: "a"})); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		stats, err := store.Upsert(ctx, ds, ChannelTable(ChannelRecord{Name: "K", Country: "b"}))
		if err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		if stats.Replaced != 1 || stats.Added != 0 || stats.Total != 1 {
			t.Errorf("stats = %+v, want one replacement", stats)
		}

		got, err := store.Load(ctx, ds)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if countries := got.Column("country"); !reflect.DeepEqual(countries, []string{"b"}) {
			t.Errorf("country = %v, want [b]", countries)
		}
	})

	t.Run("untouched rows keep order", func(t *testing.T) {
		dir := t.TempDir()
		store := open(t, dir)
		defer store.Close()
		ds := VideoDataset(filepath.Join(dir, "data", "videos.csv"))

		first := []VideoRecord{{Title: "K1", VideoID: "v1"}, {Title: "K2", VideoID: "v2"}}
		if _, err := store.Upsert(ctx, ds, VideoTable(first)); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		if _, err := store.Upsert(ctx, ds, VideoTable([]VideoRecord{{Title: "K3", VideoID: "v3"}})); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}

		got, err := store.Load(ctx, ds)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if titles := got.Column("title"); !reflect.DeepEqual(titles, []string{"K1", "K2", "K3"}) {
			t.Errorf("titles = %v, want [K1 K2 K3]", titles)
		}
	})

	t.Run("batch duplicates keep last", func(t *testing.T) {
		dir := t.TempDir()
		store := open(t, dir)
		defer store.Close()
		ds := VideoDataset(filepath.Join(dir, "data", "videos.csv"))

		batch := []VideoRecord{
			{Title: "Same", VideoID: "v1"},
			{Title: "Other", VideoID: "v2"},
			{Title: "Same", VideoID: "v3"},
		}
		if _, err := store.Upsert(ctx, ds, VideoTable(batch)); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}

		got, err := store.Load(ctx, ds)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if ids := got.Column("video_id"); !reflect.DeepEqual(ids, []string{"v2", "v3"}) {
			t.Errorf("video ids = %v, want [v2 v3]", ids)
		}
	})
}
