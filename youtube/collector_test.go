package youtube

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/api/youtube/v3"
)

// fakeCatalog is an in-memory Catalog.
type fakeCatalog struct {
	mu sync.Mutex

	searchID    string
	searchErr   error
	searchCalls int

	channel    *youtube.Channel
	channelErr error

	// pages maps a page token to the page served for it.
	pages     map[string]PlaylistPage
	pageErr   map[string]error
	pageCalls int
	pageSizes []int64

	videos    map[string]*youtube.Video
	videoErr  map[string]error
	videoSeen []string
}

func (f *fakeCatalog) SearchChannel(ctx context.Context, query string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	return f.searchID, f.searchErr
}

func (f *fakeCatalog) Channel(ctx context.Context, channelID string) (*youtube.Channel, error) {
	return f.channel, f.channelErr
}

func (f *fakeCatalog) PlaylistPage(ctx context.Context, playlistID, pageToken string, pageSize int64) (*PlaylistPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageCalls++
	f.pageSizes = append(f.pageSizes, pageSize)
	if err := f.pageErr[pageToken]; err != nil {
		return nil, err
	}
	p, ok := f.pages[pageToken]
	if !ok {
		return nil, fmt.Errorf("unexpected page token %q", pageToken)
	}
	return &p, nil
}

func (f *fakeCatalog) Video(ctx context.Context, videoID string) (*youtube.Video, error) {
	f.mu.Lock()
	f.videoSeen = append(f.videoSeen, videoID)
	f.mu.Unlock()
	if err := f.videoErr[videoID]; err != nil {
		return nil, err
	}
	if v, ok := f.videos[videoID]; ok {
		return v, nil
	}
	return &youtube.Video{Id: videoID, Snippet: &youtube.VideoSnippet{Title: "Title " + videoID}}, nil
}

// paginated builds n pages of k ids each, plus a last page with last ids.
func paginated(n, k, last int) map[string]PlaylistPage {
	pages := make(map[string]PlaylistPage)
	token := ""
	id := 0
	for p := 1; p <= n; p++ {
		count := k
		next := fmt.Sprintf("tok%d", p)
		if p == n {
			count = last
			next = ""
		}
		var ids []string
		for i := 0; i < count; i++ {
			id++
			ids = append(ids, fmt.Sprintf("v%03d", id))
		}
		pages[token] = PlaylistPage{VideoIDs: ids, NextPageToken: next}
		token = next
	}
	return pages
}

func TestResolveChannel(t *testing.T) {
	remote := &RemoteError{Op: "search", ID: "x", Err: errors.New("boom")}
	tests := []struct {
		name      string
		query     string
		catalog   *fakeCatalog
		want      string
		wantErr   error
		wantCalls int
	}{
		{"found", "Example", &fakeCatalog{searchID: "UC123"}, "UC123", nil, 1},
		{"not found", "Nobody", &fakeCatalog{searchErr: ErrChannelNotFound}, "", ErrChannelNotFound, 1},
		{"remote fault", "Example", &fakeCatalog{searchErr: remote}, "", remote, 1},
		{"blank query", "   ", &fakeCatalog{searchID: "UC123"}, "", ErrChannelNotFound, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCollector(tt.catalog, CollectorOptions{}, nil)
			got, err := c.ResolveChannel(context.Background(), tt.query)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ResolveChannel() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolveChannel() = %q, want %q", got, tt.want)
			}
			if tt.catalog.searchCalls != tt.wantCalls {
				t.Errorf("search called %d times, want %d", tt.catalog.searchCalls, tt.wantCalls)
			}
		})
	}
}

func TestFetchChannel(t *testing.T) {
	cat := &fakeCatalog{channel: &youtube.Channel{
		Id:      "UC123",
		Snippet: &youtube.ChannelSnippet{Title: "Example"},
		ContentDetails: &youtube.ChannelContentDetails{
			RelatedPlaylists: &youtube.ChannelContentDetailsRelatedPlaylists{Uploads: "PL1"},
		},
	}}
	c := NewCollector(cat, CollectorOptions{}, nil)

	rec, err := c.FetchChannel(context.Background(), "UC123")
	if err != nil {
		t.Fatalf("FetchChannel() error = %v", err)
	}
	if rec.Name != "Example" || rec.UploadsPlaylistID != "PL1" || rec.ChannelID != "UC123" {
		t.Errorf("FetchChannel() = %+v", rec)
	}

	cat.channelErr = &RemoteError{Op: "channels", ID: "UC123", Err: errors.New("boom")}
	if _, err := c.FetchChannel(context.Background(), "UC123"); err == nil {
		t.Error("FetchChannel() should return the remote error")
	}
}

func TestListVideoIDs_Pagination(t *testing.T) {
	tests := []struct {
		name   string
		pages  int
		perPg  int
		lastPg int
	}{
		{"single page", 1, 50, 7},
		{"three full pages and a short one", 4, 50, 13},
		{"empty last page", 3, 50, 0},
		{"empty playlist", 1, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := &fakeCatalog{pages: paginated(tt.pages, tt.perPg, tt.lastPg)}
			c := NewCollector(cat, CollectorOptions{}, nil)

			ids, err := c.ListVideoIDs(context.Background(), "PL1")
			if err != nil {
				t.Fatalf("ListVideoIDs() error = %v", err)
			}
			want := (tt.pages-1)*tt.perPg + tt.lastPg
			if len(ids) != want {
				t.Fatalf("ListVideoIDs() returned %d ids, want %d", len(ids), want)
			}
			for i, id := range ids {
				if id != fmt.Sprintf("v%03d", i+1) {
					t.Fatalf("ids[%d] = %q, want page order", i, id)
				}
			}
			if cat.pageCalls != tt.pages {
				t.Errorf("fetched %d pages, want %d", cat.pageCalls, tt.pages)
			}
			for _, size := range cat.pageSizes {
				if size != 50 {
					t.Errorf("page size = %d, want 50", size)
				}
			}
		})
	}
}

func TestListVideoIDs_KeepsDuplicates(t *testing.T) {
	cat := &fakeCatalog{pages: map[string]PlaylistPage{
		"":   {VideoIDs: []string{"a", "b"}, NextPageToken: "t1"},
		"t1": {VideoIDs: []string{"b", "c"}},
	}}
	ids, err := NewCollector(cat, CollectorOptions{}, nil).ListVideoIDs(context.Background(), "PL1")
	if err != nil {
		t.Fatalf("ListVideoIDs() error = %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"a", "b", "b", "c"}) {
		t.Errorf("ListVideoIDs() = %v", ids)
	}
}

func TestListVideoIDs_PageLimit(t *testing.T) {
	cat := &fakeCatalog{pages: map[string]PlaylistPage{
		"":      {VideoIDs: []string{"x", "y"}, NextPageToken: "again"},
		"again": {VideoIDs: []string{"x", "y"}, NextPageToken: "again"},
	}}
	c := NewCollector(cat, CollectorOptions{MaxPages: 5}, nil)

	ids, err := c.ListVideoIDs(context.Background(), "PL1")
	if !errors.Is(err, ErrPageLimit) {
		t.Fatalf("ListVideoIDs() error = %v, want ErrPageLimit", err)
	}
	if len(ids) != 10 {
		t.Errorf("ListVideoIDs() returned %d ids, want 10", len(ids))
	}
	if cat.pageCalls != 5 {
		t.Errorf("fetched %d pages, want 5", cat.pageCalls)
	}
}

func TestListVideoIDs_PageError(t *testing.T) {
	pageErr := &RemoteError{Op: "playlistItems", ID: "PL1", Err: errors.New("boom")}
	cat := &fakeCatalog{
		pages:   paginated(3, 2, 2),
		pageErr: map[string]error{"tok1": pageErr},
	}

	ids, err := NewCollector(cat, CollectorOptions{}, nil).ListVideoIDs(context.Background(), "PL1")
	if !errors.Is(err, pageErr) {
		t.Fatalf("ListVideoIDs() error = %v, want page error", err)
	}
	if len(ids) != 2 {
		t.Errorf("ListVideoIDs() returned %d ids, want the 2 from page one", len(ids))
	}
}

func TestListVideoIDs_NoPlaylist(t *testing.T) {
	_, err := NewCollector(&fakeCatalog{}, CollectorOptions{}, nil).ListVideoIDs(context.Background(), "")
	if !errors.Is(err, ErrNoUploadsPlaylist) {
		t.Errorf("ListVideoIDs() error = %v, want ErrNoUploadsPlaylist", err)
	}
}

func TestFetchVideos_PartialFailure(t *testing.T) {
	for _, workers := range []int{1, 3} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			core, logs := observer.New(zapcore.InfoLevel)
			cat := &fakeCatalog{videoErr: map[string]error{
				"v3": &RemoteError{Op: "videos", ID: "v3", Err: errors.New("boom")},
			}}
			c := NewCollector(cat, CollectorOptions{Workers: workers}, zap.New(core))

			ids := []string{"v1", "v2", "v3", "v4", "v5"}
			records, failures := c.FetchVideos(context.Background(), ids)

			if len(records) != 4 {
				t.Fatalf("FetchVideos() returned %d records, want 4", len(records))
			}
			var got []string
			for _, r := range records {
				got = append(got, r.VideoID)
			}
			if !reflect.DeepEqual(got, []string{"v1", "v2", "v4", "v5"}) {
				t.Errorf("record order = %v", got)
			}
			if len(failures) != 1 || failures[0].VideoID != "v3" {
				t.Fatalf("failures = %v, want v3", failures)
			}
			if len(cat.videoSeen) != 5 {
				t.Errorf("fetched %d videos, want one call per id", len(cat.videoSeen))
			}

			skipped := logs.FilterMessage("video skipped").All()
			if len(skipped) != 1 {
				t.Fatalf("logged %d skips, want 1", len(skipped))
			}
			if id := skipped[0].ContextMap()["video_id"]; id != "v3" {
				t.Errorf("logged video_id = %v, want v3", id)
			}
		})
	}
}

func TestFetchVideos_AllFail(t *testing.T) {
	cat := &fakeCatalog{videoErr: map[string]error{
		"a": ErrVideoNotFound,
		"b": ErrVideoNotFound,
	}}
	records, failures := NewCollector(cat, CollectorOptions{}, nil).FetchVideos(context.Background(), []string{"a", "b"})
	if len(records) != 0 {
		t.Errorf("FetchVideos() returned %d records, want 0", len(records))
	}
	if len(failures) != 2 || !errors.Is(failures[0], ErrVideoNotFound) {
		t.Errorf("failures = %v", failures)
	}
}

func TestFetchVideos_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cat := &fakeCatalog{}
	records, failures := NewCollector(cat, CollectorOptions{}, nil).FetchVideos(ctx, []string{"a", "b"})
	if len(records) != 0 || len(failures) != 2 {
		t.Errorf("FetchVideos() = %d records, %d failures; want 0 and 2", len(records), len(failures))
	}
	if len(cat.videoSeen) != 0 {
		t.Errorf("canceled context should stop fetching, saw %v", cat.videoSeen)
	}
}

func TestNewCollectorDefaults(t *testing.T) {
	c := NewCollector(&fakeCatalog{}, CollectorOptions{PageSize: 500, MaxPages: -1}, nil)
	if c.opts.PageSize != 50 || c.opts.MaxPages != DefaultMaxPages || c.opts.Workers != 1 {
		t.Errorf("options = %+v, want defaults", c.opts)
	}
}
