package youtube

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ytscrape/internal/storage"
)

// Collection defaults.
const (
	DefaultPageSize = 50
	DefaultMaxPages = 1000
)

// CollectorOptions tunes how a Collector walks the catalog.
type CollectorOptions struct {
	// PageSize is the number of playlist items requested per page (1-50).
	PageSize int64
	// MaxPages bounds playlist enumeration. The continuation token normally
	// ends the walk well before this.
	MaxPages int
	// Workers is the number of video detail fetches in flight. 1 fetches
	// sequentially.
	Workers int
}

// DefaultCollectorOptions returns sequential collection with 50-item pages.
func DefaultCollectorOptions() CollectorOptions {
	return CollectorOptions{
		PageSize: DefaultPageSize,
		MaxPages: DefaultMaxPages,
		Workers:  1,
	}
}

// Collector turns catalog responses into dataset records.
type Collector struct {
	catalog Catalog
	opts    CollectorOptions
	logger  *zap.Logger
}

// NewCollector creates a Collector. Zero option fields take their defaults
// and a nil logger discards output.
func NewCollector(catalog Catalog, opts CollectorOptions, logger *zap.Logger) *Collector {
	def := DefaultCollectorOptions()
	if opts.PageSize <= 0 || opts.PageSize > DefaultPageSize {
		opts.PageSize = def.PageSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = def.MaxPages
	}
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{catalog: catalog, opts: opts, logger: logger}
}

// ResolveChannel returns the id of the first channel matching query.
// The error is ErrChannelNotFound when nothing matched and a *RemoteError
// when the search itself failed.
func (c *Collector) ResolveChannel(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("%w: empty query", ErrChannelNotFound)
	}

	id, err := c.catalog.SearchChannel(ctx, query)
	if err != nil {
		c.logger.Warn("channel search failed", zap.String("query", query), zap.Error(err))
		return "", err
	}
	c.logger.Info("channel found", zap.String("query", query), zap.String("channel_id", id))
	return id, nil
}

// FetchChannel fetches and shapes one channel.
func (c *Collector) FetchChannel(ctx context.Context, channelID string) (storage.ChannelRecord, error) {
	ch, err := c.catalog.Channel(ctx, channelID)
	if err != nil {
		c.logger.Warn("channel detail fetch failed", zap.String("channel_id", channelID), zap.Error(err))
		return storage.ChannelRecord{}, err
	}

	rec := ShapeChannel(ch)
	c.logger.Info("channel details collected",
		zap.String("channel_id", channelID),
		zap.String("name", rec.Name),
		zap.String("uploads_playlist_id", rec.UploadsPlaylistID),
	)
	return rec, nil
}

// ListVideoIDs walks a playlist page by page until the continuation token
// runs out and returns every video id in playlist order. Ids are not
// deduplicated. On error the ids gathered so far are returned with it; when
// MaxPages is reached the error wraps ErrPageLimit.
func (c *Collector) ListVideoIDs(ctx context.Context, playlistID string) ([]string, error) {
	if playlistID == "" {
		return nil, ErrNoUploadsPlaylist
	}

	log := c.logger.With(zap.String("playlist_id", playlistID))
	log.Info("collecting video ids")

	var ids []string
	token := ""
	for page := 1; ; page++ {
		if page > c.opts.MaxPages {
			log.Warn("page limit reached, stopping enumeration",
				zap.Int("max_pages", c.opts.MaxPages),
				zap.Int("video_ids", len(ids)),
			)
			return ids, fmt.Errorf("%w: %d pages of %s", ErrPageLimit, c.opts.MaxPages, playlistID)
		}
		if err := ctx.Err(); err != nil {
			return ids, err
		}

		p, err := c.catalog.PlaylistPage(ctx, playlistID, token, c.opts.PageSize)
		if err != nil {
			log.Warn("playlist page fetch failed", zap.Int("page", page), zap.Error(err))
			return ids, err
		}
		ids = append(ids, p.VideoIDs...)
		log.Debug("playlist page collected", zap.Int("page", page), zap.Int("items", len(p.VideoIDs)))

		if p.NextPageToken == "" {
			log.Info("last page reached", zap.Int("pages", page), zap.Int("video_ids", len(ids)))
			return ids, nil
		}
		token = p.NextPageToken
	}
}

// FetchVideos fetches each id with its own call and returns the shaped
// records in input order. A failed id is logged, reported in the failure
// slice and skipped; it never stops the rest of the batch.
func (c *Collector) FetchVideos(ctx context.Context, ids []string) ([]storage.VideoRecord, []FetchFailure) {
	c.logger.Info("collecting video details", zap.Int("videos", len(ids)), zap.Int("workers", c.opts.Workers))

	records := make([]*storage.VideoRecord, len(ids))
	errs := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(c.opts.Workers)
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		g.Go(func() error {
			v, err := c.catalog.Video(ctx, id)
			if err != nil {
				errs[i] = err
				return nil
			}
			rec := ShapeVideo(v)
			records[i] = &rec
			return nil
		})
	}
	g.Wait()

	var (
		out      []storage.VideoRecord
		failures []FetchFailure
	)
	for i, id := range ids {
		if errs[i] != nil {
			c.logger.Warn("video skipped", zap.String("video_id", id), zap.Error(errs[i]))
			failures = append(failures, FetchFailure{VideoID: id, Err: errs[i]})
			continue
		}
		out = append(out, *records[i])
	}

	c.logger.Info("video details collected", zap.Int("collected", len(out)), zap.Int("failed", len(failures)))
	return out, failures
}
