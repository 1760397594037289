package ytscrape

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"ytscrape/internal/config"
	"ytscrape/internal/storage"
	"ytscrape/youtube"
)

// Report summarizes one run. It is returned even when the run fails, filled
// up to the stage that failed.
type Report struct {
	RunID     string
	Query     string
	ChannelID string
	Channel   storage.ChannelRecord
	VideoIDs  []string
	Videos    []storage.VideoRecord
	Failures  []youtube.FetchFailure

	ChannelStats storage.MergeStats
	VideoStats   storage.MergeStats

	// QuotaUsed is the estimated Data API quota consumed, when the catalog
	// tracks it.
	QuotaUsed int
}

// quotaReporter is implemented by catalogs that estimate quota usage.
type quotaReporter interface {
	QuotaUsed() int
}

// Scraper runs the collection pipeline against a catalog and a store.
type Scraper struct {
	cfg     *config.Config
	catalog youtube.Catalog
	store   storage.Store
	logger  *zap.Logger
}

// New creates a Scraper from its parts. A nil logger discards output.
func New(cfg *config.Config, catalog youtube.Catalog, store storage.Store, logger *zap.Logger) *Scraper {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{cfg: cfg, catalog: catalog, store: store, logger: logger}
}

// Open builds the Data API client and the configured store. Extra client
// options are passed to the Data API service.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger, clientOpts ...option.ClientOption) (*Scraper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rc := cfg.Retry()
	rc.OnRetry = func(attempt int, err error, wait time.Duration) {
		logger.Debug("retrying api call", zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
	}
	client, err := youtube.NewAPIClient(ctx, youtube.Options{
		APIKey:            cfg.YouTube.APIKey,
		RequestsPerSecond: cfg.YouTube.RequestsPerSecond,
		Retry:             rc,
		Breaker: youtube.BreakerConfig{
			Threshold: cfg.YouTube.BreakerThreshold,
			Cooldown:  cfg.BreakerCooldown(),
		},
		ClientOptions: clientOpts,
	})
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.StoreOptions(), logger)
	if err != nil {
		return nil, err
	}
	return New(cfg, client, store, logger), nil
}

// Close releases the store.
func (s *Scraper) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// Run collects the channel matching query and all of its uploads, and merges
// them into the channel and video datasets. Each stage only starts when the
// previous one produced a usable result. A channel without an uploads
// playlist is persisted before the run fails with ErrNoUploadsPlaylist. A
// playlist longer than the page cap is logged and the ids gathered so far
// are still collected.
func (s *Scraper) Run(ctx context.Context, query string) (*Report, error) {
	report := &Report{
		RunID: uuid.NewString(),
		Query: strings.TrimSpace(query),
	}
	log := s.logger.With(zap.String("run_id", report.RunID))
	defer s.recordQuota(report)

	if report.Query == "" {
		return report, ErrEmptyQuery
	}
	log.Info("run started", zap.String("query", report.Query))

	collector := youtube.NewCollector(s.catalog, youtube.CollectorOptions{
		PageSize: s.cfg.YouTube.PageSize,
		MaxPages: s.cfg.YouTube.MaxPages,
		Workers:  s.cfg.YouTube.Workers,
	}, log)

	channelID, err := collector.ResolveChannel(ctx, report.Query)
	if err != nil {
		return report, fmt.Errorf("resolve channel %q: %w", report.Query, err)
	}
	report.ChannelID = channelID

	channel, err := collector.FetchChannel(ctx, channelID)
	if err != nil {
		return report, fmt.Errorf("fetch channel %s: %w", channelID, err)
	}
	report.Channel = channel

	report.ChannelStats, err = s.store.Upsert(ctx,
		storage.ChannelDataset(s.cfg.Storage.ChannelPath),
		storage.ChannelTable(channel))
	if err != nil {
		return report, fmt.Errorf("save channel: %w", err)
	}

	if channel.UploadsPlaylistID == "" {
		return report, fmt.Errorf("channel %s: %w", channelID, youtube.ErrNoUploadsPlaylist)
	}

	ids, err := collector.ListVideoIDs(ctx, channel.UploadsPlaylistID)
	switch {
	case errors.Is(err, youtube.ErrPageLimit):
		log.Warn("playlist truncated", zap.Int("video_ids", len(ids)), zap.Error(err))
	case err != nil:
		return report, fmt.Errorf("list videos of %s: %w", channel.UploadsPlaylistID, err)
	}
	report.VideoIDs = ids

	report.Videos, report.Failures = collector.FetchVideos(ctx, ids)
	if err := ctx.Err(); err != nil {
		return report, err
	}

	report.VideoStats, err = s.store.Upsert(ctx,
		storage.VideoDataset(s.cfg.Storage.VideoPath),
		storage.VideoTable(report.Videos))
	if err != nil {
		return report, fmt.Errorf("save videos: %w", err)
	}

	log.Info("run finished",
		zap.String("channel", channel.Name),
		zap.Int("videos", len(report.Videos)),
		zap.Int("failed", len(report.Failures)),
		zap.Int("video_rows", report.VideoStats.Total),
	)
	return report, nil
}

func (s *Scraper) recordQuota(r *Report) {
	if q, ok := s.catalog.(quotaReporter); ok {
		r.QuotaUsed = q.QuotaUsed()
	}
}
