package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"ytscrape/internal/retry"
)

// Estimated quota cost of each Data API call.
const (
	searchCost = 100
	listCost   = 1
)

var (
	channelParts  = []string{"contentDetails", "snippet", "statistics", "topicDetails"}
	videoParts    = []string{"contentDetails", "snippet", "statistics", "topicDetails"}
	playlistParts = []string{"snippet", "contentDetails"}
)

// Options configures an APIClient.
type Options struct {
	// APIKey is the Data API developer key.
	APIKey string
	// RequestsPerSecond throttles every call. Zero disables throttling.
	RequestsPerSecond float64
	// Retry applies to channel, playlist and video calls. Search is never
	// retried.
	Retry retry.Config
	// Breaker fails calls fast after repeated remote faults. The zero value
	// disables it.
	Breaker BreakerConfig
	// ClientOptions are appended after the API key option.
	ClientOptions []option.ClientOption
}

// APIClient implements Catalog using YouTube Data API v3.
type APIClient struct {
	service *youtube.Service
	limiter *rate.Limiter
	retry   retry.Config
	breaker *breaker

	mu        sync.Mutex
	quotaUsed int
}

// NewAPIClient creates a Data API client.
func NewAPIClient(ctx context.Context, opts Options) (*APIClient, error) {
	if opts.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	clientOpts := append([]option.ClientOption{option.WithAPIKey(opts.APIKey)}, opts.ClientOptions...)
	service, err := youtube.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &APIClient{
		service: service,
		limiter: limiter,
		retry:   opts.Retry,
		breaker: newBreaker(opts.Breaker),
	}, nil
}

// SearchChannel issues one channel-type search limited to a single result.
func (a *APIClient) SearchChannel(ctx context.Context, query string) (string, error) {
	var channelID string
	err := a.call(ctx, "search", query, searchCost, false, func(ctx context.Context) error {
		resp, err := a.service.Search.List([]string{"snippet"}).
			Q(query).
			Type("channel").
			MaxResults(1).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		if len(resp.Items) == 0 || resp.Items[0].Id == nil || resp.Items[0].Id.ChannelId == "" {
			return fmt.Errorf("%w: no channel named %q", ErrChannelNotFound, query)
		}
		channelID = resp.Items[0].Id.ChannelId
		return nil
	})
	if err != nil {
		return "", err
	}
	return channelID, nil
}

// Channel fetches one channel with all parts needed for a ChannelRecord.
func (a *APIClient) Channel(ctx context.Context, channelID string) (*youtube.Channel, error) {
	var channel *youtube.Channel
	err := a.call(ctx, "channels", channelID, listCost, true, func(ctx context.Context) error {
		resp, err := a.service.Channels.List(channelParts).
			Id(channelID).
			MaxResults(1).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		if len(resp.Items) == 0 {
			return fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
		}
		channel = resp.Items[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return channel, nil
}

// PlaylistPage fetches one page of playlist items.
func (a *APIClient) PlaylistPage(ctx context.Context, playlistID, pageToken string, pageSize int64) (*PlaylistPage, error) {
	var page *PlaylistPage
	err := a.call(ctx, "playlistItems", playlistID, listCost, true, func(ctx context.Context) error {
		call := a.service.PlaylistItems.List(playlistParts).
			PlaylistId(playlistID).
			MaxResults(pageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return err
		}

		page = &PlaylistPage{NextPageToken: resp.NextPageToken}
		for _, item := range resp.Items {
			if id := playlistItemVideoID(item); id != "" {
				page.VideoIDs = append(page.VideoIDs, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// Video fetches one video with all parts needed for a VideoRecord.
func (a *APIClient) Video(ctx context.Context, videoID string) (*youtube.Video, error) {
	var video *youtube.Video
	err := a.call(ctx, "videos", videoID, listCost, true, func(ctx context.Context) error {
		resp, err := a.service.Videos.List(videoParts).
			Id(videoID).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		if len(resp.Items) == 0 {
			return fmt.Errorf("%w: %s", ErrVideoNotFound, videoID)
		}
		video = resp.Items[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return video, nil
}

// BreakerState reports the state of the breaker in front of the API.
func (a *APIClient) BreakerState() BreakerState {
	return a.breaker.State()
}

// QuotaUsed returns the estimated quota units consumed so far.
func (a *APIClient) QuotaUsed() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.quotaUsed
}

// call throttles, retries and wraps one Data API request. Not-found errors are
// returned as is; every other fault becomes a *RemoteError.
func (a *APIClient) call(ctx context.Context, op, id string, cost int, retryable bool, fn func(context.Context) error) error {
	cfg := a.retry
	if !retryable {
		cfg.MaxRetries = 0
	}

	if err := a.breaker.Allow(); err != nil {
		return &RemoteError{Op: op, ID: id, Err: err}
	}

	err := retry.Do(ctx, cfg, apiErrorClassifier, func(ctx context.Context) error {
		if err := a.limiter.Wait(ctx); err != nil {
			return err
		}
		a.trackQuotaUsage(cost)
		return fn(ctx)
	})
	a.breaker.Record(err)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrChannelNotFound) || errors.Is(err, ErrVideoNotFound) {
		return err
	}
	return &RemoteError{Op: op, ID: id, Err: err}
}

func (a *APIClient) trackQuotaUsage(units int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.quotaUsed += units
}

// playlistItemVideoID prefers contentDetails.videoId and falls back to the
// snippet resource id.
func playlistItemVideoID(item *youtube.PlaylistItem) string {
	if item == nil {
		return ""
	}
	if item.ContentDetails != nil && item.ContentDetails.VideoId != "" {
		return item.ContentDetails.VideoId
	}
	if item.Snippet != nil && item.Snippet.ResourceId != nil {
		return item.Snippet.ResourceId.VideoId
	}
	return ""
}

// apiErrorClassifier determines if an API error is retryable.
func apiErrorClassifier(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrChannelNotFound) || errors.Is(err, ErrVideoNotFound) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		for _, item := range apiErr.Errors {
			switch item.Reason {
			case "rateLimitExceeded", "userRateLimitExceeded":
				return true
			case "quotaExceeded", "dailyLimitExceeded":
				return false
			}
		}
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}

	// Transport faults (connection reset, DNS, TLS) are worth another try.
	return true
}
