// Package youtube fetches channel and video metadata from the YouTube Data
// API and shapes it into dataset records.
package youtube

import (
	"context"
	"errors"

	"google.golang.org/api/youtube/v3"
)

// Sentinel errors for catalog operations.
var (
	ErrChannelNotFound   = errors.New("youtube: channel not found")
	ErrVideoNotFound     = errors.New("youtube: video not found")
	ErrNoUploadsPlaylist = errors.New("youtube: channel has no uploads playlist")
	ErrPageLimit         = errors.New("youtube: page limit reached")
	ErrMissingAPIKey     = errors.New("youtube: api key required")
)

// Catalog is the remote side of a collection run. APIClient implements it
// against the Data API; tests substitute fakes.
type Catalog interface {
	// SearchChannel returns the id of the first channel matching query.
	SearchChannel(ctx context.Context, query string) (string, error)
	// Channel returns snippet, statistics, content details and topics.
	Channel(ctx context.Context, channelID string) (*youtube.Channel, error)
	// PlaylistPage returns one page of a playlist's video ids.
	PlaylistPage(ctx context.Context, playlistID, pageToken string, pageSize int64) (*PlaylistPage, error)
	// Video returns snippet, statistics and content details of one video.
	Video(ctx context.Context, videoID string) (*youtube.Video, error)
}

// PlaylistPage is one page of playlist items.
type PlaylistPage struct {
	// VideoIDs holds the referenced video ids in playlist order.
	VideoIDs []string
	// NextPageToken is empty on the last page.
	NextPageToken string
}

// RemoteError wraps a transport or API fault with the operation that failed.
// Use errors.As() to extract it:
//
//	var remoteErr *youtube.RemoteError
//	if errors.As(err, &remoteErr) {
//		fmt.Printf("%s %s failed: %v\n", remoteErr.Op, remoteErr.ID, remoteErr.Err)
//	}
type RemoteError struct {
	// Op is the API operation ("search", "channels", "playlistItems", "videos").
	Op string
	// ID is the query or identifier the operation was called with.
	ID string
	// Err is the underlying error.
	Err error
}

// Error returns a string representation of the remote error.
func (e *RemoteError) Error() string {
	return "youtube: " + e.Op + " " + e.ID + ": " + e.Err.Error()
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *RemoteError) Unwrap() error { return e.Err }

// FetchFailure records one video that could not be collected. Failures are
// reported next to the successes instead of aborting the batch.
type FetchFailure struct {
	VideoID string
	Err     error
}

func (f FetchFailure) Error() string {
	return "youtube: video " + f.VideoID + ": " + f.Err.Error()
}

func (f FetchFailure) Unwrap() error { return f.Err }
