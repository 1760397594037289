package ytscrape

import (
	"errors"

	"ytscrape/internal/config"
	"ytscrape/internal/retry"
	"ytscrape/internal/storage"
	"ytscrape/youtube"
)

// Type aliases for convenient error handling.
type (
	// RemoteError wraps a transport or API fault with the failed operation.
	RemoteError = youtube.RemoteError
	// FetchFailure records one video that was skipped.
	FetchFailure = youtube.FetchFailure
	// StorageError wraps errors during dataset reads and writes.
	StorageError = storage.StorageError
	// ExhaustedError reports a call that failed on every retry.
	ExhaustedError = retry.ExhaustedError
)

// ErrEmptyQuery indicates a run was started without a channel query.
var ErrEmptyQuery = errors.New("ytscrape: channel query is empty")

// Sentinel errors exported from sub-packages.
var (
	ErrMissingAPIKey     = config.ErrMissingAPIKey
	ErrChannelNotFound   = youtube.ErrChannelNotFound
	ErrVideoNotFound     = youtube.ErrVideoNotFound
	ErrNoUploadsPlaylist = youtube.ErrNoUploadsPlaylist
	ErrPageLimit         = youtube.ErrPageLimit

	// Storage errors
	ErrNotFound       = storage.ErrNotFound
	ErrStorageCorrupt = storage.ErrStorageCorrupt
	ErrLockTimeout    = storage.ErrLockTimeout
)
