// Package ytscrape collects a YouTube channel's metadata and the details of
// every video it uploaded, and merges them into two local datasets.
//
// Overview
//
// A run takes a free-text channel query and walks five stages:
//
//  1. resolve the query to a channel id with one channel-type search
//  2. fetch the channel detail and persist it to the channel dataset
//  3. walk the channel's uploads playlist page by page
//  4. fetch each video's detail, skipping ids that fail
//  5. persist the collected videos to the video dataset
//
// Datasets are merged, never overwritten: new rows are appended after the
// existing ones and the last row for each key wins. Channels are keyed by
// name and videos by title.
//
// Quick Start
//
//	cfg, err := config.Load("")
//	if err != nil {
//		log.Fatal(err)
//	}
//	scraper, err := ytscrape.Open(ctx, cfg, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer scraper.Close()
//
//	report, err := scraper.Run(ctx, "Example Channel")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("%s: %d videos\n", report.Channel.Name, len(report.Videos))
//
// Configuration
//
// Settings are read from, in increasing priority: built-in defaults, a TOML
// file (ytscrape.toml or ~/.config/ytscrape/config.toml) and the environment.
// A .env file in the working directory is loaded first. The Data API key comes
// from API_KEY or YTSCRAPE_API_KEY; a run cannot start without one.
//
// Error Handling
//
// Checking for sentinel errors:
//
//	if errors.Is(err, ytscrape.ErrChannelNotFound) {
//		fmt.Println("no such channel")
//	}
//
// Extracting remote fault details:
//
//	var remoteErr *ytscrape.RemoteError
//	if errors.As(err, &remoteErr) {
//		fmt.Printf("%s failed: %v\n", remoteErr.Op, remoteErr.Err)
//	}
//
// Per-video failures never fail a run; they are listed in Report.Failures.
//
// Sub-packages
//
//   - youtube: Data API client, Catalog interface and Collector
//   - internal/storage: records, merge, CSV and SQLite stores
//   - internal/config: configuration loading
//   - internal/retry: exponential backoff retry logic
package ytscrape
