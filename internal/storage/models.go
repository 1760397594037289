package storage

import (
	"encoding/json"
)

// Dedup keys of the two datasets.
const (
	ChannelKey = "name"
	VideoKey   = "title"
)

// ChannelColumns is the header of the channel dataset.
var ChannelColumns = []string{
	"url",
	"name",
	"description",
	"creation_date",
	"country",
	"subscribers",
	"total_views",
	"total_videos",
	"topic_category",
	"uploads_playlist_id",
	"channel_id",
}

// VideoColumns is the header of the video dataset.
var VideoColumns = []string{
	"title",
	"description",
	"channel_name",
	"thumbnail",
	"tags",
	"category",
	"duration",
	"views",
	"likes",
	"comments",
	"upload_date",
	"video_id",
}

// ChannelRecord is one row of the channel dataset.
type ChannelRecord struct {
	URL               string   `json:"url"`
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	CreationDate      string   `json:"creation_date"` // RFC 3339
	Country           string   `json:"country"`
	Subscribers       string   `json:"subscribers"` // empty when hidden
	TotalViews        string   `json:"total_views"`
	TotalVideos       string   `json:"total_videos"`
	TopicCategory     []string `json:"topic_category"`
	UploadsPlaylistID string   `json:"uploads_playlist_id"`
	ChannelID         string   `json:"channel_id"`
}

// Row renders the record in ChannelColumns order.
func (c ChannelRecord) Row() []string {
	topics := c.TopicCategory
	if topics == nil {
		topics = []string{}
	}
	return []string{
		c.URL,
		c.Name,
		c.Description,
		c.CreationDate,
		c.Country,
		c.Subscribers,
		c.TotalViews,
		c.TotalVideos,
		encodeList(topics),
		c.UploadsPlaylistID,
		c.ChannelID,
	}
}

// VideoRecord is one row of the video dataset.
type VideoRecord struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ChannelName string   `json:"channel_name"`
	Thumbnail   string   `json:"thumbnail"`
	Tags        []string `json:"tags"` // nil when the video has no tags
	Category    string   `json:"category"`
	Duration    string   `json:"duration"` // ISO 8601, e.g. PT4M13S
	Views       string   `json:"views"`
	Likes       string   `json:"likes"`
	Comments    string   `json:"comments"`
	UploadDate  string   `json:"upload_date"`
	VideoID     string   `json:"video_id"`
}

// Row renders the record in VideoColumns order.
func (v VideoRecord) Row() []string {
	tags := ""
	if v.Tags != nil {
		tags = encodeList(v.Tags)
	}
	return []string{
		v.Title,
		v.Description,
		v.ChannelName,
		v.Thumbnail,
		tags,
		v.Category,
		v.Duration,
		v.Views,
		v.Likes,
		v.Comments,
		v.UploadDate,
		v.VideoID,
	}
}

// ChannelTable builds a channel dataset table from records, in order.
func ChannelTable(records ...ChannelRecord) Table {
	t := Table{Columns: append([]string(nil), ChannelColumns...)}
	for _, r := range records {
		t.Rows = append(t.Rows, r.Row())
	}
	return t
}

// VideoTable builds a video dataset table from records, in order.
func VideoTable(records []VideoRecord) Table {
	t := Table{Columns: append([]string(nil), VideoColumns...)}
	for _, r := range records {
		t.Rows = append(t.Rows, r.Row())
	}
	return t
}

// encodeList renders a string sequence as a JSON array cell.
func encodeList(items []string) string {
	b, err := json.Marshal(items)
	if err != nil {
		return ""
	}
	return string(b)
}
