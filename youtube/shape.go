package youtube

import (
	"strconv"

	"google.golang.org/api/youtube/v3"

	"ytscrape/internal/storage"
)

// ShapeChannel flattens a Data API channel into a ChannelRecord. Missing
// parts leave the matching fields empty.
func ShapeChannel(ch *youtube.Channel) storage.ChannelRecord {
	rec := storage.ChannelRecord{TopicCategory: []string{}}
	if ch == nil {
		return rec
	}
	rec.ChannelID = ch.Id

	if s := ch.Snippet; s != nil {
		rec.URL = s.CustomUrl
		rec.Name = s.Title
		rec.Description = s.Description
		rec.CreationDate = s.PublishedAt
		rec.Country = s.Country
	}
	if st := ch.Statistics; st != nil {
		if !st.HiddenSubscriberCount {
			rec.Subscribers = formatCount(st.SubscriberCount)
		}
		rec.TotalViews = formatCount(st.ViewCount)
		rec.TotalVideos = formatCount(st.VideoCount)
	}
	if td := ch.TopicDetails; td != nil && td.TopicCategories != nil {
		rec.TopicCategory = td.TopicCategories
	}
	if cd := ch.ContentDetails; cd != nil && cd.RelatedPlaylists != nil {
		rec.UploadsPlaylistID = cd.RelatedPlaylists.Uploads
	}
	return rec
}

// ShapeVideo flattens a Data API video into a VideoRecord.
func ShapeVideo(v *youtube.Video) storage.VideoRecord {
	var rec storage.VideoRecord
	if v == nil {
		return rec
	}
	rec.VideoID = v.Id

	if s := v.Snippet; s != nil {
		rec.Title = s.Title
		rec.Description = s.Description
		rec.ChannelName = s.ChannelTitle
		rec.Tags = s.Tags
		rec.Category = s.CategoryId
		rec.UploadDate = s.PublishedAt
		if s.Thumbnails != nil && s.Thumbnails.Default != nil {
			rec.Thumbnail = s.Thumbnails.Default.Url
		}
	}
	if cd := v.ContentDetails; cd != nil {
		rec.Duration = cd.Duration
	}
	if st := v.Statistics; st != nil {
		rec.Views = formatCount(st.ViewCount)
		rec.Likes = formatCount(st.LikeCount)
		rec.Comments = formatCount(st.CommentCount)
	}
	return rec
}

func formatCount(n uint64) string {
	return strconv.FormatUint(n, 10)
}
