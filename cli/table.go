package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"ytscrape"
)

func renderSummary(r *ytscrape.Report) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("ytscrape run " + r.RunID)

	rows := []table.Row{
		{"Channel", r.Channel.Name},
		{"Channel ID", r.ChannelID},
		{"Uploads playlist", r.Channel.UploadsPlaylistID},
		{"Videos listed", len(r.VideoIDs)},
		{"Videos collected", len(r.Videos)},
		{"Videos skipped", len(r.Failures)},
		{"Channel rows", mergeSummary(r.ChannelStats.Total, r.ChannelStats.Added, r.ChannelStats.Replaced)},
		{"Video rows", mergeSummary(r.VideoStats.Total, r.VideoStats.Added, r.VideoStats.Replaced)},
		{"Quota used (est.)", r.QuotaUsed},
	}
	tw.AppendRows(rows)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight},
	})
	return tw.Render()
}

func mergeSummary(total, added, replaced int) string {
	return strconv.Itoa(total) + " (" + strconv.Itoa(added) + " new, " + strconv.Itoa(replaced) + " updated)"
}

func renderFailures(failures []ytscrape.FetchFailure) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Skipped video", "Error"})
	for _, f := range failures {
		tw.AppendRow(table.Row{f.VideoID, f.Err.Error()})
	}
	return tw.Render()
}
