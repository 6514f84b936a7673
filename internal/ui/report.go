package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/tasks"
	"github.com/dustin/go-humanize"
)

// RenderRunReport formats the outcome of a sync run: one line per source,
// a totals line, and the recorded snapshot id when the run produced one.
func RenderRunReport(run *tasks.RunResult) string {
	var b strings.Builder

	b.WriteString(styles.title.Render("Sync Run") + "\n")
	for _, result := range run.Results {
		b.WriteString(sourceLine(result) + "\n")
	}

	b.WriteString("\n" + totalsLine(run) + "\n")
	if run.Snapshot != nil {
		b.WriteString(styles.help.Render(fmt.Sprintf("run %s recorded", run.Snapshot.ID)) + "\n")
	}

	return b.String()
}

func sourceLine(result tasks.SourceResult) string {
	name := fmt.Sprintf("%-20s", result.Source)

	switch {
	case result.Failed():
		return fmt.Sprintf("  %s %s %v", styles.err.Render("✗"), name, result.Err)
	case result.Skipped:
		return fmt.Sprintf("  %s %s %s", styles.help.Render("⏭"), name, styles.help.Render(result.Reason))
	}

	mark := styles.ok
	if result.Aborted != "" {
		mark = styles.warn
	}
	line := fmt.Sprintf("  %s %s %s records", mark.Render("✓"), name, humanize.Comma(result.Records))
	if result.Tracks > 0 {
		line += fmt.Sprintf(", %s tracks", humanize.Comma(result.Tracks))
	}
	if result.DistinctTitles > 0 {
		line += fmt.Sprintf(" (%s distinct titles)", humanize.Comma(result.DistinctTitles))
	}
	if result.Aborted != "" {
		line += "  " + styles.warn.Render("partial: "+result.Aborted)
	}
	return line
}

func totalsLine(run *tasks.RunResult) string {
	skipped := 0
	for _, result := range run.Results {
		if result.Skipped {
			skipped++
		}
	}

	failed := len(run.Failures())
	line := fmt.Sprintf("%d synced, %d skipped, %d failed in %s",
		run.Synced(), skipped, failed, run.Elapsed.Round(time.Millisecond))
	if failed > 0 {
		return styles.warn.Render(line)
	}
	return styles.ok.Render(line)
}

// RenderLedger formats the sync ledger as a status table, one row per
// source in provisioning order.
func RenderLedger(entries []*models.LedgerEntry) string {
	var b strings.Builder

	b.WriteString(styles.title.Render("Sync Ledger") + "\n")
	b.WriteString(styles.help.Render(fmt.Sprintf("  %-20s %-26s %10s  %s",
		"SOURCE", "STATUS", "RECORDS", "LAST SYNC")) + "\n")
	for _, entry := range entries {
		b.WriteString(ledgerLine(entry) + "\n")
	}

	return b.String()
}

func ledgerLine(entry *models.LedgerEntry) string {
	status := entry.SyncStatus
	style := styles.help
	switch {
	case status == "":
		status = "never synced"
	case status == "success":
		style = styles.ok
	case strings.HasPrefix(status, "partial"):
		style = styles.warn
	case strings.HasPrefix(status, "failed"):
		style = styles.err
	}

	last := "never"
	if entry.LastSync != nil {
		last = humanize.Time(*entry.LastSync)
	}

	return fmt.Sprintf("  %-20s %s %10s  %s",
		entry.Source,
		style.Render(fmt.Sprintf("%-26s", status)),
		humanize.Comma(entry.RecordsCount),
		styles.help.Render(last))
}

// RenderSnapshot formats the table counts captured at the end of a full run.
func RenderSnapshot(snap *models.RunSnapshot) string {
	var b strings.Builder

	header := "Last Full Run " + snap.CreatedAt.Format("2006-01-02 15:04")
	if snap.Forced {
		header += " (forced)"
	}
	b.WriteString(styles.title.Render(header) + "\n")

	rows := []struct {
		label string
		count int64
	}{
		{"Roon albums", snap.RoonAlbums},
		{"Roon tracks", snap.RoonTracks},
		{"Play history", snap.RoonPlayHistory},
		{"Discogs releases", snap.DiscogsCollection},
		{"Discogs tracks", snap.DiscogsTracks},
		{"Wantlist", snap.DiscogsWantlist},
		{"Track index", snap.TrackIndex},
	}
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("  %-20s %10s\n", row.label, humanize.Comma(row.count)))
	}

	b.WriteString(styles.help.Render("  completed in "+snap.Duration.Round(time.Millisecond).String()) + "\n")

	return b.String()
}

// RenderStats formats the library overview: raw table counts followed by
// the cross-source numbers derived from match keys and flags.
func RenderStats(stats *models.LibraryStats) string {
	var b strings.Builder

	b.WriteString(styles.title.Render("Library Overview") + "\n")
	counts := []struct {
		label string
		count int64
	}{
		{"Roon albums", stats.RoonAlbums},
		{"Roon tracks", stats.RoonTracks},
		{"Play history", stats.RoonPlayHistory},
		{"Discogs releases", stats.DiscogsCollection},
		{"Discogs tracks", stats.DiscogsTracks},
		{"Wantlist", stats.DiscogsWantlist},
		{"Track index", stats.TrackIndex},
		{"Listening log", stats.ListeningHistory},
	}
	for _, row := range counts {
		b.WriteString(fmt.Sprintf("  %-20s %10s\n", row.label, humanize.Comma(row.count)))
	}

	b.WriteString("\n" + styles.title.Render("Across Sources") + "\n")
	derived := []struct {
		label string
		count int64
	}{
		{"In Roon and Discogs", stats.AlbumsInBoth},
		{"Physical duplicates", stats.PhysicalDupes},
		{"Currently owned", stats.InCollection},
		{"Wants available", stats.WantlistAvailable},
	}
	for _, row := range derived {
		b.WriteString(fmt.Sprintf("  %-20s %10s\n", row.label, humanize.Comma(row.count)))
	}
	b.WriteString(fmt.Sprintf("  %-20s %10s\n", "Wantlist value",
		"$"+humanize.FormatFloat("#,###.##", stats.WantlistValue)))

	return b.String()
}

// RenderSearchResults formats cross-source search hits grouped under the
// query term.
func RenderSearchResults(term string, results []models.SearchResult) string {
	if len(results) == 0 {
		return styles.warn.Render(fmt.Sprintf("No matches for %q", term)) + "\n"
	}

	var b strings.Builder
	b.WriteString(styles.title.Render(fmt.Sprintf("Search: %s", term)) + "\n")
	for _, result := range results {
		line := fmt.Sprintf("  %s %s - %s",
			styles.help.Render(fmt.Sprintf("[%-8s]", result.Source)),
			result.Artist, result.AlbumTitle)
		if result.Year > 0 {
			line += fmt.Sprintf(" (%d)", result.Year)
		}
		b.WriteString(line + "\n")
	}

	return b.String()
}

// RenderListens formats the recent listening log, newest first.
func RenderListens(entries []models.ListeningEntry) string {
	if len(entries) == 0 {
		return styles.help.Render("No listens logged yet") + "\n"
	}

	var b strings.Builder
	b.WriteString(styles.title.Render("Recent Listens") + "\n")
	for _, entry := range entries {
		line := fmt.Sprintf("  %s  %s - %s  %s",
			entry.ListenedAt.Format("2006-01-02"),
			entry.Artist, entry.AlbumTitle,
			styles.help.Render("["+entry.Source+"]"))
		if entry.Notes != "" {
			line += "  " + styles.help.Render(entry.Notes)
		}
		b.WriteString(line + "\n")
	}

	return b.String()
}
