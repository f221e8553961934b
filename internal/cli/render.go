package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/johnrirwin/journalfeed/internal/journal"
	"github.com/johnrirwin/journalfeed/internal/models"
	"github.com/johnrirwin/journalfeed/internal/pages"
)

var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}
	colorDim     = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#626262"}
	colorAccent  = lipgloss.AdaptiveColor{Light: "#F25D94", Dark: "#F25D94"}
	colorGreen   = lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#25D366"}
	colorWarn    = lipgloss.AdaptiveColor{Light: "#C77C02", Dark: "#F2B155"}

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent).
			MarginTop(1)

	titleStyle = lipgloss.NewStyle().
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	okStyle = lipgloss.NewStyle().
		Foreground(colorGreen)

	warnStyle = lipgloss.NewStyle().
			Foreground(colorWarn)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)
)

func renderHome(w io.Writer, feeds []journal.Feed, res pages.Result[map[journal.Feed]pages.FeedResult]) {
	fmt.Fprintln(w, headerStyle.Render("Journal homepage")+" "+statusBadge(res.Status, res.Stale))
	if res.Status == pages.StatusFailed {
		fmt.Fprintln(w, errorLine(res.Err))
		return
	}
	for _, feed := range feeds {
		section, ok := res.Value[feed]
		if !ok {
			continue
		}
		renderFeed(w, cases.Title(language.English).String(string(feed)), section)
	}
}

func renderVolumes(w io.Writer, res pages.Result[[]models.Volume]) {
	fmt.Fprintln(w, headerStyle.Render("Volumes")+" "+statusBadge(res.Status, res.Stale))
	if res.Status == pages.StatusFailed {
		fmt.Fprintln(w, errorLine(res.Err))
		return
	}
	if res.Empty {
		fmt.Fprintln(w, dimStyle.Render("No volumes published yet."))
		return
	}
	for _, v := range res.Value {
		line := fmt.Sprintf("%5d  %s", v.IssueID, titleStyle.Render(volumeName(v)))
		if v.ArticlesCount > 0 {
			line += dimStyle.Render(fmt.Sprintf("  %d articles", v.ArticlesCount))
		}
		if v.IsCurrent {
			line += " " + okStyle.Render("current")
		}
		fmt.Fprintln(w, line)
	}
}

func renderVolume(w io.Writer, res pages.Result[pages.VolumeView]) {
	if res.Status == pages.StatusFailed {
		fmt.Fprintln(w, headerStyle.Render("Volume")+" "+statusBadge(res.Status, res.Stale))
		fmt.Fprintln(w, errorLine(res.Err))
		return
	}

	issue := res.Value.Detail.Issue
	fmt.Fprintln(w, headerStyle.Render(volumeName(issue))+" "+statusBadge(res.Status, res.Stale))
	if issue.JournalTitle != "" {
		fmt.Fprintln(w, dimStyle.Render(issue.JournalTitle))
	}

	fmt.Fprintln(w, sectionStyle.Render("Articles"))
	if len(res.Value.Detail.Articles) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  No articles in this volume."))
	}
	for _, a := range res.Value.Detail.Articles {
		renderArticleLine(w, a)
	}
	renderFeed(w, "Recommended", res.Value.Recommendations)
}

func renderArticle(w io.Writer, res pages.Result[pages.ArticleView]) {
	if res.Status == pages.StatusFailed {
		fmt.Fprintln(w, headerStyle.Render("Article")+" "+statusBadge(res.Status, res.Stale))
		fmt.Fprintln(w, errorLine(res.Err))
		return
	}

	a := res.Value.Article
	fmt.Fprintln(w, headerStyle.Render(a.Title)+" "+statusBadge(res.Status, res.Stale))
	if a.AuthorLine != "" {
		fmt.Fprintln(w, a.AuthorLine)
	}
	fmt.Fprintln(w, dimStyle.Render(volumeName(res.Value.Volume)))
	if a.Abstract != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, lipgloss.NewStyle().Width(80).Render(a.Abstract))
	}
	if a.URL != "" {
		fmt.Fprintln(w, dimStyle.Italic(true).Render(a.URL))
	}

	renderFeed(w, "Similar articles", res.Value.Similar)
	renderFeed(w, "You may also like", res.Value.Hybrid)
}

func renderSystem(w io.Writer, res pages.Result[pages.SystemReport]) {
	fmt.Fprintln(w, headerStyle.Render("System status")+" "+statusBadge(res.Status, res.Stale))
	if res.Status == pages.StatusFailed {
		fmt.Fprintln(w, errorLine(res.Err))
		return
	}

	report := res.Value
	fmt.Fprintf(w, "local cache: %s\n", report.CacheBackend)
	if h := report.Health; h != nil {
		style := okStyle
		if !h.Healthy() {
			style = warnStyle
		}
		fmt.Fprintf(w, "health: %s", style.Render(h.Status))
		if h.Version != "" {
			fmt.Fprintf(w, " %s", dimStyle.Render("v"+h.Version))
		}
		fmt.Fprintln(w)
	}
	renderStats(w, report.Stats)

	for label, err := range res.Failures {
		fmt.Fprintf(w, "%s %s\n", warnStyle.Render(label+":"), err.Message)
	}
}

func renderConnectivity(w io.Writer, conn models.Connectivity) {
	if conn.Online {
		fmt.Fprintln(w, okStyle.Render("online")+" "+dimStyle.Render(conn.Status))
		return
	}
	fmt.Fprintln(w, errorStyle.Render("offline")+" "+dimStyle.Render(conn.Status))
}

func renderFeed(w io.Writer, label string, f pages.FeedResult) {
	heading := label
	if f.Stale {
		heading += " " + warnStyle.Render("(stale)")
	}
	fmt.Fprintln(w, sectionStyle.Render(heading))

	switch {
	case f.Failed():
		fmt.Fprintln(w, "  "+errorLine(f.Err))
	case len(f.Articles) == 0:
		fmt.Fprintln(w, dimStyle.Render("  Nothing to show."))
	default:
		for _, a := range f.Articles {
			renderArticleLine(w, a)
		}
	}
}

func renderArticleLine(w io.Writer, a models.Article) {
	line := "  " + titleStyle.Render(a.Title)
	if a.AuthorLine != "" {
		line += dimStyle.Render(" · " + a.AuthorLine)
	}
	fmt.Fprintln(w, line)
}

func renderStats(w io.Writer, st models.SystemStats) {
	fmt.Fprintln(w, sectionStyle.Render("Recommendations"))
	if st.SystemStatus != "" {
		fmt.Fprintf(w, "  %s %s\n", dimStyle.Render("system:"), st.SystemStatus)
	}
	scheduler := warnStyle.Render("stopped")
	if st.SchedulerRunning {
		scheduler = okStyle.Render("running")
	}
	fmt.Fprintf(w, "  %s %s\n", dimStyle.Render("scheduler:"), scheduler)
	fmt.Fprintf(w, "  %s %d\n", dimStyle.Render("articles with recommendations:"), st.ArticlesWithRecommendations)
	fmt.Fprintf(w, "  %s %d\n", dimStyle.Render("recommendations:"), st.TotalRecommendations)
	fmt.Fprintf(w, "  %s %.0f%%\n", dimStyle.Render("average similarity:"), st.AverageSimilarity*100)
	fmt.Fprintf(w, "  %s %d\n", dimStyle.Render("cached pairs:"), st.CacheRecords)
}

func statusBadge(status pages.Status, stale bool) string {
	var badge string
	switch status {
	case pages.StatusSuccess:
		badge = okStyle.Render("[ok]")
	case pages.StatusPartialSuccess:
		badge = warnStyle.Render("[partial]")
	case pages.StatusFailed:
		badge = errorStyle.Render("[failed]")
	default:
		badge = dimStyle.Render("[" + string(status) + "]")
	}
	if stale {
		badge += " " + warnStyle.Render("[stale]")
	}
	return badge
}

func errorLine(err *pages.LoadError) string {
	if err == nil {
		return errorStyle.Render("Something went wrong.")
	}
	switch err.Category {
	case pages.CategoryNotFound:
		return errorStyle.Render("Not found: ") + err.Message
	case pages.CategoryConnectivity:
		return errorStyle.Render("Cannot reach the journal API: ") + err.Message
	case pages.CategoryMalformedResponse:
		return errorStyle.Render("Unexpected response from the journal API: ") + err.Message
	default:
		return errorStyle.Render("The journal API returned an error: ") + err.Message
	}
}

func volumeName(v models.Volume) string {
	switch {
	case v.DisplayName != "":
		return v.DisplayName
	case v.Title != "":
		return v.Title
	default:
		return fmt.Sprintf("Issue %d", v.IssueID)
	}
}
