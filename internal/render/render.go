// Package render writes the static mixdisc site from processed playlists.
//
// Templates are embedded in the binary; a template_dir config entry overrides
// them for local customization without rebuilding.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mixdisc/internal/models"
	"github.com/desertthunder/mixdisc/internal/shared"
)

//go:embed templates/*.html
var templateFS embed.FS

// SiteRenderer renders processed playlists to static HTML.
type SiteRenderer struct {
	templates *template.Template
	outputDir string
	logger    *log.Logger
}

// sitePage is the root template context.
type sitePage struct {
	GeneratedAt time.Time
	Playlists   []playlistView
}

type playlistView struct {
	User          string
	Title         string
	Description   string
	Genre         string
	TotalDuration string
	TrackCount    int
	Frozen        bool
	FrozenNotice  string
	FrozenAt      time.Time
	SnapshotDate  time.Time
	Tracks        []trackView
}

type trackView struct {
	Artist   string
	Title    string
	Album    string
	Duration string
	Link     string
	Missing  bool
	Entry    string // original submission line for unresolved tracks
}

// NewSiteRenderer creates a SiteRenderer writing to outputDir. A non-empty
// templateDir replaces the embedded templates.
func NewSiteRenderer(outputDir, templateDir string, logger *log.Logger) (*SiteRenderer, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	funcs := template.FuncMap{
		"duration": shared.FormatDuration,
		"date":     func(t time.Time) string { return t.Format("January 2, 2006") },
	}

	var (
		tmpl *template.Template
		err  error
	)
	if templateDir != "" {
		tmpl, err = template.New("").Funcs(funcs).ParseGlob(filepath.Join(templateDir, "*.html"))
	} else {
		tmpl, err = template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &SiteRenderer{templates: tmpl, outputDir: outputDir, logger: logger}, nil
}

// RenderSite writes index.html for the given playlists.
func (r *SiteRenderer) RenderSite(playlists []*models.ProcessedPlaylist) error {
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	page := sitePage{GeneratedAt: time.Now().UTC()}
	for _, processed := range playlists {
		page.Playlists = append(page.Playlists, r.playlistView(processed))
	}

	path := filepath.Join(r.outputDir, "index.html")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if err := r.templates.ExecuteTemplate(file, "index.html", page); err != nil {
		return fmt.Errorf("failed to render index: %w", err)
	}

	r.logger.Info("site rendered", "playlists", len(page.Playlists), "output", path)
	return nil
}

func (r *SiteRenderer) playlistView(processed *models.ProcessedPlaylist) playlistView {
	sub := processed.Submission
	playlist := processed.Playlist

	view := playlistView{
		User:          sub.User,
		Title:         sub.Title,
		Description:   sub.Description,
		Genre:         sub.Genre,
		TotalDuration: shared.FormatDuration(playlist.TotalDuration),
		TrackCount:    playlist.TrackCount(),
	}

	if processed.Warning != nil {
		view.Frozen = true
		view.FrozenNotice = processed.Warning.Message
		view.FrozenAt = processed.Warning.FrozenAt
		view.SnapshotDate = processed.Warning.FrozenVersionDate
	}

	for i, track := range playlist.Tracks {
		if track == nil {
			// Manual entries the service could not resolve keep their
			// submitted text so the page still shows the full list.
			entry := ""
			if i < len(sub.Entries) {
				entry = sub.Entries[i].Artist + " - " + sub.Entries[i].Title
			}
			view.Tracks = append(view.Tracks, trackView{Missing: true, Entry: entry})
			continue
		}
		view.Tracks = append(view.Tracks, trackView{
			Artist:   track.Artist,
			Title:    track.Title,
			Album:    track.Album,
			Duration: shared.FormatDuration(track.Duration),
			Link:     track.Link,
		})
	}

	return view
}
