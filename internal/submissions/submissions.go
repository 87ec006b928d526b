// package submissions loads contributor playlist files from the mixdisc directory.
//
// Each YAML file declares either a manual track list ("Artist - Title" entries,
// optionally suffixed with "(Album)") or a remote playlist URL, never both.
package submissions

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/desertthunder/mixdisc/internal/models"
	"github.com/desertthunder/mixdisc/internal/services"
	"github.com/desertthunder/mixdisc/internal/shared"
	"gopkg.in/yaml.v3"
)

// submissionFile mirrors the on-disk YAML layout.
type submissionFile struct {
	User        string   `yaml:"user"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Genre       string   `yaml:"genre"`
	Playlist    []string `yaml:"playlist"`
	RemoteURL   string   `yaml:"remote_playlist"`
}

// Load parses a single submission file.
func Load(path string) (*models.Submission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read submission file: %w", err)
	}

	var file submissionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", shared.ErrInvalidSubmission, path, err)
	}

	if file.User == "" || file.Title == "" {
		return nil, fmt.Errorf("%w: %s is missing user or title", shared.ErrInvalidSubmission, path)
	}

	hasTracks := len(file.Playlist) > 0
	hasRemote := file.RemoteURL != ""

	if hasTracks == hasRemote {
		return nil, fmt.Errorf("%w: %s must declare exactly one of playlist or remote_playlist", shared.ErrInvalidSubmission, path)
	}

	sub := &models.Submission{
		User:        file.User,
		Title:       file.Title,
		Description: file.Description,
		Genre:       file.Genre,
		Filepath:    path,
		ContentHash: hashContent(data),
	}

	if hasRemote {
		remote, err := services.ParsePlaylistURL(file.RemoteURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", shared.ErrInvalidSubmission, path, err)
		}
		sub.Remote = remote
		return sub, nil
	}

	entries := make([]models.TrackEntry, 0, len(file.Playlist))
	for _, line := range file.Playlist {
		entry, err := ParseEntry(line)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", shared.ErrInvalidSubmission, path, err)
		}
		entries = append(entries, entry)
	}
	sub.Entries = entries

	return sub, nil
}

// LoadDir loads every .yaml submission in a directory, sorted by filename.
// Files that fail to parse are returned in errs alongside the successes so one
// broken submission never hides the rest.
func LoadDir(dir string) ([]*models.Submission, map[string]error, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("mixdisc directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("mixdisc directory %s is not a directory", dir)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to glob submissions: %w", err)
	}
	sort.Strings(matches)

	var subs []*models.Submission
	errs := make(map[string]error)

	for _, path := range matches {
		sub, err := Load(path)
		if err != nil {
			errs[path] = err
			continue
		}
		subs = append(subs, sub)
	}

	return subs, errs, nil
}

// ParseEntry splits an "Artist - Title" playlist line, honoring an optional
// trailing "(Album)" suffix. The first " - " is the separator so titles may
// themselves contain dashes.
func ParseEntry(line string) (models.TrackEntry, error) {
	artist, rest, found := strings.Cut(line, " - ")
	if !found || strings.TrimSpace(artist) == "" || strings.TrimSpace(rest) == "" {
		return models.TrackEntry{}, fmt.Errorf("entry %q is not in 'Artist - Title' form", line)
	}

	entry := models.TrackEntry{Artist: strings.TrimSpace(artist)}

	title := strings.TrimSpace(rest)
	if strings.HasSuffix(title, ")") {
		if idx := strings.LastIndex(title, "("); idx > 0 {
			entry.Album = strings.TrimSpace(title[idx+1 : len(title)-1])
			title = strings.TrimSpace(title[:idx])
		}
	}
	entry.Title = title

	return entry, nil
}

// CheckUniqueness finds submissions that collide on the (user, title) key.
// Returns (original, duplicate) pairs in load order.
func CheckUniqueness(subs []*models.Submission) [][2]*models.Submission {
	seen := make(map[string]*models.Submission)
	var dupes [][2]*models.Submission

	for _, sub := range subs {
		key := strings.ToLower(sub.Key())
		if original, ok := seen[key]; ok {
			dupes = append(dupes, [2]*models.Submission{original, sub})
			continue
		}
		seen[key] = sub
	}

	return dupes
}

// hashContent returns the hex SHA-256 digest of the raw file bytes.
func hashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
