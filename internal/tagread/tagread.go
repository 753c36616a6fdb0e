// Package tagread builds the local entity to match from audio files on disk.
// A single file is a track; a directory with more than one audio file is an album.
package tagread

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dhowden/tag"

	"github.com/sydlexius/autotagger/internal/provider"
)

// ErrNoAudio is returned when a directory holds no supported audio files.
var ErrNoAudio = errors.New("no audio files found")

var audioExts = map[string]bool{
	".mp3":  true,
	".flac": true,
	".m4a":  true,
	".m4b":  true,
	".mp4":  true,
	".aac":  true,
	".ogg":  true,
	".opus": true,
	".dsf":  true,
}

// IsAudio reports whether path has a supported audio extension.
func IsAudio(path string) bool {
	return audioExts[strings.ToLower(filepath.Ext(path))]
}

// fileTags is what one file contributes.
type fileTags struct {
	path        string
	title       string
	artist      string
	albumArtist string
	album       string
	year        int
	track       int
	disc        int
	duration    *time.Duration
}

// Read reads path, which may be a file or a directory.
func Read(path string) (*provider.LocalEntity, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if info.IsDir() {
		return ReadDir(path)
	}
	return ReadFile(path)
}

// ReadFile reads a single track. Files without tags are matched by their
// file name.
func ReadFile(path string) (*provider.LocalEntity, error) {
	ft, err := readTags(path)
	if err != nil {
		return nil, err
	}
	return &provider.LocalEntity{
		Title:      provider.Text(ft.title),
		Artist:     provider.Text(ft.artist),
		Album:      provider.Text(ft.album),
		TrackIndex: provider.Number(ft.track),
		Year:       provider.Number(ft.year),
		Duration:   ft.duration,
	}, nil
}

// ReadDir reads the audio files directly inside dir. More than one file
// yields an album whose release fields are the values most files agree on.
func ReadDir(dir string) (*provider.LocalEntity, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	var files []fileTags
	for _, e := range entries {
		if e.IsDir() || !IsAudio(e.Name()) {
			continue
		}
		ft, err := readTags(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		files = append(files, ft)
	}
	switch len(files) {
	case 0:
		return nil, fmt.Errorf("%s: %w", dir, ErrNoAudio)
	case 1:
		return ReadFile(files[0].path)
	}

	slices.SortStableFunc(files, func(a, b fileTags) int {
		if c := cmp.Compare(a.disc, b.disc); c != 0 {
			return c
		}
		if c := cmp.Compare(a.track, b.track); c != 0 {
			return c
		}
		return strings.Compare(a.path, b.path)
	})

	albums := make([]string, 0, len(files))
	artists := make([]string, 0, len(files))
	years := make([]string, 0, len(files))
	for _, f := range files {
		albums = append(albums, f.album)
		artist := f.albumArtist
		if artist == "" {
			artist = f.artist
		}
		artists = append(artists, artist)
		if f.year > 0 {
			years = append(years, strconv.Itoa(f.year))
		}
	}
	year, _ := strconv.Atoi(mostCommon(years))

	local := &provider.LocalEntity{
		Title:  provider.Text(mostCommon(albums)),
		Artist: provider.Text(mostCommon(artists)),
		Year:   provider.Number(year),
	}
	if local.Title == nil {
		local.Title = provider.Text(filepath.Base(dir))
	}
	multiDisc := files[len(files)-1].disc > 1
	for i, f := range files {
		index := f.track
		// Track numbers restart per disc; use running position instead.
		if multiDisc || index <= 0 {
			index = i + 1
		}
		local.Tracks = append(local.Tracks, provider.LocalTrack{
			Title:    provider.Text(f.title),
			Artist:   provider.Text(f.artist),
			Index:    provider.Number(index),
			Duration: f.duration,
		})
	}
	return local, nil
}

func readTags(path string) (fileTags, error) {
	ft := fileTags{path: path}
	f, err := os.Open(path) //nolint:gosec // path chosen by the operator
	if err != nil {
		return ft, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	m, err := tag.ReadFrom(f)
	if errors.Is(err, tag.ErrNoTagsFound) {
		ft.title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		return ft, nil
	}
	if err != nil {
		return ft, fmt.Errorf("reading tags from %s: %w", path, err)
	}

	ft.title = clean(m.Title())
	ft.artist = clean(m.Artist())
	ft.albumArtist = clean(m.AlbumArtist())
	ft.album = clean(m.Album())
	ft.year = m.Year()
	ft.track, _ = m.Track()
	ft.disc, _ = m.Disc()
	ft.duration = rawLength(m.Raw())
	if ft.title == "" {
		ft.title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return ft, nil
}

// rawLength reads the ID3 TLEN frame (milliseconds) when present.
func rawLength(raw map[string]interface{}) *time.Duration {
	for _, key := range []string{"TLEN", "TLE"} {
		s, ok := raw[key].(string)
		if !ok {
			continue
		}
		ms, err := strconv.Atoi(strings.TrimSpace(s))
		if err == nil {
			return provider.Millis(ms)
		}
	}
	return nil
}

// mostCommon returns the most frequent non-empty value, preferring the one
// seen first on a tie.
func mostCommon(values []string) string {
	counts := make(map[string]int, len(values))
	best, bestN := "", 0
	for _, v := range values {
		if v == "" {
			continue
		}
		counts[v]++
		if counts[v] > bestN {
			best, bestN = v, counts[v]
		}
	}
	return best
}

func clean(s string) string {
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}
