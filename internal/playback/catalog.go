package playback

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Song is a catalog record. Path is relative to the media directory.
type Song struct {
	ID      string `yaml:"id" json:"id"`
	Title   string `yaml:"title" json:"title"`
	Artist  string `yaml:"artist,omitempty" json:"artist,omitempty"`
	Path    string `yaml:"path" json:"path"`
	Corrupt bool   `yaml:"corrupt,omitempty" json:"corrupt,omitempty"`
}

// Label renders "Title by Artist".
func (s Song) Label() string {
	if s.Artist == "" {
		return s.Title
	}
	return s.Title + " by " + s.Artist
}

// Catalog is an immutable set of songs in file order.
type Catalog struct {
	songs []Song
	byID  map[string]int
}

type catalogFile struct {
	Songs []Song `yaml:"songs"`
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	catalog, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog invalid: %v", err))
	}
	return catalog
}

// LoadCatalog reads a YAML catalog from path. An empty path returns the
// built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	catalog, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return catalog, nil
}

// ParseCatalog decodes and validates a YAML catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	catalog := &Catalog{byID: make(map[string]int, len(file.Songs))}
	for i, song := range file.Songs {
		song.ID = strings.TrimSpace(song.ID)
		if song.ID == "" {
			return nil, fmt.Errorf("song %d: id is required", i+1)
		}
		if _, dup := catalog.byID[song.ID]; dup {
			return nil, fmt.Errorf("song %q: duplicate id", song.ID)
		}
		if strings.TrimSpace(song.Title) == "" {
			song.Title = song.ID
		}
		catalog.byID[song.ID] = len(catalog.songs)
		catalog.songs = append(catalog.songs, song)
	}
	return catalog, nil
}

// Lookup finds a song by id.
func (c *Catalog) Lookup(id string) (Song, bool) {
	idx, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return Song{}, false
	}
	return c.songs[idx], true
}

// Songs returns every song in catalog order.
func (c *Catalog) Songs() []Song {
	out := make([]Song, len(c.songs))
	copy(out, c.songs)
	return out
}

// Len reports the number of songs.
func (c *Catalog) Len() int { return len(c.songs) }
