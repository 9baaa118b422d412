package playback

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"drq/internal/services"
)

// Resource is a loaded song. Release must be safe to call more than once.
type Resource interface {
	Release() error
}

// Player acquires the media for a song.
type Player interface {
	Load(ctx context.Context, song Song) (Resource, error)
}

// NullPlayer accepts every song without touching the filesystem.
type NullPlayer struct{}

func (NullPlayer) Load(ctx context.Context, _ Song) (Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nopResource{}, nil
}

type nopResource struct{}

func (nopResource) Release() error { return nil }

// FilePlayer opens song files under a media directory.
type FilePlayer struct {
	dir string
}

// NewFilePlayer roots the player at dir.
func NewFilePlayer(dir string) *FilePlayer {
	return &FilePlayer{dir: dir}
}

// PathFor resolves the media file of song.
func (p *FilePlayer) PathFor(song Song) string {
	name := song.Path
	if strings.TrimSpace(name) == "" {
		name = song.ID + ".mp3"
	}
	return filepath.Join(p.dir, filepath.Clean(string(filepath.Separator)+name))
}

// Load opens the file and keeps the handle until Release. Missing or empty
// files are reported as corrupt resources; they may be restored between
// attempts.
func (p *FilePlayer) Load(ctx context.Context, song Song) (Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := p.PathFor(song)
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrResourceCorrupt, "playback", "load", fmt.Sprintf("media file %s missing", filepath.Base(path)), err)
		}
		return nil, services.Wrap(services.ErrUnknown, "playback", "load", "open media file", err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, services.Wrap(services.ErrUnknown, "playback", "load", "stat media file", err)
	}
	if info.IsDir() || info.Size() == 0 {
		_ = file.Close()
		return nil, services.Wrap(services.ErrResourceCorrupt, "playback", "load", fmt.Sprintf("media file %s is empty", filepath.Base(path)), nil)
	}
	return &fileResource{file: file}, nil
}

type fileResource struct {
	file *os.File
}

func (r *fileResource) Release() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
