package journal

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"hftexec/internal/bus"
	"hftexec/internal/errors"
	"hftexec/pkg/exception"
)

// Playback reads every segment in a journal directory in write order.
type Playback struct {
	Dir          string
	FilePrefix   string
	Topics       []string
	SkipChecksum bool
}

// Segments lists the segment files of the journal, oldest first.
func (p Playback) Segments() ([]string, error) {
	entries, err := os.ReadDir(p.Dir)
	if err != nil {
		return nil, err
	}
	prefix := p.FilePrefix
	if prefix == "" {
		prefix = defaultFilePrefix
	}
	prefix += "-"

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		files = append(files, filepath.Join(p.Dir, name))
	}
	sort.Strings(files)
	return files, nil
}

// Run calls fn for each record until the journal ends, ctx is done or fn
// returns an error.
func (p Playback) Run(ctx context.Context, fn func(Record) error) error {
	if fn == nil {
		return errors.Wrap(exception.ErrNilInstance, "playback handler")
	}
	files, err := p.Segments()
	if err != nil {
		return err
	}
	for _, path := range files {
		if err := p.playSegment(ctx, path, fn); err != nil {
			return err
		}
	}
	return nil
}

func (p Playback) playSegment(ctx context.Context, path string, fn func(Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := NewReader(f)
	if p.SkipChecksum {
		r.SkipChecksum()
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "read %s", filepath.Base(path))
		}
		if !p.wants(rec.Topic) {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

func (p Playback) wants(topic string) bool {
	if len(p.Topics) == 0 {
		return true
	}
	for _, pattern := range p.Topics {
		if bus.Match(pattern, topic) {
			return true
		}
	}
	return false
}
