package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/WangYihang/wiki-deadlink-finder/pkg/domain/entity"
)

// StdinPath reads candidates from standard input
const StdinPath = "-"

// File implements repository.CandidateSource over a line-oriented file.
// Each line is either "article<TAB>url" or a bare url; blank lines and
// lines starting with '#' are ignored.
type File struct {
	path  string
	stdin io.Reader
}

// NewFile creates a new file source
func NewFile(path string) *File {
	return &File{path: path, stdin: os.Stdin}
}

// Candidates yields one candidate per usable line
func (f *File) Candidates(ctx context.Context) iter.Seq2[entity.Candidate, error] {
	return func(yield func(entity.Candidate, error) bool) {
		r, closeFn, err := f.open()
		if err != nil {
			yield(entity.Candidate{}, err)
			return
		}
		defer closeFn()

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			if ctx.Err() != nil {
				return
			}
			c, ok := ParseLine(scanner.Text())
			if !ok {
				continue
			}
			if !yield(c, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(entity.Candidate{}, fmt.Errorf("read %s: %w", f.path, err))
		}
	}
}

func (f *File) open() (io.Reader, func() error, error) {
	if f.path == StdinPath {
		return f.stdin, func() error { return nil }, nil
	}
	file, err := os.Open(f.path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input file: %w", err)
	}
	return file, file.Close, nil
}

// ParseLine parses one input line into a candidate
func ParseLine(line string) (entity.Candidate, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return entity.Candidate{}, false
	}

	// The tab separates article from url even when either side is blank
	article, rawURL, found := strings.Cut(line, "\t")
	if !found {
		return entity.Candidate{URL: trimmed}, true
	}
	article = strings.TrimSpace(article)
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return entity.Candidate{}, false
	}
	return entity.Candidate{Article: article, URL: rawURL}, true
}
