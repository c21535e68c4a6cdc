// Package archive holds downloaded images in memory and writes them out as
// a single zip file.
package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/brogergvhs/pagekit/internal/util"

	"github.com/klauspost/compress/zip"
)

var ErrEmpty = errors.New("archive has no entries")

type entry struct {
	name string
	data []byte
}

// Archive is an ordered set of named blobs. A name that is already taken
// gets a "_2", "_3", ... suffix before its extension, so every Add ends up
// as its own entry. It is safe for concurrent use.
type Archive struct {
	mu      sync.Mutex
	entries []entry
	taken   map[string]bool
	size    int64
}

func New() *Archive {
	return &Archive{taken: make(map[string]bool)}
}

// Add stores data and returns the entry name it was stored under.
func (a *Archive) Add(name string, data []byte) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	unique := name
	if a.taken[unique] {
		ext := path.Ext(name)
		stem := strings.TrimSuffix(name, ext)
		for n := 2; a.taken[unique]; n++ {
			unique = fmt.Sprintf("%s_%d%s", stem, n, ext)
		}
	}

	a.taken[unique] = true
	a.entries = append(a.entries, entry{name: unique, data: data})
	a.size += int64(len(data))
	return unique
}

func (a *Archive) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Bytes is the total uncompressed payload size.
func (a *Archive) Bytes() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.size
}

func (a *Archive) Names() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.name
	}
	return out
}

// Serialize writes every entry, in insertion order, as one zip stream.
func (a *Archive) Serialize(w io.Writer) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	z := zip.NewWriter(w)
	now := time.Now()

	for _, e := range a.entries {
		fw, err := z.CreateHeader(&zip.FileHeader{
			Name:     e.name,
			Method:   zip.Deflate,
			Modified: now,
		})
		if err != nil {
			return fmt.Errorf("zip %s: %w", e.name, err)
		}

		if _, err := fw.Write(e.data); err != nil {
			return fmt.Errorf("zip %s: %w", e.name, err)
		}
	}

	return z.Close()
}

// Save writes the archive to dir/name.zip. The data goes to a ".part" file
// first, which is renamed on success and removed on every failure path.
// A failed removal is joined onto the returned error.
func (a *Archive) Save(dir, name string) (_ string, err error) {
	if a.Len() == 0 {
		return "", ErrEmpty
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("output folder: %w", err)
	}

	final := filepath.Join(dir, name+".zip")
	tmp := final + util.PartialSuffix

	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("archive: %w", err)
	}

	defer func() {
		if err == nil {
			return
		}
		if rerr := os.Remove(tmp); rerr != nil && !os.IsNotExist(rerr) {
			err = errors.Join(err, fmt.Errorf("remove partial archive %s: %w", tmp, rerr))
		}
	}()

	if err := a.Serialize(f); err != nil {
		_ = f.Close()
		return "", err
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("archive: %w", err)
	}

	if err := os.Rename(tmp, final); err != nil {
		return "", fmt.Errorf("archive: %w", err)
	}

	return final, nil
}
