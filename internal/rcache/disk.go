package rcache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"mermaidlive/internal/diagram"
)

// Current schema version - increment when Payload format changes
const diskSchemaVersion uint16 = 2

// ErrSchema reports an entry written by a different payload format.
var ErrSchema = errors.New("cache entry has an unknown schema")

// Payload is the on-disk form of a successful outcome. MaxWidth is the
// width cap the SVG was fitted under; zero means uncapped.
type Payload struct {
	Schema        uint16
	MaxWidth      int
	SVG           string
	AutoCorrected bool
	EffectiveText string
	RepairRules   []string
	Keyword       string
	Stored        time.Time
}

func payloadFrom(o diagram.Outcome, maxWidth int) *Payload {
	return &Payload{
		Schema:        diskSchemaVersion,
		MaxWidth:      maxWidth,
		SVG:           o.Artifact.SVG,
		AutoCorrected: o.AutoCorrected,
		EffectiveText: o.EffectiveText,
		RepairRules:   o.RepairRules,
		Keyword:       o.Keyword,
		Stored:        time.Now().UTC(),
	}
}

// Outcome rebuilds the success outcome stored in p.
func (p *Payload) Outcome() diagram.Outcome {
	o := diagram.Succeeded(diagram.Artifact{SVG: p.SVG}, p.AutoCorrected, p.EffectiveText)
	o.RepairRules = p.RepairRules
	o.Keyword = p.Keyword
	return o
}

// Disk stores payloads as msgpack files named by identity.
// Thread-safe for concurrent access.
type Disk struct {
	mu  sync.RWMutex
	dir string
}

// OpenDisk uses dir, creating it when needed.
func OpenDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Disk{dir: dir}, nil
}

// DefaultDir returns $XDG_CACHE_HOME/<app> or ~/.cache/<app>.
func DefaultDir(app string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, app), nil
}

func (d *Disk) pathFor(id diagram.Identity) string {
	return filepath.Join(d.dir, "svg", id.String()+".mp")
}

// Put writes the payload atomically.
func (d *Disk) Put(id diagram.Identity, p *Payload) error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	path := d.pathFor(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := msgpack.NewEncoder(f).Encode(p); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Get reads the payload for id. A missing entry is (nil, false, nil).
func (d *Disk) Get(id diagram.Identity) (*Payload, bool, error) {
	if d == nil {
		return nil, false, nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	f, err := os.Open(d.pathFor(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var p Payload
	if err := msgpack.NewDecoder(f).Decode(&p); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", id.Short(), err)
	}
	if p.Schema != diskSchemaVersion {
		return nil, false, fmt.Errorf("%w: %d", ErrSchema, p.Schema)
	}
	return &p, true, nil
}

// Remove deletes the entry for id if present.
func (d *Disk) Remove(id diagram.Identity) error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := os.Remove(d.pathFor(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// DropAll removes every entry. The cache calls it when it meets an entry
// written under another schema, since the rest were written alongside it.
func (d *Disk) DropAll() error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return os.RemoveAll(filepath.Join(d.dir, "svg"))
}
