package rcache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"mermaidlive/internal/diagram"
	"mermaidlive/internal/trace"
)

func success(svg string) diagram.Outcome {
	o := diagram.Succeeded(diagram.Artifact{SVG: svg}, true, "graph TD\nA-->B")
	o.RepairRules = []string{"arrow-head-gap"}
	o.Keyword = "graph"
	return o
}

func id(text string) diagram.Identity {
	return diagram.Input{Text: text}.Identity()
}

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	m := NewMemory(2)
	m.Put(id("a"), success("<svg>a</svg>"))
	m.Put(id("b"), success("<svg>b</svg>"))
	if _, ok := m.Get(id("a")); !ok {
		t.Fatalf("expected a to be cached")
	}
	m.Put(id("c"), success("<svg>c</svg>"))

	if _, ok := m.Get(id("b")); ok {
		t.Fatalf("b should have been evicted")
	}
	if _, ok := m.Get(id("a")); !ok {
		t.Fatalf("a was used recently and must survive")
	}
	if m.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", m.Len())
	}
}

func TestMemoryIgnoresFailures(t *testing.T) {
	m := NewMemory(0)
	m.Put(id("x"), diagram.Failed(diagram.UnrepairableSyntax))
	if m.Len() != 0 {
		t.Fatalf("failure was cached")
	}
}

func TestDiskRoundTrip(t *testing.T) {
	d, err := OpenDisk(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDisk: %v", err)
	}
	key := id("graph TD\nA-->B")
	if _, ok, err := d.Get(key); ok || err != nil {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
	if err := d.Put(key, payloadFrom(success("<svg/>"), 0)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	p, ok, err := d.Get(key)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	o := p.Outcome()
	if o.Artifact.SVG != "<svg/>" || !o.AutoCorrected || o.Keyword != "graph" || len(o.RepairRules) != 1 {
		t.Fatalf("unexpected outcome %+v", o)
	}

	if err := d.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	if _, ok, _ := d.Get(key); ok {
		t.Fatalf("entry survived DropAll")
	}
}

func TestDiskRejectsOtherSchema(t *testing.T) {
	dir := t.TempDir()
	d, err := OpenDisk(dir)
	if err != nil {
		t.Fatalf("OpenDisk: %v", err)
	}
	key := id("pie")
	data, err := msgpack.Marshal(&Payload{Schema: diskSchemaVersion + 1, SVG: "<svg/>"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	path := filepath.Join(dir, "svg", key.String()+".mp")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := d.Get(key); !errors.Is(err, ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}

	sibling := id("graph LR\nA-->B")
	if err := d.Put(sibling, payloadFrom(success("<svg/>"), 0)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	c := &Cache{mem: NewMemory(4), disk: d, tracer: trace.Nop}
	if _, ok := c.Get(key); ok {
		t.Fatalf("stale schema must be a miss")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("stale entry should be removed, stat err=%v", err)
	}
	if _, ok, _ := d.Get(sibling); ok {
		t.Fatalf("a schema mismatch should drop the whole store")
	}
}

func TestCachePromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	first, err := New(Options{Entries: 4, Dir: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	key := id("graph TD\nA-->B")
	first.Put(key, success("<svg>x</svg>"))
	first.Put(id("fail"), diagram.Failed(diagram.InvalidType))

	second, err := New(Options{Entries: 4, Dir: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if second.Len() != 0 {
		t.Fatalf("fresh cache should start empty in memory")
	}
	o, ok := second.Get(key)
	if !ok || o.Artifact.SVG != "<svg>x</svg>" {
		t.Fatalf("expected disk hit, got %+v ok=%v", o, ok)
	}
	if second.Len() != 1 {
		t.Fatalf("disk hit was not promoted")
	}
	if _, ok := second.Get(id("fail")); ok {
		t.Fatalf("failure must not be cached")
	}
}

func TestMemoryOnlyCache(t *testing.T) {
	c, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Put(id("a"), success("<svg/>"))
	if _, ok := c.Get(id("a")); !ok {
		t.Fatalf("expected memory hit")
	}
	if _, ok := c.Get(id("b")); ok {
		t.Fatalf("unexpected hit")
	}
}

func TestCacheMissesOnOtherMaxWidth(t *testing.T) {
	dir := t.TempDir()
	key := id("graph TD\nA-->B")

	narrow, err := New(Options{Entries: 4, Dir: dir, MaxWidth: 640})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	narrow.Put(key, success("<svg>narrow</svg>"))

	wide, err := New(Options{Entries: 4, Dir: dir, MaxWidth: 1200})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if o, ok := wide.Get(key); ok {
		t.Fatalf("artifact fitted under another width was served: %+v", o)
	}
	if _, err := os.Stat(filepath.Join(dir, "svg", key.String()+".mp")); !os.IsNotExist(err) {
		t.Fatalf("mismatched entry should be removed, stat err=%v", err)
	}

	wide.Put(key, success("<svg>wide</svg>"))
	again, err := New(Options{Entries: 4, Dir: dir, MaxWidth: 1200})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if o, ok := again.Get(key); !ok || o.Artifact.SVG != "<svg>wide</svg>" {
		t.Fatalf("expected hit under the same width, got %+v ok=%v", o, ok)
	}
}
