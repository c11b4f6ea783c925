package plugin

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeImporter struct {
	name string
	ext  string
	sig  string
}

func (f *fakeImporter) Name() string         { return f.name }
func (f *fakeImporter) Extensions() []string { return []string{f.ext} }
func (f *fakeImporter) Detect(sample []byte) bool {
	return strings.Contains(string(sample), f.sig)
}
func (f *fakeImporter) Import(r io.Reader) (interface{}, error) {
	data, err := io.ReadAll(r)
	return string(data), err
}

func TestRegisterAndSelectImporter(t *testing.T) {
	r := NewRegistry()
	r.RegisterImporter(&fakeImporter{name: "json-export", ext: ".json", sig: "\"mapping\""})

	p, err := r.SelectImporter("json-export")
	if err != nil {
		t.Fatalf("SelectImporter: %v", err)
	}
	if p.Name() != "json-export" {
		t.Errorf("unexpected plugin name %q", p.Name())
	}
}

func TestSelectUnknownFormat(t *testing.T) {
	r := NewRegistry()
	r.RegisterImporter(&fakeImporter{name: "a", ext: ".a", sig: "a"})
	_, err := r.SelectImporter("does-not-exist")
	var unknown ErrUnknownFormat
	if uf, ok := err.(ErrUnknownFormat); ok {
		unknown = uf
	} else {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
	if unknown.Format != "does-not-exist" {
		t.Errorf("unexpected format field %q", unknown.Format)
	}
}

func TestDetectImporterRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.RegisterImporter(&fakeImporter{name: "first", ext: ".x", sig: "shared"})
	r.RegisterImporter(&fakeImporter{name: "second", ext: ".y", sig: "shared"})

	p, err := r.DetectImporter([]byte("this has shared marker"))
	if err != nil {
		t.Fatalf("DetectImporter: %v", err)
	}
	if p.Name() != "first" {
		t.Errorf("expected first-registered plugin to win ties, got %q", p.Name())
	}
}

func TestDiscoverDirSkipsOversizedFiles(t *testing.T) {
	dir := t.TempDir()
	small := filepath.Join(dir, "small.go")
	if err := os.WriteFile(small, []byte("package main"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	big := filepath.Join(dir, "big.go")
	if err := os.WriteFile(big, bytes.Repeat([]byte("x"), MaxDiscoveryFileSize+1), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	r := NewRegistry()
	var loadedPaths []string
	load := func(path string) (ImporterPlugin, ExporterPlugin, error) {
		loadedPaths = append(loadedPaths, path)
		return nil, nil, nil
	}

	if err := r.DiscoverDir(dir, []string{dir}, load); err != nil {
		t.Fatalf("DiscoverDir: %v", err)
	}
	if len(loadedPaths) != 1 {
		t.Fatalf("expected exactly 1 file to be probed (oversized skipped), got %d", len(loadedPaths))
	}
}

func TestDiscoverDirRejectsDirectoryNotInAllowList(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry()
	err := r.DiscoverDir(dir, []string{"/some/other/dir"}, func(string) (ImporterPlugin, ExporterPlugin, error) {
		return nil, nil, nil
	})
	if err == nil {
		t.Fatal("expected rejection for a directory outside the allow-list")
	}
}

func TestDiscoverDirIdempotent(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "p.go"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	r := NewRegistry()
	calls := 0
	load := func(string) (ImporterPlugin, ExporterPlugin, error) {
		calls++
		return nil, nil, nil
	}
	if err := r.DiscoverDir(dir, []string{dir}, load); err != nil {
		t.Fatalf("first DiscoverDir: %v", err)
	}
	if err := r.DiscoverDir(dir, []string{dir}, load); err != nil {
		t.Fatalf("second DiscoverDir: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected discovery to run once, load was called %d times", calls)
	}
}
