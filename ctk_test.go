package ctk

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestCTK(t *testing.T) *CTK {
	t.Helper()
	dir := t.TempDir()
	c, err := Open(filepath.Join(dir, "test.db"), Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestConversationBuilderBuildsAndPersists(t *testing.T) {
	c := newTestCTK(t)

	tree, err := c.Conversation("Fluent test").
		User("hello").
		Assistant("hi there").
		WithTags("demo").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(tree.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(tree.Messages))
	}

	loaded, err := c.Get(tree.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded.Title != "Fluent test" {
		t.Errorf("unexpected title %q", loaded.Title)
	}
}

func TestQueryBuilderFiltersByTag(t *testing.T) {
	c := newTestCTK(t)
	if _, err := c.Conversation("Tagged one").User("hi").WithTags("keep").Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := c.Conversation("Tagged two").User("hi").WithTags("drop").Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}

	page, err := c.Query().WithTags("keep").Get()
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 match, got %d", len(page.Items))
	}
}

func TestSearchBuilderFindsText(t *testing.T) {
	c := newTestCTK(t)
	if _, err := c.Conversation("Searchable").User("a distinctive phrase here").Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}

	page, err := c.Search("distinctive").Limit(5).Get()
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 search result, got %d", len(page.Items))
	}
}

func TestDeleteByResolvedIdentifier(t *testing.T) {
	c := newTestCTK(t)
	tree, err := c.Conversation("To remove").User("bye").Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := c.Delete(tree.ID[:8]); err != nil {
		t.Fatalf("Delete by prefix: %v", err)
	}
	if _, err := c.Get(tree.ID); err == nil {
		t.Fatal("expected error loading deleted conversation")
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.Setenv("CTK_TEST_STORE_PATH", "/tmp/from-env.db"); err != nil {
		t.Fatalf("Setenv: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("CTK_TEST_STORE_PATH") })

	content := "store_path: ${CTK_TEST_STORE_PATH}\nlogging:\n  format: json\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.StorePath != "/tmp/from-env.db" {
		t.Errorf("expected env expansion, got %q", cfg.StorePath)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected json format, got %q", cfg.Logging.Format)
	}
}
