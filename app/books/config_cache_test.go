package books

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/JordanSekky/cereal-convert/app/cfg"
)

func writeBookFile(t *testing.T, dir, slug, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, slug+".yml"), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write book file: %v", err)
	}
}

func TestLoadConfigFeedSource(t *testing.T) {
	cfg.SetForTesting(&cfg.Cfg{PollInterval: 300})

	dir := t.TempDir()
	writeBookFile(t, dir, "pale", `
name: Pale
author: Wildbow
source:
  kind: feed
  url: https://palewebserial.wordpress.com/feed/
body_selector: "div.entry-content"
settings:
  enabled: true
`)

	cc := NewConfigCache(dir)
	if err := cc.Run(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	config, err := cc.GetConfig("pale")
	if err != nil {
		t.Fatalf("Expected config for 'pale', got: %v", err)
	}
	if config.Name != "Pale" {
		t.Errorf("Expected name 'Pale', got: %s", config.Name)
	}
	if config.Author != "Wildbow" {
		t.Errorf("Expected author 'Wildbow', got: %s", config.Author)
	}
	if config.Source.Kind != SourceKindFeed {
		t.Errorf("Expected feed source, got: %s", config.Source.Kind)
	}
	if config.Settings.PollInterval != 300 {
		t.Errorf("Expected default poll interval 300, got: %d", config.Settings.PollInterval)
	}
	if !config.Settings.Enabled {
		t.Error("Expected book to be enabled")
	}
}

func TestLoadConfigPageSourceRequiresSelector(t *testing.T) {
	cfg.SetForTesting(&cfg.Cfg{PollInterval: 300})

	dir := t.TempDir()
	writeBookFile(t, dir, "winn", `
name: The Wandering Inn
author: pirateaba
source:
  kind: page
  url: https://wanderinginn.com/table-of-contents/
`)

	cc := NewConfigCache(dir)
	if _, err := cc.LoadConfig("winn"); err == nil {
		t.Error("Expected error for page source without chapter_selector")
	}

	writeBookFile(t, dir, "winn", `
name: The Wandering Inn
author: pirateaba
source:
  kind: page
  url: https://wanderinginn.com/table-of-contents/
  chapter_selector: "div.entry-content a"
settings:
  enabled: true
  poll_interval: 600
`)

	config, err := cc.LoadConfig("winn")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if config.Source.ChapterSelector != "div.entry-content a" {
		t.Errorf("Unexpected chapter selector: %s", config.Source.ChapterSelector)
	}
	if config.Settings.PollInterval != 600 {
		t.Errorf("Expected poll interval override 600, got: %d", config.Settings.PollInterval)
	}
}

func TestLoadConfigEnabledByDefault(t *testing.T) {
	cfg.SetForTesting(&cfg.Cfg{PollInterval: 300})

	dir := t.TempDir()
	writeBookFile(t, dir, "pale", `
name: Pale
author: Wildbow
source:
  kind: feed
  url: https://palewebserial.wordpress.com/feed/
`)

	cc := NewConfigCache(dir)
	config, err := cc.LoadConfig("pale")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !config.Settings.Enabled {
		t.Error("Expected a book without a settings block to be enabled")
	}

	writeBookFile(t, dir, "pale", `
name: Pale
author: Wildbow
source:
  kind: feed
  url: https://palewebserial.wordpress.com/feed/
settings:
  enabled: false
`)

	config, err = cc.LoadConfig("pale")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if config.Settings.Enabled {
		t.Error("Expected an explicitly disabled book to stay disabled")
	}
}

func TestLoadConfigInvalidKind(t *testing.T) {
	cfg.SetForTesting(&cfg.Cfg{PollInterval: 300})

	dir := t.TempDir()
	writeBookFile(t, dir, "bad", `
name: Bad
author: Nobody
source:
  kind: carrier-pigeon
  url: https://example.com/
`)

	cc := NewConfigCache(dir)
	if _, err := cc.LoadConfig("bad"); err == nil {
		t.Error("Expected error for invalid source kind")
	}
}

func TestGetEnabledConfigs(t *testing.T) {
	cfg.SetForTesting(&cfg.Cfg{PollInterval: 300})

	dir := t.TempDir()
	writeBookFile(t, dir, "on", `
name: On
author: A
source: {kind: feed, url: "https://example.com/feed"}
settings: {enabled: true}
`)
	writeBookFile(t, dir, "off", `
name: Off
author: B
source: {kind: feed, url: "https://example.com/feed2"}
settings: {enabled: false}
`)

	cc := NewConfigCache(dir)
	if err := cc.Run(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cc.GetConfigCount() != 2 {
		t.Errorf("Expected 2 configs, got: %d", cc.GetConfigCount())
	}
	enabled := cc.GetEnabledConfigs()
	if len(enabled) != 1 {
		t.Fatalf("Expected 1 enabled config, got: %d", len(enabled))
	}
	if _, ok := enabled["on"]; !ok {
		t.Error("Expected 'on' to be enabled")
	}
}

func TestMissingBooksDir(t *testing.T) {
	cc := NewConfigCache("/nonexistent/path")
	if err := cc.Run(); err != nil {
		t.Errorf("Expected no error for missing books dir, got: %v", err)
	}
}
