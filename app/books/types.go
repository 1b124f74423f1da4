package books

// Book definition types, loaded from YAML files in the books directory.

type Config struct {
	Name   string       `yaml:"name"`
	Author string       `yaml:"author"`
	Source SourceConfig `yaml:"source"`
	// CSS selector for the chapter body within a chapter page.
	// When empty or unmatched, readability extraction is used instead.
	BodySelector string         `yaml:"body_selector"`
	Settings     ConfigSettings `yaml:"settings"`

	// Slug derived from the filename (without .yml extension).
	Slug string
}

type SourceConfig struct {
	Kind string `yaml:"kind"` // feed | page
	URL  string `yaml:"url"`
	// CSS selector for chapter links on a listing page. Page kind only.
	ChapterSelector string `yaml:"chapter_selector"`
}

type ConfigSettings struct {
	Enabled      bool `yaml:"enabled"`
	PollInterval int  `yaml:"poll_interval"` // seconds
}
