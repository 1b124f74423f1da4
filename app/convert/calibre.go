package convert

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/JordanSekky/cereal-convert/app/cfg"
)

// ErrConversion marks failures of the external converter.
var ErrConversion = errors.New("ebook conversion failure")

// ChapterText is one ordered chapter handed to the converter.
type ChapterText struct {
	Name string
	Body string
}

// Metadata describes the group being converted.
type Metadata struct {
	BookName string
	Author   string
	// Title is the artifact's cover title, e.g. "Pale: 1.01 - 1.03".
	Title string
}

// Converter turns an ordered group of chapter bodies into one epub
// artifact by invoking calibre's ebook-convert as a black box.
type Converter struct {
	bin string
}

func NewConverter() *Converter {
	return &Converter{bin: cfg.Get().CalibreBin}
}

// Run assembles the group into a single HTML document and converts it.
func (c *Converter) Run(ctx context.Context, meta Metadata, chapters []ChapterText) ([]byte, error) {
	if len(chapters) == 0 {
		return nil, fmt.Errorf("no chapters to convert: %w", ErrConversion)
	}

	doc := assembleDocument(meta, chapters)
	return c.convert(ctx, doc, ".html", meta)
}

// VerificationArtifact produces the small epub sent to a kindle address
// to prove it can receive deliveries.
func (c *Converter) VerificationArtifact(ctx context.Context, code string) ([]byte, error) {
	body := fmt.Sprintf("Thank you for using cereal. To validate your kindle email address, please input the following code: %s", code)
	meta := Metadata{
		BookName: "Cereal Kindle Email Validation",
		Author:   "Cereal",
		Title:    "Cereal Kindle Email Validation",
	}
	return c.convert(ctx, body, ".txt", meta)
}

func (c *Converter) convert(ctx context.Context, content, inputExt string, meta Metadata) ([]byte, error) {
	workName := uuid.NewString()
	inPath := filepath.Join(os.TempDir(), workName+inputExt)
	outPath := filepath.Join(os.TempDir(), workName+".epub")

	if err := os.WriteFile(inPath, []byte(content), 0o600); err != nil {
		return nil, fmt.Errorf("write converter input: %v: %w", err, ErrConversion)
	}
	defer os.Remove(inPath)
	defer os.Remove(outPath)

	cmd := exec.CommandContext(ctx, c.bin, buildArgs(inPath, outPath, meta)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("run %s: %v: %s: %w", c.bin, err, strings.TrimSpace(string(output)), ErrConversion)
	}

	slog.Debug("Conversion completed", "title", meta.Title, "output", outPath)

	artifact, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read converter output: %v: %w", err, ErrConversion)
	}

	return artifact, nil
}

func buildArgs(inPath, outPath string, meta Metadata) []string {
	return []string{
		inPath,
		outPath,
		"--filter-css", "font-family,color,background",
		"--authors", meta.Author,
		"--title", meta.Title,
		"--series", meta.BookName,
		"--output-profile", "kindle_oasis",
	}
}

// assembleDocument joins the group's chapters into one HTML document in
// delivery order, one heading per chapter.
func assembleDocument(meta Metadata, chapters []ChapterText) string {
	var b strings.Builder
	b.WriteString("<html><head><title>")
	b.WriteString(html.EscapeString(meta.Title))
	b.WriteString("</title></head><body>\n")
	for _, chapter := range chapters {
		b.WriteString("<h1>")
		b.WriteString(html.EscapeString(chapter.Name))
		b.WriteString("</h1>\n")
		b.WriteString(chapter.Body)
		b.WriteString("\n")
	}
	b.WriteString("</body></html>")
	return b.String()
}
