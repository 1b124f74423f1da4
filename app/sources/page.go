package sources

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/JordanSekky/cereal-convert/app/database"
)

// parsePageListing extracts chapter links from a listing page via the
// book's chapter selector, in document order.
func parsePageListing(data []byte, book *database.Book) ([]Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse listing page for %s: %v: %w", book.Slug, err, ErrMalformedContent)
	}

	base, err := url.Parse(book.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("parse source url for %s: %v: %w", book.Slug, err, ErrMalformedContent)
	}

	selection := doc.Find(book.ChapterSelector)
	if selection.Length() == 0 {
		return nil, fmt.Errorf("chapter selector %q matched nothing for %s: %w",
			book.ChapterSelector, book.Slug, ErrMalformedContent)
	}

	var candidates []Candidate
	selection.Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			href, ok = s.Find("a").First().Attr("href")
		}
		if !ok || strings.TrimSpace(href) == "" {
			return
		}

		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}

		name := normalizeTitle(s.Text())
		link := base.ResolveReference(ref).String()
		if name == "" {
			name = link
		}

		candidates = append(candidates, Candidate{
			SourceURL: link,
			Name:      name,
			Author:    book.Author,
		})
	})

	if len(candidates) == 0 {
		return nil, fmt.Errorf("no chapter links found for %s: %w", book.Slug, ErrMalformedContent)
	}

	return candidates, nil
}

// extractBody pulls the chapter text out of a chapter page. The body
// selector keeps source markup intact; chapter navigation links the
// selector drags along are stripped. Readability is the fallback when no
// selector is configured or it matches nothing.
func extractBody(data []byte, book *database.Book, chapterURL string) (string, error) {
	if book.BodySelector != "" {
		body, err := extractBySelector(data, book.BodySelector)
		if err == nil {
			return body, nil
		}
	}

	pageURL, _ := url.Parse(chapterURL)
	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err != nil {
		return "", fmt.Errorf("extract body of %s: %v: %w", chapterURL, err, ErrMalformedContent)
	}
	if strings.TrimSpace(article.Content) == "" {
		return "", fmt.Errorf("empty body extracted from %s: %w", chapterURL, ErrMalformedContent)
	}

	return article.Content, nil
}

func extractBySelector(data []byte, selector string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse chapter page: %v: %w", err, ErrMalformedContent)
	}

	selection := doc.Find(selector)
	if selection.Length() == 0 {
		return "", fmt.Errorf("body selector %q matched nothing: %w", selector, ErrMalformedContent)
	}

	var parts []string
	selection.Children().Each(func(_ int, s *goquery.Selection) {
		if isNavigationElement(s) {
			return
		}
		html, err := goquery.OuterHtml(s)
		if err != nil {
			return
		}
		parts = append(parts, html)
	})

	if len(parts) == 0 {
		// Selector matched a leaf element; take its own markup.
		html, err := selection.First().Html()
		if err != nil || strings.TrimSpace(html) == "" {
			return "", fmt.Errorf("body selector %q yielded no content: %w", selector, ErrMalformedContent)
		}
		return html, nil
	}

	return strings.Join(parts, "\n"), nil
}

// isNavigationElement spots the "Next Chapter" / "Previous Chapter"
// links serial sites embed inside the chapter body.
func isNavigationElement(s *goquery.Selection) bool {
	text := strings.TrimSpace(s.Text())
	switch text {
	case "Next Chapter", "Previous Chapter", "Next", "Previous":
		return true
	}
	return false
}
