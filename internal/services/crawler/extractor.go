package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/common"
	"github.com/ternarybob/gleaner/internal/models"
)

const (
	ContentFormatText     = "text"
	ContentFormatMarkdown = "markdown"
)

var (
	whitespacePattern = regexp.MustCompile(`[ \t]+`)
	blankLinePattern  = regexp.MustCompile(`\n{3,}`)
	countPattern      = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)\s*([kKwW万千]?)\+?$`)
)

// DetailExtractor turns a rendered detail page into a DetailRecord
type DetailExtractor struct {
	site   common.SiteConfig
	format string
	logger arbor.ILogger
}

// NewDetailExtractor creates an extractor for the configured site selectors
func NewDetailExtractor(site common.SiteConfig, format string, logger arbor.ILogger) *DetailExtractor {
	if format == "" {
		format = ContentFormatText
	}
	return &DetailExtractor{
		site:   site,
		format: format,
		logger: logger,
	}
}

// Extract reads the record fields from html. Title and author fall back to
// the listing values of ref; Link is always ref.URL.
func (e *DetailExtractor) Extract(html string, ref models.LinkReference) (models.DetailRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.DetailRecord{}, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	root := doc.Selection
	if e.site.DetailContainerSelector != "" {
		if container := doc.Find(e.site.DetailContainerSelector).First(); container.Length() > 0 {
			root = container
		}
	}

	record := models.DetailRecord{
		Title:      firstNonEmpty(selectionText(root, e.site.DetailTitleSelector), ref.Title),
		Author:     firstNonEmpty(selectionText(root, e.site.DetailAuthorSelector), ref.AuthorStub),
		AuthorDesc: selectionText(root, e.site.DetailAuthorDescSelector),
		Link:       ref.URL,
		Likes:      parseCount(selectionText(root, e.site.DetailLikesSelector)),
		Collects:   parseCount(selectionText(root, e.site.DetailCollectsSelector)),
		Comments:   parseCount(selectionText(root, e.site.DetailCommentsSelector)),
		Tags:       e.extractTags(root),
		Images:     e.extractImages(root, ref.URL),
	}

	content, err := e.extractContent(root, ref.URL)
	if err != nil {
		return models.DetailRecord{}, err
	}
	record.Content = content

	return record, nil
}

// extractContent returns the body with tag anchors removed, as plain text or
// markdown depending on the configured format
func (e *DetailExtractor) extractContent(root *goquery.Selection, pageURL string) (string, error) {
	if e.site.DetailBodySelector == "" {
		return "", nil
	}
	body := root.Find(e.site.DetailBodySelector).First()
	if body.Length() == 0 {
		return "", nil
	}

	body = body.Clone()
	if e.site.DetailTagSelector != "" {
		body.Find(e.site.DetailTagSelector).Remove()
	}

	if e.format != ContentFormatMarkdown {
		return normalizeText(body.Text()), nil
	}

	html, err := goquery.OuterHtml(body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to render body: %w", ErrExtractionFailed, err)
	}

	mdConverter := md.NewConverter(domainOf(pageURL), true, nil)
	markdown, err := mdConverter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("%w: failed to convert body to markdown: %w", ErrExtractionFailed, err)
	}
	return strings.TrimSpace(markdown), nil
}

func (e *DetailExtractor) extractTags(root *goquery.Selection) []string {
	if e.site.DetailTagSelector == "" {
		return nil
	}

	var tags []string
	seen := make(map[string]bool)
	root.Find(e.site.DetailTagSelector).Each(func(i int, s *goquery.Selection) {
		tag := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s.Text()), "#"))
		if tag == "" || seen[tag] {
			return
		}
		seen[tag] = true
		tags = append(tags, tag)
	})
	return tags
}

func (e *DetailExtractor) extractImages(root *goquery.Selection, pageURL string) []string {
	if e.site.DetailImageSelector == "" {
		return nil
	}

	base, _ := url.Parse(pageURL)

	var images []string
	seen := make(map[string]bool)
	root.Find(e.site.DetailImageSelector).Each(func(i int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if src == "" || strings.HasPrefix(src, "data:") {
			src, _ = s.Attr("data-src")
		}
		src = strings.TrimSpace(src)
		if src == "" || strings.HasPrefix(src, "data:") {
			return
		}
		if base != nil {
			if resolved, err := base.Parse(src); err == nil {
				src = resolved.String()
			}
		}
		if seen[src] {
			return
		}
		seen[src] = true
		images = append(images, src)
	})
	return images
}

// parseCount converts an engagement counter to an integer. The site renders
// placeholder words (e.g. "赞") when a count is zero, and abbreviates large
// values as "1.2k" or "3.4万"; anything unparseable is 0.
func parseCount(text string) int {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	match := countPattern.FindStringSubmatch(text)
	if match == nil {
		return 0
	}

	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0
	}

	switch match[2] {
	case "k", "K", "千":
		value *= 1000
	case "w", "W", "万":
		value *= 10000
	}
	return int(value + 0.5)
}

func normalizeText(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(whitespacePattern.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(blankLinePattern.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}

func domainOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
