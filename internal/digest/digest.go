package digest

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/feedsift/feedsift/internal/core"
)

// Builder renders a run's accepted articles into a markdown digest and its
// HTML form for email delivery.
type Builder struct {
	converter goldmark.Markdown
}

func NewBuilder() *Builder {
	return &Builder{
		converter: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
	}
}

// Markdown groups articles by source and renders one digest document. Sources
// appear in alphabetical order; articles keep their batch order within each.
func (b *Builder) Markdown(articles []*core.Article, runAt time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Feed digest %s\n\n", runAt.UTC().Format("2006-01-02"))

	if len(articles) == 0 {
		sb.WriteString("No new articles this run.\n")
		return sb.String()
	}

	bySource := make(map[string][]*core.Article)
	for _, article := range articles {
		label := article.Source
		if label == "" {
			label = article.SourceID
		}
		bySource[label] = append(bySource[label], article)
	}
	labels := make([]string, 0, len(bySource))
	for label := range bySource {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		fmt.Fprintf(&sb, "## %s\n\n", label)
		for _, article := range bySource[label] {
			if article.URL != "" {
				fmt.Fprintf(&sb, "- [%s](%s)", article.Title, article.URL)
			} else {
				fmt.Fprintf(&sb, "- %s", article.Title)
			}
			if len(article.Tags) > 0 {
				fmt.Fprintf(&sb, " _%s_", strings.Join(article.Tags, ", "))
			}
			sb.WriteString("\n")
			if article.Summary != "" {
				fmt.Fprintf(&sb, "  %s\n", firstLine(article.Summary))
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// HTML renders the markdown digest through goldmark.
func (b *Builder) HTML(articles []*core.Article, runAt time.Time) (string, error) {
	var buf bytes.Buffer
	if err := b.converter.Convert([]byte(b.Markdown(articles, runAt)), &buf); err != nil {
		return "", fmt.Errorf("render digest html: %w", err)
	}
	return buf.String(), nil
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	text = strings.TrimSpace(text)
	const maxLen = 280
	if len(text) > maxLen {
		text = text[:maxLen] + "…"
	}
	return text
}
