// Package fingerprint derives the stable identifier downstream consumers use
// to correlate accepted articles across pipeline stages.
package fingerprint

import (
	"crypto/sha1"
	"encoding/hex"

	"github.com/feedsift/feedsift/internal/core"
)

// Assign returns the article's fingerprint. When the article has a URL the
// URL itself is the fingerprint, since it already uniquely identifies the
// item downstream. Otherwise the fingerprint is the hex SHA-1 of the title
// and summary, which is deterministic across process runs.
func Assign(article *core.Article) string {
	if article.URL != "" {
		return article.URL
	}
	sum := sha1.Sum([]byte(article.Title + article.Summary))
	return hex.EncodeToString(sum[:])
}
