// Package sources defines the boundary between the pipeline and the feed
// retrieval collaborators. A Source produces one ordered batch of candidate
// articles per run, plus the source's version marker when it has one.
package sources

import (
	"context"

	"github.com/feedsift/feedsift/internal/core"
)

type Source interface {
	// ID is the stable source identifier used to key dedup history.
	ID() string
	// Fetch retrieves the current batch of candidate articles.
	Fetch(ctx context.Context) (*core.FeedResult, error)
}
