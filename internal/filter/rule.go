package filter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/feedsift/feedsift/internal/config"
	"github.com/feedsift/feedsift/internal/core"
)

// Rule is a compiled filter expression applied to deduplicated articles.
// The expression must evaluate to bool; the action decides whether a match
// drops the article or keeps it (dropping everything else).
type Rule struct {
	name    string
	action  string
	program *vm.Program
}

func NewRule(cfg config.FilterRule) (*Rule, error) {
	if cfg.Name == "" || cfg.Rule == "" {
		return nil, fmt.Errorf("filter rule name and expression are required")
	}
	program, err := expr.Compile(cfg.Rule, expr.Env(map[string]interface{}{}))
	if err != nil {
		return nil, fmt.Errorf("compile filter rule %q: %w", cfg.Name, err)
	}
	action := cfg.Action
	if action == "" {
		action = "drop"
	}
	return &Rule{name: cfg.Name, action: action, program: program}, nil
}

func (r *Rule) Name() string {
	return r.name
}

// Apply evaluates the rule against each article and returns the survivors.
// An article whose evaluation errors is kept; a filter misconfiguration
// should not silently discard content.
func (r *Rule) Apply(ctx context.Context, articles []*core.Article) ([]*core.Article, error) {
	logger := core.LoggerFromContext(ctx)
	kept := make([]*core.Article, 0, len(articles))

	for _, article := range articles {
		result, err := expr.Run(r.program, ruleEnv(article))
		if err != nil {
			logger.Warn("filter rule evaluation failed, keeping article",
				slog.String("rule", r.name),
				slog.String("url", article.URL),
				slog.String("error", err.Error()))
			kept = append(kept, article)
			continue
		}
		matched, ok := result.(bool)
		if !ok {
			return nil, fmt.Errorf("filter rule %q did not return bool", r.name)
		}

		drop := (matched && r.action == "drop") || (!matched && r.action == "keep")
		if drop {
			logger.Debug("filter rule dropped article",
				slog.String("rule", r.name),
				slog.String("title", article.Title))
			continue
		}
		kept = append(kept, article)
	}

	return kept, nil
}

// Chain applies rules in order, feeding each rule the survivors of the last.
type Chain struct {
	rules []*Rule
}

func NewChain(cfgs []config.FilterRule) (*Chain, error) {
	rules := make([]*Rule, 0, len(cfgs))
	for _, cfg := range cfgs {
		rule, err := NewRule(cfg)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return &Chain{rules: rules}, nil
}

func (c *Chain) Apply(ctx context.Context, articles []*core.Article) ([]*core.Article, error) {
	current := articles
	for _, rule := range c.rules {
		next, err := rule.Apply(ctx, current)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

func ruleEnv(article *core.Article) map[string]interface{} {
	return map[string]interface{}{
		"title": map[string]interface{}{
			"value":  article.Title,
			"length": len(article.Title),
		},
		"summary": map[string]interface{}{
			"value":  article.Summary,
			"length": len(article.Summary),
		},
		"url":       article.URL,
		"author":    article.Author,
		"source":    article.Source,
		"source_id": article.SourceID,
	}
}
