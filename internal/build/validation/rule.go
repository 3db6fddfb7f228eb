// Package validation decides whether a document can be skipped in an
// incremental build. Each rule checks one reason to rebuild; the chain stops at
// the first failing rule and reports its reason.
package validation

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/nblink/internal/depstore"
	"git.home.luguber.info/inful/nblink/internal/logfields"
)

// Context contains all the data needed by validation rules.
type Context struct {
	DocName string
	// Record is the stored record of the previous build; Found is false when
	// the document was never built.
	Record depstore.Record
	Found  bool
	// SourceHash is the hash of the current source content.
	SourceHash string
	// DocRoot is the directory dependency paths are relative to.
	DocRoot string
	// OutputPath is the primary rendered output; empty skips the output check.
	OutputPath string
	Logger     *slog.Logger
}

// Result indicates whether validation passed and provides context.
type Result struct {
	Passed bool
	Reason string
}

// Success returns a successful validation result.
func Success() Result {
	return Result{Passed: true}
}

// Failure returns a failed validation result with a reason.
func Failure(reason string) Result {
	return Result{Passed: false, Reason: reason}
}

// SkipRule is a single condition a document must meet to be skipped.
type SkipRule interface {
	Name() string
	Validate(ctx context.Context, vctx Context) Result
}

// RuleChain executes validation rules in sequence, stopping at the first failure.
type RuleChain struct {
	rules []SkipRule
}

// NewRuleChain creates a new rule chain with the given rules.
func NewRuleChain(rules ...SkipRule) *RuleChain {
	return &RuleChain{rules: rules}
}

// Validate executes all rules in order, returning the first failure or success if all pass.
func (rc *RuleChain) Validate(ctx context.Context, vctx Context) Result {
	for _, rule := range rc.rules {
		result := rule.Validate(ctx, vctx)
		if !result.Passed {
			if vctx.Logger != nil {
				vctx.Logger.Debug("Document needs rebuild",
					logfields.Document(vctx.DocName),
					slog.String("rule", rule.Name()),
					slog.String("reason", result.Reason))
			}
			return result
		}
	}
	return Success()
}
