package validation

import "context"

// DefaultRules is the standard order of skip checks. Cheap checks come first.
func DefaultRules() *RuleChain {
	return NewRuleChain(
		RecordRule{},
		StatusRule{},
		RereadRule{},
		SourceHashRule{},
		OutputRule{},
		DependencyHashRule{},
	)
}

// Evaluate returns ("", true) when the document can be skipped, otherwise the
// reason it must be rebuilt.
func Evaluate(ctx context.Context, vctx Context) (string, bool) {
	result := DefaultRules().Validate(ctx, vctx)
	return result.Reason, result.Passed
}
