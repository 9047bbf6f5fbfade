package validate

import (
	"context"
	"log/slog"

	"github.com/Ace1928/docforge/internal/logfields"
)

// Outcome pairs a rule name with its result.
type Outcome struct {
	Rule   string
	Result Result
}

// Evaluator runs the rules named by the manifest policy against a docs tree.
// Unknown rule names fail closed so policy typos surface immediately.
type Evaluator struct {
	rules map[string]Rule
}

// NewEvaluator constructs an evaluator over the standard rule set.
func NewEvaluator() *Evaluator {
	return &Evaluator{rules: StandardRules()}
}

// Register adds or replaces a rule.
func (e *Evaluator) Register(r Rule) {
	e.rules[r.Name()] = r
}

// Run evaluates every named rule and records the outcome on the manifest.
// An empty name list means all standard rules, in declaration order.
func (e *Evaluator) Run(ctx context.Context, vctx Context) []Outcome {
	names := e.ruleNames(vctx)
	logger := vctx.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		outcomes []Outcome
		passed   []string
		failed   []string
	)
	for _, name := range names {
		rule, ok := e.rules[name]
		var result Result
		if !ok {
			result = Failure("unknown rule: " + name)
		} else {
			result = rule.Validate(ctx, vctx)
		}

		outcomes = append(outcomes, Outcome{Rule: name, Result: result})
		if result.Passed {
			passed = append(passed, name)
		} else {
			failed = append(failed, name)
			logger.Warn("Validation rule failed",
				logfields.Rule(name),
				slog.String("reason", result.Reason))
		}
	}

	if vctx.Manifest != nil {
		vctx.Manifest.SetValidation(passed, failed)
	}
	return outcomes
}

// Passed reports whether every outcome succeeded.
func Passed(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if !o.Result.Passed {
			return false
		}
	}
	return true
}

func (e *Evaluator) ruleNames(vctx Context) []string {
	if vctx.Manifest != nil && len(vctx.Manifest.Policy.Rules) > 0 {
		return vctx.Manifest.Policy.Rules
	}
	return []string{RuleManifestFresh, RuleCategoryPaths, RuleTocSynced, RuleCoverageFloor, RuleNoBrokenRefs}
}
