// Package ldeval implements the flag evaluation engine: given a flag, a
// user, and access to the rest of the dataset (for prerequisites and
// segments), it produces a value, a reason, and the prerequisite-evaluation
// events that must be recorded alongside it.
package ldeval

import (
	"github.com/launchdarkly/go-server-sdk/v7/ldmodel"
	"github.com/launchdarkly/go-server-sdk/v7/lduser"
)

// DataProvider is the read-only view of the dataset the evaluator needs:
// looking up prerequisite flags by key and segments referenced by
// segmentMatch clauses. A Store-backed implementation lives in the client
// facade; tests can supply a plain map-backed one.
type DataProvider interface {
	GetFlag(key string) (*ldmodel.FeatureFlag, bool)
	GetSegment(key string) (*ldmodel.Segment, bool)
}

// PrerequisiteEvent records one prerequisite flag's evaluation result, to
// be turned into a feature event by the caller.
type PrerequisiteEvent struct {
	PrerequisiteFlag *ldmodel.FeatureFlag
	Detail           ldmodel.EvaluationDetail
	PrereqOfKey      string
}

// Result is the full output of Evaluate.
type Result struct {
	Detail             ldmodel.EvaluationDetail
	PrerequisiteEvents []PrerequisiteEvent
	// RequiresTracking is true when the matched path (the flag itself, the
	// matched rule, or a tracked fallthrough) requests a feature event
	// regardless of the flag's own TrackEvents setting.
	RequiresTracking bool
}

// Evaluate runs the full evaluation algorithm for flag against user, using
// data to resolve prerequisites and segments.
func Evaluate(flag *ldmodel.FeatureFlag, user lduser.User, data DataProvider) Result {
	if user.Key() == "" {
		return Result{Detail: ldmodel.NewEvaluationError(ldmodel.EvalErrorUserNotSpecified)}
	}

	var events []PrerequisiteEvent

	if !flag.On {
		return Result{Detail: offResult(flag), PrerequisiteEvents: events, RequiresTracking: flag.TrackEvents}
	}

	if reason, ok := checkPrerequisites(flag, user, data, &events); !ok {
		return Result{Detail: offResultWithReason(flag, reason), PrerequisiteEvents: events, RequiresTracking: flag.TrackEvents}
	}

	for _, target := range flag.Targets {
		for _, v := range target.Values {
			if v == user.Key() {
				return Result{
					Detail:             resultForVariation(flag, target.Variation, ldmodel.NewEvalReasonTargetMatch()),
					PrerequisiteEvents: events,
					RequiresTracking:   flag.TrackEvents,
				}
			}
		}
	}

	for i, rule := range flag.Rules {
		if ruleMatches(rule, user, data) {
			detail, ok := resultForVariationOrRollout(flag, rule.VariationOrRollout, user, func(inExperiment bool) ldmodel.EvaluationReason {
				return ldmodel.NewEvalReasonRuleMatch(i, rule.ID, inExperiment)
			})
			if !ok {
				return Result{Detail: ldmodel.NewEvaluationError(ldmodel.EvalErrorMalformedFlag), PrerequisiteEvents: events}
			}
			return Result{
				Detail:             detail,
				PrerequisiteEvents: events,
				RequiresTracking:   flag.TrackEvents || rule.TrackEvents,
			}
		}
	}

	detail, ok := resultForVariationOrRollout(flag, flag.Fallthrough, user, func(inExperiment bool) ldmodel.EvaluationReason {
		return ldmodel.NewEvalReasonFallthrough(inExperiment)
	})
	if !ok {
		return Result{Detail: ldmodel.NewEvaluationError(ldmodel.EvalErrorMalformedFlag), PrerequisiteEvents: events}
	}
	return Result{
		Detail:             detail,
		PrerequisiteEvents: events,
		RequiresTracking:   flag.TrackEvents || flag.TrackEventsFallthrough,
	}
}

func offResult(flag *ldmodel.FeatureFlag) ldmodel.EvaluationDetail {
	return offResultWithReason(flag, ldmodel.NewEvalReasonOff())
}

func offResultWithReason(flag *ldmodel.FeatureFlag, reason ldmodel.EvaluationReason) ldmodel.EvaluationDetail {
	if flag.OffVariation == nil {
		return ldmodel.EvaluationDetail{Reason: reason}
	}
	return resultForVariation(flag, *flag.OffVariation, reason)
}

func resultForVariation(flag *ldmodel.FeatureFlag, index int, reason ldmodel.EvaluationReason) ldmodel.EvaluationDetail {
	value, ok := flag.VariationValue(index)
	if !ok {
		return ldmodel.NewEvaluationError(ldmodel.EvalErrorMalformedFlag)
	}
	return ldmodel.EvaluationDetail{Value: value, VariationIndex: index, HasVariation: true, Reason: reason}
}

// resultForVariationOrRollout resolves either a fixed variation or a
// rollout, invoking makeReason with whether the rollout assignment was "in
// experiment" (always false for a fixed variation).
func resultForVariationOrRollout(
	flag *ldmodel.FeatureFlag,
	vr ldmodel.VariationOrRollout,
	user lduser.User,
	makeReason func(inExperiment bool) ldmodel.EvaluationReason,
) (ldmodel.EvaluationDetail, bool) {
	if vr.HasVariation {
		return resultForVariation(flag, vr.Variation, makeReason(false)), true
	}
	if vr.Rollout == nil {
		return ldmodel.EvaluationDetail{}, false
	}
	variation, inExperiment, ok := variationIndexForUser(vr.Rollout, user, flag.Key, flag.Salt)
	if !ok {
		return ldmodel.EvaluationDetail{}, false
	}
	return resultForVariation(flag, variation, makeReason(inExperiment)), true
}

func ruleMatches(rule ldmodel.Rule, user lduser.User, data DataProvider) bool {
	for _, clause := range rule.Clauses {
		if !clauseMatches(clause, user, data.GetSegment) {
			return false
		}
	}
	return true
}

// checkPrerequisites recursively evaluates each prerequisite flag in
// declared order, appending one PrerequisiteEvent per evaluation. It
// returns false at the first prerequisite that isn't on or doesn't serve
// the required variation, along with the PrerequisiteFailed reason.
func checkPrerequisites(flag *ldmodel.FeatureFlag, user lduser.User, data DataProvider, events *[]PrerequisiteEvent) (ldmodel.EvaluationReason, bool) {
	for _, p := range flag.Prerequisites {
		prereqFlag, ok := data.GetFlag(p.Key)
		if !ok {
			return ldmodel.NewEvalReasonPrerequisiteFailed(p.Key), false
		}
		prereqResult := Evaluate(prereqFlag, user, data)
		*events = append(*events, prereqResult.PrerequisiteEvents...)
		*events = append(*events, PrerequisiteEvent{
			PrerequisiteFlag: prereqFlag,
			Detail:           prereqResult.Detail,
			PrereqOfKey:      flag.Key,
		})
		if !prereqFlag.On || prereqResult.Detail.VariationIndex != p.Variation || !prereqResult.Detail.HasVariation {
			return ldmodel.NewEvalReasonPrerequisiteFailed(p.Key), false
		}
	}
	return ldmodel.EvaluationReason{}, true
}

