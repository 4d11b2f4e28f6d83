package ldeval

import (
	"github.com/launchdarkly/go-server-sdk/v7/ldmodel"
	"github.com/launchdarkly/go-server-sdk/v7/lduser"
	"github.com/launchdarkly/go-server-sdk/v7/ldvalue"
)

// clauseMatchesNoSegments evaluates every operator except segmentMatch; it
// is used by segment rules themselves, which may never reference another
// segment.
func clauseMatchesNoSegments(clause ldmodel.Clause, user lduser.User) bool {
	userValue, ok := user.ValueOf(clause.Attribute)
	if !ok {
		// An absent attribute never matches, negated or not: negate only
		// inverts the outcome when the attribute was present.
		return false
	}
	return maybeNegate(clause, matchValue(clause, userValue))
}

func maybeNegate(clause ldmodel.Clause, match bool) bool {
	if clause.Negate {
		return !match
	}
	return match
}

// matchValue tests userValue (scalar or array) against every value listed
// in the clause, using the clause's operator. If userValue is an array,
// the clause matches if any element satisfies the operator.
func matchValue(clause ldmodel.Clause, userValue ldvalue.Value) bool {
	fn, ok := operatorFns[clause.Op]
	if !ok {
		return false
	}
	if userValue.Type() == ldvalue.ArrayType {
		for _, elem := range userValue.AsArray() {
			if matchScalar(fn, elem, clause.Values) {
				return true
			}
		}
		return false
	}
	return matchScalar(fn, userValue, clause.Values)
}

func matchScalar(fn operatorFn, userValue ldvalue.Value, clauseValues []ldvalue.Value) bool {
	for _, cv := range clauseValues {
		if fn(userValue, cv) {
			return true
		}
	}
	return false
}

// clauseMatches evaluates a clause including segmentMatch, which requires
// access to the segment store via lookupSegment.
func clauseMatches(clause ldmodel.Clause, user lduser.User, lookupSegment func(key string) (*ldmodel.Segment, bool)) bool {
	if clause.Op == ldmodel.OperatorSegmentMatch {
		matched := false
		for _, v := range clause.Values {
			if v.Type() != ldvalue.StringType {
				continue
			}
			segment, ok := lookupSegment(v.StringValue())
			if !ok {
				continue
			}
			if segmentContainsUser(segment, user) {
				matched = true
				break
			}
		}
		return maybeNegate(clause, matched)
	}
	return clauseMatchesNoSegments(clause, user)
}
