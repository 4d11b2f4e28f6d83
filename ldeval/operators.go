package ldeval

import (
	"regexp"
	"strings"
	"time"

	"github.com/blang/semver/v4"

	"github.com/launchdarkly/go-server-sdk/v7/ldmodel"
	"github.com/launchdarkly/go-server-sdk/v7/ldvalue"
)

// operatorFn reports whether a single user attribute value satisfies a
// clause value under one operator. Both are the raw Values; segmentMatch is
// handled by the caller, not here, since it needs access to the store.
type operatorFn func(userValue, clauseValue ldvalue.Value) bool

var operatorFns = map[ldmodel.Operator]operatorFn{
	ldmodel.OperatorIn:                 operatorIn,
	ldmodel.OperatorEndsWith:           stringOp(strings.HasSuffix),
	ldmodel.OperatorStartsWith:         stringOp(strings.HasPrefix),
	ldmodel.OperatorContains:           stringOp(strings.Contains),
	ldmodel.OperatorMatches:            operatorMatches,
	ldmodel.OperatorLessThan:           numericOp(func(a, b float64) bool { return a < b }),
	ldmodel.OperatorLessThanOrEqual:    numericOp(func(a, b float64) bool { return a <= b }),
	ldmodel.OperatorGreaterThan:        numericOp(func(a, b float64) bool { return a > b }),
	ldmodel.OperatorGreaterThanOrEqual: numericOp(func(a, b float64) bool { return a >= b }),
	ldmodel.OperatorBefore:             dateOp(func(a, b time.Time) bool { return a.Before(b) }),
	ldmodel.OperatorAfter:              dateOp(func(a, b time.Time) bool { return a.After(b) }),
	ldmodel.OperatorSemVerEqual:        semverOp(func(c int) bool { return c == 0 }),
	ldmodel.OperatorSemVerLessThan:     semverOp(func(c int) bool { return c < 0 }),
	ldmodel.OperatorSemVerGreaterThan:  semverOp(func(c int) bool { return c > 0 }),
}

func operatorIn(u, c ldvalue.Value) bool {
	return u.Equal(c)
}

func stringOp(f func(s, substr string) bool) operatorFn {
	return func(u, c ldvalue.Value) bool {
		if u.Type() != ldvalue.StringType || c.Type() != ldvalue.StringType {
			return false
		}
		return f(u.StringValue(), c.StringValue())
	}
}

func operatorMatches(u, c ldvalue.Value) bool {
	if u.Type() != ldvalue.StringType || c.Type() != ldvalue.StringType {
		return false
	}
	re, err := regexp.Compile(c.StringValue())
	if err != nil {
		return false
	}
	return re.MatchString(u.StringValue())
}

func numericOp(f func(a, b float64) bool) operatorFn {
	return func(u, c ldvalue.Value) bool {
		if u.Type() != ldvalue.NumberType || c.Type() != ldvalue.NumberType {
			return false
		}
		return f(u.Float64Value(), c.Float64Value())
	}
}

// parseDateTime parses an RFC 3339 timestamp, falling back to a Unix
// millisecond numeric timestamp, returning ok=false if neither works.
func parseDateTime(v ldvalue.Value) (time.Time, bool) {
	switch v.Type() {
	case ldvalue.StringType:
		t, err := time.Parse(time.RFC3339Nano, v.StringValue())
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	case ldvalue.NumberType:
		ms := v.Float64Value()
		return time.UnixMilli(int64(ms)).UTC(), true
	default:
		return time.Time{}, false
	}
}

func dateOp(f func(a, b time.Time) bool) operatorFn {
	return func(u, c ldvalue.Value) bool {
		ut, ok := parseDateTime(u)
		if !ok {
			return false
		}
		ct, ok := parseDateTime(c)
		if !ok {
			return false
		}
		return f(ut, ct)
	}
}

func parseSemVer(v ldvalue.Value) (semver.Version, bool) {
	if v.Type() != ldvalue.StringType {
		return semver.Version{}, false
	}
	s := v.StringValue()
	// Tolerate a bare "major.minor" the way user-supplied versions often
	// arrive, by padding with a zero patch component.
	if strings.Count(s, ".") == 1 {
		s += ".0"
	}
	parsed, err := semver.Parse(s)
	if err != nil {
		return semver.Version{}, false
	}
	return parsed, true
}

func semverOp(f func(cmp int) bool) operatorFn {
	return func(u, c ldvalue.Value) bool {
		uv, ok := parseSemVer(u)
		if !ok {
			return false
		}
		cv, ok := parseSemVer(c)
		if !ok {
			return false
		}
		return f(uv.Compare(cv))
	}
}
