package ldeval

import (
	"github.com/launchdarkly/go-server-sdk/v7/ldmodel"
	"github.com/launchdarkly/go-server-sdk/v7/lduser"
)

// segmentContainsUser implements a Segment's matching rule: included set
// beats excluded set beats rules (evaluated in order).
func segmentContainsUser(segment *ldmodel.Segment, user lduser.User) bool {
	key := user.Key()
	if key == "" {
		return false
	}
	for _, k := range segment.Included {
		if k == key {
			return true
		}
	}
	for _, k := range segment.Excluded {
		if k == key {
			return false
		}
	}
	for _, rule := range segment.Rules {
		if segmentRuleMatches(rule, user, segment.Key, segment.Salt) {
			return true
		}
	}
	return false
}

func segmentRuleMatches(rule ldmodel.SegmentRule, user lduser.User, segmentKey, salt string) bool {
	for _, clause := range rule.Clauses {
		if !clauseMatchesNoSegments(clause, user) {
			return false
		}
	}
	if rule.Weight == nil {
		return true
	}
	bucketBy := rule.BucketBy
	bucket, ok := bucketUser(user, segmentKey, salt, bucketBy, nil)
	if !ok {
		return false
	}
	return bucket < float64(*rule.Weight)/100000.0
}
