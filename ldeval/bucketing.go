package ldeval

import (
	"crypto/sha1" //nolint:gosec // bucketing requires this exact hash per the wire protocol, not used for security
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/launchdarkly/go-server-sdk/v7/ldmodel"
	"github.com/launchdarkly/go-server-sdk/v7/lduser"
	"github.com/launchdarkly/go-server-sdk/v7/ldvalue"
)

// longScale is the denominator that maps the first 15 hex digits of a
// SHA-1 digest into the [0,1) range used for bucket assignment.
const longScale = 0xFFFFFFFFFFFFFFF

// bucketableStringValue returns the string form of v if v is bucketable
// (string or number), and whether it was bucketable at all.
func bucketableStringValue(v ldvalue.Value) (string, bool) {
	switch v.Type() {
	case ldvalue.StringType:
		return v.StringValue(), true
	case ldvalue.NumberType:
		return strconv.Itoa(v.IntValue()), true
	default:
		return "", false
	}
}

// bucketUser computes a user's bucket value in [0,1) for a rollout
// identified by key (the flag or segment key) and salt, optionally hashed
// with an explicit seed instead of key+salt.
//
// Returns ok=false when the bucketBy attribute isn't present or isn't a
// bucketable type. Segment rules treat that as no match; flag rollouts
// (variationIndexForUser) use bucket 0 instead.
func bucketUser(user lduser.User, key, salt, bucketBy string, seed *int) (float64, bool) {
	attr := bucketBy
	if attr == "" {
		attr = "key"
	}
	value, ok := user.ValueOf(attr)
	if !ok {
		return 0, false
	}
	bucketableVal, ok := bucketableStringValue(value)
	if !ok {
		return 0, false
	}

	var hashInput string
	if seed != nil {
		hashInput = fmt.Sprintf("%d.%s", *seed, bucketableVal)
	} else {
		idHash := bucketableVal
		if secondary, ok := user.Secondary(); ok {
			idHash = idHash + "." + secondary
		}
		hashInput = fmt.Sprintf("%s.%s.%s", key, salt, idHash)
	}

	h := sha1.Sum([]byte(hashInput)) //nolint:gosec
	hexDigest := hex.EncodeToString(h[:])
	hash16 := hexDigest[:15]
	intVal, err := strconv.ParseUint(hash16, 16, 64)
	if err != nil {
		return 0, false
	}
	return float64(intVal) / float64(longScale), true
}

// variationIndexForUser walks a rollout's weighted variations in declared
// order, returning the first whose cumulative weight exceeds the user's
// bucket value, and whether the selected variation is "in experiment".
func variationIndexForUser(rollout *ldmodel.Rollout, user lduser.User, key, salt string) (variation int, inExperiment bool, ok bool) {
	if rollout == nil || len(rollout.Variations) == 0 {
		return 0, false, false
	}
	// A bucketBy attribute that is absent or not bucketable (not a string
	// or number) is treated as bucket 0: the rollout still selects a
	// variation, just always the first one for that user.
	bucket, _ := bucketUser(user, key, salt, rollout.BucketBy, rollout.Seed)

	var sum float64
	isExperiment := rollout.Kind == ldmodel.RolloutKindExperiment
	for _, wv := range rollout.Variations {
		sum += float64(wv.Weight) / 100000.0
		if bucket < sum {
			return wv.Variation, isExperiment && !wv.Untracked, true
		}
	}
	// Floating point tie at 1.0 goes to the last variation.
	last := rollout.Variations[len(rollout.Variations)-1]
	return last.Variation, isExperiment && !last.Untracked, true
}
