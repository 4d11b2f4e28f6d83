// Package ldmodel defines the wire/data-model types for flags and segments:
// the shapes the data-source pipeline parses off the wire and the
// evaluation engine reads from the store.
package ldmodel

import "github.com/launchdarkly/go-server-sdk/v7/ldvalue"

// Operator names the comparison a Clause applies.
type Operator string

// Supported clause operators.
const (
	OperatorIn                 Operator = "in"
	OperatorEndsWith           Operator = "endsWith"
	OperatorStartsWith         Operator = "startsWith"
	OperatorMatches            Operator = "matches"
	OperatorContains           Operator = "contains"
	OperatorLessThan           Operator = "lessThan"
	OperatorLessThanOrEqual    Operator = "lessThanOrEqual"
	OperatorGreaterThan        Operator = "greaterThan"
	OperatorGreaterThanOrEqual Operator = "greaterThanOrEqual"
	OperatorBefore             Operator = "before"
	OperatorAfter              Operator = "after"
	OperatorSemVerEqual        Operator = "semVerEqual"
	OperatorSemVerLessThan     Operator = "semVerLessThan"
	OperatorSemVerGreaterThan  Operator = "semVerGreaterThan"
	OperatorSegmentMatch       Operator = "segmentMatch"
)

// Clause is a single test within a Rule or SegmentRule.
type Clause struct {
	Attribute string        `json:"attribute"`
	Op        Operator      `json:"op"`
	Values    []ldvalue.Value `json:"values"`
	Negate    bool          `json:"negate"`
}

// Rule is one entry in a flag's rule list.
type Rule struct {
	ID               string `json:"id"`
	Clauses          []Clause `json:"clauses"`
	VariationOrRollout
	TrackEvents bool `json:"trackEvents"`
}

// WeightedVariation is one entry of a Rollout's variation list.
type WeightedVariation struct {
	Variation int  `json:"variation"`
	Weight    int  `json:"weight"` // 1/100000ths
	Untracked bool `json:"untracked"`
}

// RolloutKind distinguishes a plain weighted rollout from an experiment.
type RolloutKind string

// Rollout kinds.
const (
	RolloutKindRollout    RolloutKind = "rollout"
	RolloutKindExperiment RolloutKind = "experiment"
)

// Rollout describes a weighted variation assignment.
type Rollout struct {
	Variations []WeightedVariation `json:"variations"`
	BucketBy   string              `json:"bucketBy,omitempty"`
	Seed       *int                `json:"seed,omitempty"`
	Kind       RolloutKind         `json:"kind,omitempty"`
}

// VariationOrRollout is either a fixed variation index or a weighted
// Rollout. Exactly one of Variation/Rollout is meaningful; Variation is
// considered set when HasVariation is true.
type VariationOrRollout struct {
	Variation    int
	HasVariation bool
	Rollout      *Rollout
}

// Target maps a fixed variation index to a set of user keys.
type Target struct {
	Variation int      `json:"variation"`
	Values    []string `json:"values"`
}

// Prerequisite names another flag that must be on and serving a particular
// variation before this flag's rules are evaluated.
type Prerequisite struct {
	Key       string `json:"key"`
	Variation int    `json:"variation"`
}

// FeatureFlag is the full data-model representation of a flag.
type FeatureFlag struct {
	Key                  string              `json:"key"`
	Version              int                 `json:"version"`
	On                   bool                `json:"on"`
	Salt                 string              `json:"salt"`
	TrackEvents          bool                `json:"trackEvents"`
	TrackEventsFallthrough bool              `json:"trackEventsFallthrough"`
	DebugEventsUntilDate *int64              `json:"debugEventsUntilDate,omitempty"`
	ClientSide           bool                `json:"clientSide"`
	Deleted              bool                `json:"deleted"`
	OffVariation         *int                `json:"offVariation,omitempty"`
	Fallthrough          VariationOrRollout  `json:"fallthrough"`
	Variations           []ldvalue.Value     `json:"variations"`
	Targets              []Target            `json:"targets"`
	Rules                []Rule              `json:"rules"`
	Prerequisites        []Prerequisite      `json:"prerequisites"`
}

// VariationValue returns the variation at the given index, or Null with
// false if the index is out of range.
func (f *FeatureFlag) VariationValue(index int) (ldvalue.Value, bool) {
	if index < 0 || index >= len(f.Variations) {
		return ldvalue.Null(), false
	}
	return f.Variations[index], true
}

// SegmentRule is one rule within a Segment's rule list; it never contains a
// segmentMatch clause.
type SegmentRule struct {
	Clauses    []Clause `json:"clauses"`
	Weight     *int     `json:"weight,omitempty"`
	BucketBy   string   `json:"bucketBy,omitempty"`
}

// Segment is a reusable, named set of users.
type Segment struct {
	Key      string        `json:"key"`
	Version  int           `json:"version"`
	Included []string      `json:"included"`
	Excluded []string      `json:"excluded"`
	Salt     string        `json:"salt"`
	Rules    []SegmentRule `json:"rules"`
	Deleted  bool          `json:"deleted"`
}
