package ldmodel

import "github.com/launchdarkly/go-server-sdk/v7/ldvalue"

// EvalReasonKind names the category of an EvaluationReason.
type EvalReasonKind string

// Reason kinds.
const (
	EvalReasonOff               EvalReasonKind = "OFF"
	EvalReasonTargetMatch       EvalReasonKind = "TARGET_MATCH"
	EvalReasonRuleMatch         EvalReasonKind = "RULE_MATCH"
	EvalReasonPrerequisiteFailed EvalReasonKind = "PREREQUISITE_FAILED"
	EvalReasonFallthrough       EvalReasonKind = "FALLTHROUGH"
	EvalReasonError             EvalReasonKind = "ERROR"
)

// EvalErrorKind names the category of an ERROR reason.
type EvalErrorKind string

// Error kinds, per the spec's error taxonomy.
const (
	EvalErrorClientNotReady    EvalErrorKind = "CLIENT_NOT_READY"
	EvalErrorNullKey           EvalErrorKind = "NULL_KEY"
	EvalErrorStoreError        EvalErrorKind = "STORE_ERROR"
	EvalErrorFlagNotFound      EvalErrorKind = "FLAG_NOT_FOUND"
	EvalErrorUserNotSpecified  EvalErrorKind = "USER_NOT_SPECIFIED"
	EvalErrorMalformedFlag     EvalErrorKind = "MALFORMED_FLAG"
	EvalErrorWrongType         EvalErrorKind = "WRONG_TYPE"
	EvalErrorException         EvalErrorKind = "EXCEPTION"
)

// EvaluationReason explains how a value was selected.
type EvaluationReason struct {
	Kind            EvalReasonKind
	RuleIndex       int
	RuleID          string
	PrerequisiteKey string
	ErrorKind       EvalErrorKind
	InExperiment    bool
}

// NewEvalReasonOff returns an OFF reason.
func NewEvalReasonOff() EvaluationReason {
	return EvaluationReason{Kind: EvalReasonOff}
}

// NewEvalReasonTargetMatch returns a TARGET_MATCH reason.
func NewEvalReasonTargetMatch() EvaluationReason {
	return EvaluationReason{Kind: EvalReasonTargetMatch}
}

// NewEvalReasonRuleMatch returns a RULE_MATCH reason.
func NewEvalReasonRuleMatch(ruleIndex int, ruleID string, inExperiment bool) EvaluationReason {
	return EvaluationReason{Kind: EvalReasonRuleMatch, RuleIndex: ruleIndex, RuleID: ruleID, InExperiment: inExperiment}
}

// NewEvalReasonPrerequisiteFailed returns a PREREQUISITE_FAILED reason.
func NewEvalReasonPrerequisiteFailed(key string) EvaluationReason {
	return EvaluationReason{Kind: EvalReasonPrerequisiteFailed, PrerequisiteKey: key}
}

// NewEvalReasonFallthrough returns a FALLTHROUGH reason.
func NewEvalReasonFallthrough(inExperiment bool) EvaluationReason {
	return EvaluationReason{Kind: EvalReasonFallthrough, InExperiment: inExperiment}
}

// NewEvalReasonError returns an ERROR reason of the given kind.
func NewEvalReasonError(kind EvalErrorKind) EvaluationReason {
	return EvaluationReason{Kind: EvalReasonError, ErrorKind: kind}
}

// EvaluationDetail is the full result of evaluating a flag.
type EvaluationDetail struct {
	Value          ldvalue.Value
	VariationIndex int
	HasVariation   bool
	Reason         EvaluationReason
}

// IsDefaultValue is true when no variation was selected (an ERROR reason,
// or an OFF flag with no off variation).
func (d EvaluationDetail) IsDefaultValue() bool {
	return !d.HasVariation
}

// NewEvaluationError builds an EvaluationDetail carrying no value.
func NewEvaluationError(kind EvalErrorKind) EvaluationDetail {
	return EvaluationDetail{Reason: NewEvalReasonError(kind)}
}
