package ldevents

import (
	"github.com/launchdarkly/go-server-sdk/v7/ldmodel"
	"github.com/launchdarkly/go-server-sdk/v7/lduser"
	"github.com/launchdarkly/go-server-sdk/v7/ldvalue"
)

type eventOutputFormatter struct {
	filter      lduser.FilterConfig
	inlineUsers bool
}

func newEventOutputFormatter(config EventsConfiguration) eventOutputFormatter {
	return eventOutputFormatter{
		filter: lduser.FilterConfig{
			AllAttributesPrivate:        config.AllAttributesPrivate,
			GlobalPrivateAttributeNames: config.GlobalPrivateAttributeNames,
		},
		inlineUsers: config.InlineUsersInEvents,
	}
}

// makeOutputEvents converts buffered events plus the summary snapshot into
// the JSON-ready documents posted to the events service.
func (f eventOutputFormatter) makeOutputEvents(events []Event, summary eventSummary) []ldvalue.Value {
	out := make([]ldvalue.Value, 0, len(events)+1)
	for _, e := range events {
		if v, ok := f.makeOutputEvent(e); ok {
			out = append(out, v)
		}
	}
	if len(summary.counters) > 0 {
		out = append(out, f.makeSummaryEvent(summary))
	}
	return out
}

func (f eventOutputFormatter) userOrKey(user lduser.User, forceInline bool) []ldvalue.ObjectEntry {
	if f.inlineUsers || forceInline {
		return []ldvalue.ObjectEntry{{Key: "user", Value: f.filter.ToJSON(user)}}
	}
	return []ldvalue.ObjectEntry{{Key: "userKey", Value: ldvalue.String(user.Key())}}
}

func (f eventOutputFormatter) makeOutputEvent(e Event) (ldvalue.Value, bool) {
	switch evt := e.(type) {
	case FeatureRequestEvent:
		kind := FeatureRequestEventKind
		if evt.Debug {
			kind = DebugEventKind
		}
		entries := []ldvalue.ObjectEntry{
			{Key: "kind", Value: ldvalue.String(kind)},
			{Key: "creationDate", Value: ldvalue.Float64(float64(evt.CreationDate))},
			{Key: "key", Value: ldvalue.String(evt.Key)},
		}
		if evt.HasVersion {
			entries = append(entries, ldvalue.ObjectEntry{Key: "version", Value: ldvalue.Int(evt.Version)})
		}
		if evt.HasVariation {
			entries = append(entries, ldvalue.ObjectEntry{Key: "variation", Value: ldvalue.Int(evt.Variation)})
		}
		entries = append(entries, ldvalue.ObjectEntry{Key: "value", Value: evt.Value})
		if !evt.Default.IsNull() {
			entries = append(entries, ldvalue.ObjectEntry{Key: "default", Value: evt.Default})
		}
		if evt.HasPrereqOf {
			entries = append(entries, ldvalue.ObjectEntry{Key: "prereqOf", Value: ldvalue.String(evt.PrereqOf)})
		}
		if evt.Reason.Kind != "" {
			entries = append(entries, ldvalue.ObjectEntry{Key: "reason", Value: reasonToValue(evt.Reason)})
		}
		entries = append(entries, f.userOrKey(evt.User, evt.Debug)...)
		return ldvalue.Object(entries...), true

	case IdentifyEvent:
		return ldvalue.Object(
			ldvalue.ObjectEntry{Key: "kind", Value: ldvalue.String(IdentifyEventKind)},
			ldvalue.ObjectEntry{Key: "creationDate", Value: ldvalue.Float64(float64(evt.CreationDate))},
			ldvalue.ObjectEntry{Key: "key", Value: ldvalue.String(evt.User.Key())},
			ldvalue.ObjectEntry{Key: "user", Value: f.filter.ToJSON(evt.User)},
		), true

	case CustomEvent:
		entries := []ldvalue.ObjectEntry{
			{Key: "kind", Value: ldvalue.String(CustomEventKind)},
			{Key: "creationDate", Value: ldvalue.Float64(float64(evt.CreationDate))},
			{Key: "key", Value: ldvalue.String(evt.Key)},
		}
		if evt.HasData {
			entries = append(entries, ldvalue.ObjectEntry{Key: "data", Value: evt.Data})
		}
		if evt.MetricValue != nil {
			entries = append(entries, ldvalue.ObjectEntry{Key: "metricValue", Value: ldvalue.Float64(*evt.MetricValue)})
		}
		entries = append(entries, f.userOrKey(evt.User, false)...)
		return ldvalue.Object(entries...), true

	case IndexEvent:
		return ldvalue.Object(
			ldvalue.ObjectEntry{Key: "kind", Value: ldvalue.String(IndexEventKind)},
			ldvalue.ObjectEntry{Key: "creationDate", Value: ldvalue.Float64(float64(evt.CreationDate))},
			ldvalue.ObjectEntry{Key: "user", Value: f.filter.ToJSON(evt.User)},
		), true
	}
	return ldvalue.Null(), false
}

func (f eventOutputFormatter) makeSummaryEvent(summary eventSummary) ldvalue.Value {
	featuresEntries := map[string][]ldvalue.ObjectEntry{}
	defaults := map[string]ldvalue.Value{}
	countersByFlag := map[string][]ldvalue.Value{}

	for key, cv := range summary.counters {
		defaults[key.key] = cv.flagDefault
		counterEntries := []ldvalue.ObjectEntry{
			{Key: "value", Value: cv.flagValue},
			{Key: "count", Value: ldvalue.Int(cv.count)},
		}
		if key.version == 0 {
			counterEntries = append(counterEntries, ldvalue.ObjectEntry{Key: "unknown", Value: ldvalue.Bool(true)})
		} else {
			counterEntries = append(counterEntries, ldvalue.ObjectEntry{Key: "version", Value: ldvalue.Int(key.version)})
		}
		if key.variation >= 0 {
			counterEntries = append(counterEntries, ldvalue.ObjectEntry{Key: "variation", Value: ldvalue.Int(key.variation)})
		}
		countersByFlag[key.key] = append(countersByFlag[key.key], ldvalue.Object(counterEntries...))
	}

	for flagKey, counters := range countersByFlag {
		featuresEntries[flagKey] = []ldvalue.ObjectEntry{
			{Key: "default", Value: defaults[flagKey]},
			{Key: "counters", Value: ldvalue.Array(counters...)},
		}
	}

	featureObjEntries := make([]ldvalue.ObjectEntry, 0, len(featuresEntries))
	for flagKey, entries := range featuresEntries {
		featureObjEntries = append(featureObjEntries, ldvalue.ObjectEntry{Key: flagKey, Value: ldvalue.Object(entries...)})
	}

	return ldvalue.Object(
		ldvalue.ObjectEntry{Key: "kind", Value: ldvalue.String(SummaryEventKind)},
		ldvalue.ObjectEntry{Key: "startDate", Value: ldvalue.Float64(float64(summary.startDate))},
		ldvalue.ObjectEntry{Key: "endDate", Value: ldvalue.Float64(float64(summary.endDate))},
		ldvalue.ObjectEntry{Key: "features", Value: ldvalue.Object(featureObjEntries...)},
	)
}

func reasonToValue(r ldmodel.EvaluationReason) ldvalue.Value {
	entries := []ldvalue.ObjectEntry{{Key: "kind", Value: ldvalue.String(string(r.Kind))}}
	if r.Kind == ldmodel.EvalReasonRuleMatch {
		entries = append(entries,
			ldvalue.ObjectEntry{Key: "ruleIndex", Value: ldvalue.Int(r.RuleIndex)},
			ldvalue.ObjectEntry{Key: "ruleId", Value: ldvalue.String(r.RuleID)},
		)
	}
	if r.PrerequisiteKey != "" {
		entries = append(entries, ldvalue.ObjectEntry{Key: "prerequisiteKey", Value: ldvalue.String(r.PrerequisiteKey)})
	}
	if r.Kind == ldmodel.EvalReasonError {
		entries = append(entries, ldvalue.ObjectEntry{Key: "errorKind", Value: ldvalue.String(string(r.ErrorKind))})
	}
	if r.InExperiment {
		entries = append(entries, ldvalue.ObjectEntry{Key: "inExperiment", Value: ldvalue.Bool(true)})
	}
	return ldvalue.Object(entries...)
}
