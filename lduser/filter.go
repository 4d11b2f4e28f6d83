package lduser

import "github.com/launchdarkly/go-server-sdk/v7/ldvalue"

// FilterConfig carries the redaction policy applied to ToJSON.
type FilterConfig struct {
	AllAttributesPrivate        bool
	GlobalPrivateAttributeNames []string
}

type builtinAttr struct {
	name string
	get  func(User) (ldvalue.Value, bool)
}

var builtinAttrs = []builtinAttr{
	{"secondary", func(u User) (ldvalue.Value, bool) { return nonNull(u.secondary) }},
	{"ip", func(u User) (ldvalue.Value, bool) { return nonNull(u.ip) }},
	{"country", func(u User) (ldvalue.Value, bool) { return nonNull(u.country) }},
	{"email", func(u User) (ldvalue.Value, bool) { return nonNull(u.email) }},
	{"firstName", func(u User) (ldvalue.Value, bool) { return nonNull(u.firstName) }},
	{"lastName", func(u User) (ldvalue.Value, bool) { return nonNull(u.lastName) }},
	{"avatar", func(u User) (ldvalue.Value, bool) { return nonNull(u.avatar) }},
	{"name", func(u User) (ldvalue.Value, bool) { return nonNull(u.name) }},
	{"anonymous", func(u User) (ldvalue.Value, bool) {
		if !u.hasAnonymous {
			return ldvalue.Null(), false
		}
		return ldvalue.Bool(u.anonymous), true
	}},
}

// ToJSON produces the event-safe document for this user. When redact is
// true, any attribute whose name is private per cfg or per the user's own
// private-attribute list (key is never private) is omitted from the output
// and its name is recorded in a "privateAttrs" array instead.
//
// Custom attribute iteration can race with concurrent mutation of the map
// backing a user built with a shared custom value; the defer/recover guards
// against that without changing the result for the non-racing case.
func (cfg FilterConfig) ToJSON(u User) (result ldvalue.Value) {
	defer func() {
		if r := recover(); r != nil {
			result = ldvalue.Object(ldvalue.ObjectEntry{Key: "key", Value: ldvalue.String(u.key)})
		}
	}()

	isPrivate := cfg.isPrivateSet(u)

	var entries []ldvalue.ObjectEntry
	var redacted []string
	entries = append(entries, ldvalue.ObjectEntry{Key: "key", Value: ldvalue.String(u.key)})

	for _, attr := range builtinAttrs {
		v, ok := attr.get(u)
		if !ok {
			continue
		}
		if isPrivate[attr.name] {
			redacted = append(redacted, attr.name)
			continue
		}
		entries = append(entries, ldvalue.ObjectEntry{Key: attr.name, Value: v})
	}

	if len(u.custom) > 0 {
		var customEntries []ldvalue.ObjectEntry
		for k, v := range u.custom {
			if isPrivate[k] {
				redacted = append(redacted, k)
				continue
			}
			customEntries = append(customEntries, ldvalue.ObjectEntry{Key: k, Value: v})
		}
		if len(customEntries) > 0 {
			entries = append(entries, ldvalue.ObjectEntry{Key: "custom", Value: ldvalue.Object(customEntries...)})
		}
	}

	if len(redacted) > 0 {
		attrVals := make([]ldvalue.Value, len(redacted))
		for i, n := range redacted {
			attrVals[i] = ldvalue.String(n)
		}
		entries = append(entries, ldvalue.ObjectEntry{Key: "privateAttrs", Value: ldvalue.Array(attrVals...)})
	}

	return ldvalue.Object(entries...)
}

func (cfg FilterConfig) isPrivateSet(u User) map[string]bool {
	set := make(map[string]bool, len(cfg.GlobalPrivateAttributeNames)+len(u.privateAttributeNames))
	if cfg.AllAttributesPrivate {
		for _, attr := range builtinAttrs {
			set[attr.name] = true
		}
		for k := range u.custom {
			set[k] = true
		}
		return set
	}
	for _, n := range cfg.GlobalPrivateAttributeNames {
		set[n] = true
	}
	for _, n := range u.privateAttributeNames {
		set[n] = true
	}
	return set
}
