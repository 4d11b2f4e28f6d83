// Package lduser defines the user (evaluation context) model: construction,
// built-in and custom attributes, and the private-attribute redaction used
// when a user is embedded in an analytics event.
package lduser

import (
	"github.com/launchdarkly/go-server-sdk/v7/ldvalue"
)

// User is the canonical representation of the person or entity a flag is
// being evaluated for. It is immutable once built.
type User struct {
	key                  string
	anonymous            bool
	hasAnonymous         bool
	ip                   ldvalue.Value
	firstName            ldvalue.Value
	lastName             ldvalue.Value
	email                ldvalue.Value
	name                 ldvalue.Value
	avatar               ldvalue.Value
	country              ldvalue.Value
	secondary            ldvalue.Value
	custom               map[string]ldvalue.Value
	privateAttributeNames []string
}

// Key returns the user's key.
func (u User) Key() string { return u.key }

// Anonymous returns the anonymous flag and whether it was set at all.
func (u User) Anonymous() (bool, bool) { return u.anonymous, u.hasAnonymous }

// Secondary returns the secondary bucketing key, if set.
func (u User) Secondary() (string, bool) {
	if u.secondary.IsNull() {
		return "", false
	}
	return u.secondary.StringValue(), true
}

// PrivateAttributeNames returns the per-user list of attribute names to
// redact from analytics events.
func (u User) PrivateAttributeNames() []string { return u.privateAttributeNames }

// GetCustom returns a custom attribute value and whether it was present.
func (u User) GetCustom(name string) (ldvalue.Value, bool) {
	v, ok := u.custom[name]
	return v, ok
}

// GetCustomKeys returns all defined custom attribute names.
func (u User) GetCustomKeys() []string {
	keys := make([]string, 0, len(u.custom))
	for k := range u.custom {
		keys = append(keys, k)
	}
	return keys
}

// builtins lists every built-in attribute name, key included. valueOf and the
// redaction code do not read it; redaction uses builtinAttrs, which omits key.
var builtins = []string{"key", "secondary", "ip", "country", "email", "firstName", "lastName", "avatar", "name", "anonymous"}

// valueOf resolves a named attribute to a Value, first checking built-ins
// and falling through to custom attributes. The boolean result is false if
// the attribute does not exist on this user at all.
func (u User) valueOf(attribute string) (ldvalue.Value, bool) {
	switch attribute {
	case "key":
		if u.key == "" {
			return ldvalue.Null(), false
		}
		return ldvalue.String(u.key), true
	case "secondary":
		return nonNull(u.secondary)
	case "ip":
		return nonNull(u.ip)
	case "country":
		return nonNull(u.country)
	case "email":
		return nonNull(u.email)
	case "firstName":
		return nonNull(u.firstName)
	case "lastName":
		return nonNull(u.lastName)
	case "avatar":
		return nonNull(u.avatar)
	case "name":
		return nonNull(u.name)
	case "anonymous":
		if !u.hasAnonymous {
			return ldvalue.Null(), false
		}
		return ldvalue.Bool(u.anonymous), true
	default:
		v, ok := u.custom[attribute]
		return v, ok
	}
}

// ValueOf exposes attribute resolution for the evaluator.
func (u User) ValueOf(attribute string) (ldvalue.Value, bool) {
	return u.valueOf(attribute)
}

func nonNull(v ldvalue.Value) (ldvalue.Value, bool) {
	if v.IsNull() {
		return ldvalue.Null(), false
	}
	return v, true
}

// Equal reports whether two users are identical across every attribute,
// compared field by field (not via reflection, so that a Value's internal
// representation cannot cause spurious inequality).
func (u User) Equal(o User) bool {
	if u.key != o.key || u.hasAnonymous != o.hasAnonymous || u.anonymous != o.anonymous {
		return false
	}
	if !u.ip.Equal(o.ip) || !u.firstName.Equal(o.firstName) || !u.lastName.Equal(o.lastName) ||
		!u.email.Equal(o.email) || !u.name.Equal(o.name) || !u.avatar.Equal(o.avatar) ||
		!u.country.Equal(o.country) || !u.secondary.Equal(o.secondary) {
		return false
	}
	if len(u.custom) != len(o.custom) {
		return false
	}
	for k, v := range u.custom {
		ov, ok := o.custom[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	if len(u.privateAttributeNames) != len(o.privateAttributeNames) {
		return false
	}
	for i, n := range u.privateAttributeNames {
		if o.privateAttributeNames[i] != n {
			return false
		}
	}
	return true
}
