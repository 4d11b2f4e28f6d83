package lduser

import "github.com/launchdarkly/go-server-sdk/v7/ldvalue"

// UserBuilder constructs an immutable User using the fluent builder pattern.
type UserBuilder struct {
	user User
}

// NewUserBuilder starts building a user with the given key.
func NewUserBuilder(key string) *UserBuilder {
	return &UserBuilder{user: User{key: key}}
}

// Build finalizes and returns the constructed User.
func (b *UserBuilder) Build() User {
	u := b.user
	if u.custom != nil {
		cp := make(map[string]ldvalue.Value, len(u.custom))
		for k, v := range u.custom {
			cp[k] = v
		}
		u.custom = cp
	}
	if u.privateAttributeNames != nil {
		cp := make([]string, len(u.privateAttributeNames))
		copy(cp, u.privateAttributeNames)
		u.privateAttributeNames = cp
	}
	return u
}

// Anonymous sets the anonymous flag.
func (b *UserBuilder) Anonymous(value bool) *UserBuilder {
	b.user.anonymous = value
	b.user.hasAnonymous = true
	return b
}

// IP sets the ip attribute.
func (b *UserBuilder) IP(value string) *UserBuilder {
	b.user.ip = ldvalue.String(value)
	return b
}

// FirstName sets the firstName attribute.
func (b *UserBuilder) FirstName(value string) *UserBuilder {
	b.user.firstName = ldvalue.String(value)
	return b
}

// LastName sets the lastName attribute.
func (b *UserBuilder) LastName(value string) *UserBuilder {
	b.user.lastName = ldvalue.String(value)
	return b
}

// Email sets the email attribute.
func (b *UserBuilder) Email(value string) *UserBuilder {
	b.user.email = ldvalue.String(value)
	return b
}

// Name sets the name attribute.
func (b *UserBuilder) Name(value string) *UserBuilder {
	b.user.name = ldvalue.String(value)
	return b
}

// Avatar sets the avatar attribute.
func (b *UserBuilder) Avatar(value string) *UserBuilder {
	b.user.avatar = ldvalue.String(value)
	return b
}

// Country sets the country attribute.
func (b *UserBuilder) Country(value string) *UserBuilder {
	b.user.country = ldvalue.String(value)
	return b
}

// Secondary sets the secondary bucketing key.
func (b *UserBuilder) Secondary(value string) *UserBuilder {
	b.user.secondary = ldvalue.String(value)
	return b
}

// Custom sets a single custom attribute.
func (b *UserBuilder) Custom(name string, value ldvalue.Value) *UserBuilder {
	if b.user.custom == nil {
		b.user.custom = make(map[string]ldvalue.Value)
	}
	b.user.custom[name] = value
	return b
}

// AsPrivateAttribute marks one or more attribute names (built-in or custom)
// as private for this user only.
func (b *UserBuilder) AsPrivateAttribute(names ...string) *UserBuilder {
	b.user.privateAttributeNames = append(b.user.privateAttributeNames, names...)
	return b
}
