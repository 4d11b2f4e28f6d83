package datasource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsHTTPErrorRecoverable(t *testing.T) {
	assert.False(t, isHTTPErrorRecoverable(401))
	assert.False(t, isHTTPErrorRecoverable(403))
	assert.True(t, isHTTPErrorRecoverable(400))
	assert.True(t, isHTTPErrorRecoverable(408))
	assert.True(t, isHTTPErrorRecoverable(429))
	assert.True(t, isHTTPErrorRecoverable(500))
	assert.True(t, isHTTPErrorRecoverable(503))
	assert.True(t, isHTTPErrorRecoverable(200))
	assert.True(t, isHTTPErrorRecoverable(301))
}
