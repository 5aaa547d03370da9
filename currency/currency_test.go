package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat100I(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0", Amount(0).Format100I())
	assert.Equal(t, "1", Amount(100).Format100I())
	assert.Equal(t, "1.2", Amount(120).Format100I())
	assert.Equal(t, "10", Amount(1000).Format100I())
}
