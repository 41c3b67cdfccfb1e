package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off`, escapeLike("50% off"))
	assert.Equal(t, `tile\_work`, escapeLike("tile_work"))
	assert.Equal(t, `a\\b`, escapeLike(`a\b`))
	assert.Equal(t, "plain", escapeLike("plain"))
}

func TestJSONFragment(t *testing.T) {
	assert.Equal(t, `\"`, jsonFragment(`"`))
	assert.Equal(t, "painting", jsonFragment("painting"))
	assert.Equal(t, "نقاشی", jsonFragment("نقاشی"))
}
