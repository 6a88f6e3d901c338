package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString_IncludesBuildInfo(t *testing.T) {
	assert.Equal(t, "dev (commit unknown, built unknown)", String())
}
