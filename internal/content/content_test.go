package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultGospelData(t *testing.T) {
	data, err := DefaultGospelData()
	require.NoError(t, err)
	require.NotEmpty(t, data)

	assert.Empty(t, data.Validate())
	assert.Equal(t, "1", data[0].Section)
	assert.NotEmpty(t, data[1].Subsections[1].NestedSubsections)

	again, err := DefaultGospelData()
	require.NoError(t, err)
	again[0].Title = "changed"
	assert.Equal(t, "God", data[0].Title)
}
