package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homelink/pkg/errors"
)

func TestObjectName(t *testing.T) {
	name, err := objectName("attachments/conv_1", "image/png", true)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "public/attachments/conv_1/"))
	assert.True(t, strings.HasSuffix(name, ".png"))

	name, err = objectName("/private/attachments/conv_1/", "application/pdf", true)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "private/attachments/conv_1/"))

	_, err = objectName("attachments", "application/x-msdownload", false)
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))
}

func TestParseObjectURL(t *testing.T) {
	name, err := parseObjectURL("https://storage.googleapis.com/homelink/public/a/b.png", "homelink")
	require.NoError(t, err)
	assert.Equal(t, "public/a/b.png", name)

	_, err = parseObjectURL("https://storage.googleapis.com/other/public/a/b.png", "homelink")
	assert.Error(t, err)

	_, err = parseObjectURL("https://example.com/homelink/a.png", "homelink")
	assert.Error(t, err)
}
