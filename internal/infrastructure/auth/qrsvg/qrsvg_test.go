package qrsvg

import (
	"strings"
	"testing"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeProducesValidSVGDocument(t *testing.T) {
	svg, err := Encode("https://example.com/verify?code=ABCDEF", qrcode.Medium, 2)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(svg, `<svg xmlns="http://www.w3.org/2000/svg"`))
	assert.True(t, strings.HasSuffix(svg, `</svg>`))
	assert.Contains(t, svg, `fill="#000000"`)
}

func TestEncodeDeterministic(t *testing.T) {
	a, err := Encode("same-content", qrcode.Medium, 2)
	require.NoError(t, err)
	b, err := Encode("same-content", qrcode.Medium, 2)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncodeDiffersByContent(t *testing.T) {
	a, err := Encode("content-a", qrcode.Medium, 2)
	require.NoError(t, err)
	b, err := Encode("content-b", qrcode.Medium, 2)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
