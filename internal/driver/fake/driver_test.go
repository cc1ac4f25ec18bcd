package fake

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverLogsEveryNth(t *testing.T) {
	var buf bytes.Buffer
	d := &Driver{Log: zerolog.New(&buf), Every: 2}
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 200, G: 100, A: 255})

	for i := 0; i < 3; i++ {
		require.NoError(t, d.Write(img))
	}
	assert.Equal(t, 3, d.Count)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"avg":[100,50,0]`)
}

func TestAverageEmpty(t *testing.T) {
	r, g, b := Average(&image.RGBA{})
	assert.Zero(t, r+g+b)
}
