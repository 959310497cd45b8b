package credential

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenterPayload(t *testing.T) {
	p := NewPresenter("https://sar.example.org")
	assert.Equal(t, "https://sar.example.org/registro-personal/AB12CD34", p.Payload("AB12CD34"))
}

func TestPresenterPNG(t *testing.T) {
	p := NewPresenter("https://sar.example.org")

	data, err := p.PNG("AB12CD34", 0)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	// Size zero falls back to the default rendering size.
	assert.Equal(t, 256, img.Bounds().Dx())
}
