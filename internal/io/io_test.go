package ioutils

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	fs := afero.NewMemMapFs()

	created, err := EnsureDir(fs, "/out/alice")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = EnsureDir(fs, "/out/alice")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestWriteFileAtomic(t *testing.T) {
	fs := afero.NewMemMapFs()

	require.NoError(t, WriteFileAtomic(fs, "/out/meta/1.json", []byte("first")))
	require.NoError(t, WriteFileAtomic(fs, "/out/meta/1.json", []byte("second")))

	data, err := afero.ReadFile(fs, "/out/meta/1.json")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	parts, err := afero.Glob(fs, "/out/meta/*"+PartSuffix)
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestCommit_MissingTempKeepsDestination(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/out/alice/7301.mp4", []byte("done"), 0644))

	err := Commit(fs, "/out/alice/7301.mp4.123.part", "/out/alice/7301.mp4")
	assert.Error(t, err)

	data, err := afero.ReadFile(fs, "/out/alice/7301.mp4")
	require.NoError(t, err)
	assert.Equal(t, "done", string(data))
}

func TestCreateTemp_Unique(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/out", 0755))

	a, err := CreateTemp(fs, "/out/7301.mp4")
	require.NoError(t, err)
	defer a.Close()
	b, err := CreateTemp(fs, "/out/7301.mp4")
	require.NoError(t, err)
	defer b.Close()

	assert.NotEqual(t, a.Name(), b.Name())
	assert.True(t, strings.HasSuffix(a.Name(), PartSuffix))
	assert.True(t, strings.HasPrefix(filepath.Base(a.Name()), "7301.mp4."))
}

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestNormalizePhoto(t *testing.T) {
	svc := NewImageService()
	ctx := context.Background()

	t.Run("jpeg that fits is untouched", func(t *testing.T) {
		in := encodeJPEG(t, testImage(40, 20))
		out, changed, err := svc.NormalizePhoto(ctx, in, 0)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, in, out)
	})

	t.Run("png is converted", func(t *testing.T) {
		out, changed, err := svc.NormalizePhoto(ctx, encodePNG(t, testImage(40, 20)), 0)
		require.NoError(t, err)
		assert.True(t, changed)

		_, format, err := image.DecodeConfig(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)
	})

	t.Run("large image is downsized", func(t *testing.T) {
		out, changed, err := svc.NormalizePhoto(ctx, encodeJPEG(t, testImage(150, 100)), 75)
		require.NoError(t, err)
		assert.True(t, changed)

		cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, 75, cfg.Width)
		assert.Equal(t, 50, cfg.Height)
	})

	t.Run("garbage", func(t *testing.T) {
		_, _, err := svc.NormalizePhoto(ctx, []byte("not an image"), 0)
		assert.Error(t, err)
	})
}
