package report

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// opaquePNG encodes a w x h single-color image. Opaque images carry no
// alpha mask, so each one is a single image object in the PDF.
func opaquePNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testImage(t *testing.T, name string, w, h int, c color.RGBA) *Image {
	t.Helper()
	img, err := NewImage(name, opaquePNG(t, w, h, c))
	require.NoError(t, err)
	return img
}

func imageObjects(raw []byte) int {
	return bytes.Count(raw, []byte("/Subtype /Image"))
}

func TestLoadImage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "logo.png")
	require.NoError(t, os.WriteFile(good, opaquePNG(t, 8, 4, color.RGBA{R: 200, A: 255}), 0o600))
	img, err := LoadImage(good)
	require.NoError(t, err)
	assert.Equal(t, "logo.png", img.Name)
	assert.Equal(t, "PNG", img.format)

	text := filepath.Join(dir, "logo.txt")
	require.NoError(t, os.WriteFile(text, []byte("not an image"), 0o600))
	_, err = LoadImage(text)
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, err = LoadImage(filepath.Join(dir, "missing.png"))
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestRender_LogoAndSignatures(t *testing.T) {
	t.Parallel()

	logo := testImage(t, "logo.png", 60, 20, color.RGBA{R: 30, G: 64, B: 175, A: 255})
	doc := buildDocument(t, "Yes")
	doc.Signatures = Signatures{
		Organization: testImage(t, "org.png", 40, 12, color.RGBA{A: 255}),
		Assessor:     testImage(t, "assessor.png", 30, 10, color.RGBA{G: 90, A: 255}),
	}

	r := testRenderer(t, Options{Logo: logo})
	raw, err := r.Render(doc)
	require.NoError(t, err)

	p := newPDFResult(t, raw)
	p.assertValid()
	assert.Equal(t, 3, imageObjects(raw), "logo once, plus both signatures")

	again, err := r.Render(doc)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(raw, again), "images keep the output deterministic")

	plain, err := testRenderer(t, Options{}).Render(buildDocument(t, "Yes"))
	require.NoError(t, err)
	assert.Zero(t, imageObjects(plain))
}

func TestRender_LogoFromLayout(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "brand.png")
	require.NoError(t, os.WriteFile(path, opaquePNG(t, 16, 16, color.RGBA{B: 255, A: 255}), 0o600))

	layout := DefaultLayout()
	layout.Branding.Logo = path
	raw, err := testRenderer(t, Options{Layout: layout}).Render(buildDocument(t, "No"))
	require.NoError(t, err)
	assert.Equal(t, 1, imageObjects(raw))

	layout = DefaultLayout()
	layout.Branding.Logo = filepath.Join(t.TempDir(), "gone.png")
	_, err = NewRenderer(Options{Layout: layout, Logger: quietLogger()})
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestRender_BadSignatureFails(t *testing.T) {
	t.Parallel()

	doc := buildDocument(t, "Yes")
	doc.Signatures.Assessor = &Image{Name: "scan.png", Data: []byte("garbage")}
	out, err := testRenderer(t, Options{}).Render(doc)
	assert.ErrorIs(t, err, ErrRenderFailure)
	assert.Nil(t, out)
}

func TestRenderBadge(t *testing.T) {
	t.Parallel()

	doc := buildDocument(t, "Yes")
	require.Equal(t, "PASS", string(doc.Score.Verdict))

	r := testRenderer(t, Options{Logo: testImage(t, "logo.png", 20, 20, color.RGBA{R: 255, A: 255})})
	raw, err := r.RenderBadge(doc)
	require.NoError(t, err)

	p := newPDFResult(t, raw)
	p.assertValid()
	assert.Equal(t, 1, p.pageCount())
	p.assertContainsText("DATA PRIVACY ACT")
	p.assertContainsText("Dela Cruz Trading")
	p.assertContainsText("PASS")
	p.assertContainsText("Fingerprint " + Fingerprint(doc.Session))
	p.assertNotContainsText("Page 1 of")
	assert.Equal(t, 1, imageObjects(raw))

	again, err := r.RenderBadge(doc)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(raw, again))

	_, err = r.RenderBadge(buildDocument(t, "No"))
	assert.ErrorIs(t, err, ErrBadgeNotEarned)
}
