package report

import "errors"

var (
	// ErrRenderFailure indicates the document could not be produced. No
	// partial output accompanies it.
	ErrRenderFailure = errors.New("report: render failed")

	// ErrInvalidLayout indicates a malformed layout file.
	ErrInvalidLayout = errors.New("report: invalid layout")

	// ErrInvalidImage indicates a logo or signature file that is missing,
	// too large or not a PNG, JPEG or GIF.
	ErrInvalidImage = errors.New("report: invalid image")

	// ErrBadgeNotEarned is returned by RenderBadge below the PASS verdict.
	ErrBadgeNotEarned = errors.New("report: badge requires a PASS verdict")
)
