// Package render produces panel-sized frames: headless-browser captures,
// scaling/letterboxing to the panel geometry, and a text banner fallback.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/chromedp/chromedp"
)

// Default capture parameters. The viewport defaults match the panel.
const (
	DefaultWidth   = 792
	DefaultHeight  = 272
	DefaultTimeout = 30 * time.Second
)

// CaptureOptions defines parameters for a Chromium-based screenshot capture.
type CaptureOptions struct {
	// URL to capture, e.g. "http://127.0.0.1:3000/dashboard".
	URL string

	// Width and Height are the viewport dimensions in pixels. If zero,
	// DefaultWidth / DefaultHeight are used.
	Width  int
	Height int

	// Timeout bounds the entire capture operation. If zero, DefaultTimeout
	// is used.
	Timeout time.Duration
}

// Capture launches a headless Chromium instance via chromedp, navigates to
// opts.URL, waits for the document body plus a short settle delay, and
// returns the decoded screenshot.
func Capture(parentCtx context.Context, opts CaptureOptions) (image.Image, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("render: capture URL is required")
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var raw []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		// Small extra delay to allow final paints.
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.FullScreenshot(&raw, 100),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("render: chromedp run failed: %w", err)
	}

	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("render: decode screenshot: %w", err)
	}
	return img, nil
}
