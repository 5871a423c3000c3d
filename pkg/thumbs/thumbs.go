// Package thumbs loads and downscales thumbnail images asynchronously.
// Loads are bounded by a semaphore and cancellable per item: a load whose
// item scrolled out of view is cancelled and its result discarded. Decode
// failures degrade to the shared placeholder tile, never an error the frame
// loop has to handle.
package thumbs

import (
	"context"
	"image"
	"image/color"
	"os"
	"sync"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	"golang.org/x/sync/semaphore"

	"github.com/vanderheijden86/atlasview/pkg/debug"
)

// DefaultConcurrency bounds simultaneous decodes.
const DefaultConcurrency = 8

// DefaultMaxEdge is the downscale target for the longest image edge.
const DefaultMaxEdge = 128

// Loader fetches, decodes and caches thumbnails keyed by item id.
type Loader struct {
	concurrency int64
	maxEdge     int
	sem         *semaphore.Weighted
	placeholder image.Image

	mu      sync.Mutex
	cache   map[int64]image.Image
	pending map[int64]context.CancelFunc
	failed  map[int64]bool
}

// NewLoader returns a loader with the given decode concurrency and downscale
// edge. Non-positive arguments fall back to the defaults.
func NewLoader(concurrency, maxEdge int) *Loader {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if maxEdge <= 0 {
		maxEdge = DefaultMaxEdge
	}
	return &Loader{
		concurrency: int64(concurrency),
		maxEdge:     maxEdge,
		sem:         semaphore.NewWeighted(int64(concurrency)),
		placeholder: makePlaceholder(maxEdge),
		cache:       make(map[int64]image.Image),
		pending:     make(map[int64]context.CancelFunc),
		failed:      make(map[int64]bool),
	}
}

// Get returns the cached thumbnail for an item. ok is false while the image
// is still loading or was never requested; failed loads return the
// placeholder with ok true so callers stop re-requesting.
func (l *Loader) Get(itemID int64) (image.Image, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if img, ok := l.cache[itemID]; ok {
		return img, true
	}
	if l.failed[itemID] {
		return l.placeholder, true
	}
	return nil, false
}

// Placeholder returns the shared placeholder tile.
func (l *Loader) Placeholder() image.Image { return l.placeholder }

// Request starts an asynchronous load of the item's thumbnail from path.
// Requests for items already cached, failed, or in flight are no-ops.
// done, when non-nil, is called after the cache is updated (on the loader
// goroutine) so a frame-driven host can schedule a repaint.
func (l *Loader) Request(ctx context.Context, itemID int64, path string, done func(itemID int64)) {
	l.mu.Lock()
	if _, ok := l.cache[itemID]; ok {
		l.mu.Unlock()
		return
	}
	if l.failed[itemID] {
		l.mu.Unlock()
		return
	}
	if _, ok := l.pending[itemID]; ok {
		l.mu.Unlock()
		return
	}
	loadCtx, cancel := context.WithCancel(ctx)
	l.pending[itemID] = cancel
	l.mu.Unlock()

	go l.load(loadCtx, itemID, path, done)
}

// Cancel aborts an in-flight load for the item, e.g. when it scrolled out of
// view. Cancelling an item with no pending load is a no-op.
func (l *Loader) Cancel(itemID int64) {
	l.mu.Lock()
	cancel, ok := l.pending[itemID]
	l.mu.Unlock()
	if ok {
		cancel()
	}
}

// CancelAll aborts every in-flight load, e.g. on snapshot replacement.
func (l *Loader) CancelAll() {
	l.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(l.pending))
	for _, c := range l.pending {
		cancels = append(cancels, c)
	}
	l.mu.Unlock()
	for _, c := range cancels {
		c()
	}
}

// Reset drops the cache and failure set, keeping the placeholder.
func (l *Loader) Reset() {
	l.CancelAll()
	l.mu.Lock()
	l.cache = make(map[int64]image.Image)
	l.failed = make(map[int64]bool)
	l.mu.Unlock()
}

func (l *Loader) load(ctx context.Context, itemID int64, path string, done func(int64)) {
	defer l.clearPending(itemID)

	if err := l.sem.Acquire(ctx, 1); err != nil {
		return // cancelled while queued
	}
	defer l.sem.Release(1)

	if ctx.Err() != nil {
		return
	}

	img, err := decodeFile(path)
	if err != nil {
		debug.Log("thumbs: decode %s failed: %v", path, err)
		l.mu.Lock()
		l.failed[itemID] = true
		l.mu.Unlock()
		if done != nil {
			done(itemID)
		}
		return
	}

	scaled := downscale(img, l.maxEdge)

	// A load that finished after cancellation is discarded, not cached.
	if ctx.Err() != nil {
		return
	}

	l.mu.Lock()
	l.cache[itemID] = scaled
	l.mu.Unlock()
	if done != nil {
		done(itemID)
	}
}

func (l *Loader) clearPending(itemID int64) {
	l.mu.Lock()
	if cancel, ok := l.pending[itemID]; ok {
		cancel()
		delete(l.pending, itemID)
	}
	l.mu.Unlock()
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

// downscale shrinks img so its longest edge is at most maxEdge, preserving
// aspect ratio. Images already small enough pass through untouched.
func downscale(img image.Image, maxEdge int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxEdge && h <= maxEdge {
		return img
	}
	if w >= h {
		h = h * maxEdge / w
		w = maxEdge
	} else {
		w = w * maxEdge / h
		h = maxEdge
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// makePlaceholder builds the flat tile rendered for missing thumbnails.
func makePlaceholder(edge int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, edge, edge))
	fill := color.RGBA{0x3a, 0x41, 0x54, 0xff}
	for y := 0; y < edge; y++ {
		for x := 0; x < edge; x++ {
			img.Set(x, y, fill)
		}
	}
	return img
}
