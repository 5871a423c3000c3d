// Package render paints scene draw lists onto static targets: a PNG raster
// via gg and an SVG document via svgo. These are the built-in render targets
// used for snapshot export; an interactive host may plug in its own painter
// and consume the same draw list.
package render

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	svg "github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/atlasview/pkg/camera"
	"github.com/vanderheijden86/atlasview/pkg/scene"
)

// Tile sizing in world units. Items render as squares, clusters as larger
// discs scaled by member count.
const (
	itemTileWorld      = 96.0
	clusterBaseWorld   = 110.0
	clusterGrowthWorld = 6.0
	tileCornerRadius   = 8.0
)

// ThumbLookup resolves an item id to a decoded thumbnail, or nil when the
// image is not (yet) available. A nil lookup renders placeholders only.
type ThumbLookup func(itemID int64) image.Image

// SnapshotOptions controls snapshot export behaviour.
type SnapshotOptions struct {
	Path     string      // Output path; format inferred from extension when Format empty
	Format   string      // "svg" or "png" (case-insensitive). If empty, inferred from Path.
	Width    int         // Canvas width in px (default 1280)
	Height   int         // Canvas height in px (default 800)
	Title    string      // Optional title rendered in the corner
	Pose     camera.Pose // World-to-screen map used for placement
	Commands []scene.DrawCmd
	Thumbs   ThumbLookup
}

// SaveSnapshot renders the draw list to a static image. The draw list is
// painted in order; callers pass it as produced by scene assembly so z-order
// survives.
func SaveSnapshot(opts SnapshotOptions) error {
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}
	if opts.Width <= 0 {
		opts.Width = 1280
	}
	if opts.Height <= 0 {
		opts.Height = 800
	}
	if opts.Pose.Scale == 0 {
		opts.Pose.Scale = 1
	}

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".png":
			format = "png"
		case ".svg":
			format = "svg"
		default:
			format = "png"
			if filepath.Ext(opts.Path) == "" {
				opts.Path += ".png"
			}
		}
	}

	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create parent dir: %w", err)
		}
	}

	switch format {
	case "png":
		return renderPNG(opts)
	case "svg":
		file, err := os.Create(opts.Path)
		if err != nil {
			return err
		}
		defer file.Close()
		return RenderSVG(file, opts)
	default:
		return fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
}

// --- palette ---------------------------------------------------------------

var (
	colorBackdrop  = color.RGBA{0x10, 0x12, 0x18, 0xff}
	colorTile      = color.RGBA{0x3a, 0x41, 0x54, 0xff}
	colorTileEdge  = color.RGBA{0x6b, 0x80, 0xbf, 0xff}
	colorCluster   = color.RGBA{0x4f, 0x7a, 0x5e, 0xff}
	colorClusterHi = color.RGBA{0x7f, 0xb0, 0x8e, 0xff}
	colorLabel     = color.RGBA{0xd8, 0xdc, 0xe6, 0xff}
)

// --- PNG target ------------------------------------------------------------

func renderPNG(opts SnapshotOptions) error {
	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	for _, cmd := range opts.Commands {
		screen := opts.Pose.WorldToScreen(cmd.Pos)
		switch cmd.Kind {
		case scene.KindCluster:
			drawClusterPNG(dc, cmd, screen.X, screen.Y, opts.Pose.Scale)
		case scene.KindItem:
			drawItemPNG(dc, cmd, screen.X, screen.Y, opts.Pose.Scale, opts.Thumbs)
		}
	}

	if opts.Title != "" {
		dc.SetColor(colorLabel)
		dc.DrawStringAnchored(opts.Title, 16, 20, 0, 0.5)
	}

	return dc.SavePNG(opts.Path)
}

// clusterRadiusPx grows the marker with membership: sqrt keeps a 10x bigger
// cluster from drowning the canvas.
func clusterRadiusPx(cmd scene.DrawCmd, scale float64) float64 {
	world := clusterBaseWorld + clusterGrowthWorld*math.Sqrt(float64(cmd.MemberCount))
	return world * scale / 2
}

func drawClusterPNG(dc *gg.Context, cmd scene.DrawCmd, x, y, scale float64) {
	r := clusterRadiusPx(cmd, scale)
	fill := colorCluster
	if !cmd.Dimmed {
		fill = colorClusterHi
	}
	dc.SetRGBA(rgba(fill, cmd.Opacity))
	dc.DrawCircle(x, y, r)
	dc.Fill()
	dc.SetRGBA(rgba(colorTileEdge, cmd.Opacity))
	dc.SetLineWidth(1.5)
	dc.DrawCircle(x, y, r)
	dc.Stroke()
}

func drawItemPNG(dc *gg.Context, cmd scene.DrawCmd, x, y, scale float64, thumbs ThumbLookup) {
	size := itemTileWorld * scale
	if size < 2 {
		size = 2
	}

	dc.Push()
	dc.RotateAbout(cmd.Rotation, x, y)

	var img image.Image
	if !cmd.LowDetail && thumbs != nil {
		img = thumbs(cmd.ID)
	}
	if img != nil {
		b := img.Bounds()
		sx := size / float64(b.Dx())
		sy := size / float64(b.Dy())
		dc.Push()
		dc.ScaleAbout(sx, sy, x, y)
		dc.DrawImageAnchored(img, int(x), int(y), 0.5, 0.5)
		dc.Pop()
		if cmd.Dimmed {
			// Fade filtered-out tiles toward the backdrop.
			dc.SetRGBA(rgba(colorBackdrop, 0.75))
			dc.DrawRectangle(x-size/2, y-size/2, size, size)
			dc.Fill()
		}
	} else {
		// Placeholder tile: low detail, still loading, or failed decode.
		dc.SetRGBA(rgba(colorTile, cmd.Opacity))
		dc.DrawRoundedRectangle(x-size/2, y-size/2, size, size, tileCornerRadius*scale)
		dc.Fill()
		dc.SetRGBA(rgba(colorTileEdge, cmd.Opacity))
		dc.SetLineWidth(1)
		dc.DrawRoundedRectangle(x-size/2, y-size/2, size, size, tileCornerRadius*scale)
		dc.Stroke()
	}

	dc.Pop()
}

func rgba(c color.RGBA, opacity float64) (r, g, b, a float64) {
	return float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255, opacity
}

// --- SVG target ------------------------------------------------------------

// RenderSVG writes the draw list as an SVG document. Exported with a writer
// so tests can render into a buffer.
func RenderSVG(w io.Writer, opts SnapshotOptions) error {
	if opts.Width <= 0 {
		opts.Width = 1280
	}
	if opts.Height <= 0 {
		opts.Height = 800
	}
	if opts.Pose.Scale == 0 {
		opts.Pose.Scale = 1
	}

	canvas := svg.New(w)
	canvas.Start(opts.Width, opts.Height)
	canvas.Rect(0, 0, opts.Width, opts.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))

	for _, cmd := range opts.Commands {
		screen := opts.Pose.WorldToScreen(cmd.Pos)
		switch cmd.Kind {
		case scene.KindCluster:
			r := int(clusterRadiusPx(cmd, opts.Pose.Scale))
			fill := colorCluster
			if !cmd.Dimmed {
				fill = colorClusterHi
			}
			canvas.Circle(int(screen.X), int(screen.Y), r,
				fmt.Sprintf("fill:%s;fill-opacity:%.2f;stroke:%s", css(fill), cmd.Opacity, css(colorTileEdge)))

		case scene.KindItem:
			size := itemTileWorld * opts.Pose.Scale
			if size < 2 {
				size = 2
			}
			style := fmt.Sprintf("fill:%s;fill-opacity:%.2f;stroke:%s;stroke-opacity:%.2f",
				css(colorTile), cmd.Opacity, css(colorTileEdge), cmd.Opacity)
			transform := fmt.Sprintf("rotate(%.2f %.1f %.1f)",
				cmd.Rotation*180/math.Pi, screen.X, screen.Y)
			canvas.Gtransform(transform)
			canvas.Roundrect(int(screen.X-size/2), int(screen.Y-size/2), int(size), int(size),
				int(tileCornerRadius*opts.Pose.Scale), int(tileCornerRadius*opts.Pose.Scale), style)
			canvas.Gend()
		}
	}

	if opts.Title != "" {
		canvas.Text(16, 24, opts.Title,
			fmt.Sprintf("fill:%s;font-size:14px;font-family:monospace", css(colorLabel)))
	}

	canvas.End()
	return nil
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
