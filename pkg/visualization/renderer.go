// Package visualization rasterizes simulation results to images: master
// patterns as grayscale maps and geometrical simulations as overlay drawings
// of Kikuchi lines, zone axes and the projection center.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"

	"kikusim/pkg/simulation"
)

// Renderer draws geometrical simulation overlays onto detector-sized images.
type Renderer struct {
	// Scale is the number of image pixels per detector pixel
	Scale int

	// Background is the fill color behind the overlays
	Background color.Color
}

// NewRenderer creates a renderer with an 8x upscaled black background.
func NewRenderer() *Renderer {
	return &Renderer{
		Scale:      8,
		Background: color.Black,
	}
}

// RenderPattern draws the overlay features of one pattern of a geometrical
// simulation. The index addresses the navigation position, nil meaning the
// origin. Label text is not rasterized; labels are available through the
// collections for renderers with font support.
func (r *Renderer) RenderPattern(result *simulation.GeometricalSimulation, index []int, opts simulation.CollectionOptions) (*image.RGBA, error) {
	if r.Scale < 1 {
		return nil, fmt.Errorf("render scale must be at least 1, got %d", r.Scale)
	}
	// Overlay drawing happens in detector pixel space
	opts.Coordinates = simulation.CoordinatesPixel

	coll, err := result.AsCollections(index, opts)
	if err != nil {
		return nil, fmt.Errorf("error building overlay collections: %w", err)
	}

	det := result.Detector()
	s := float64(r.Scale)
	img := image.NewRGBA(image.Rect(0, 0, det.NCols*r.Scale, det.NRows*r.Scale))
	fill(img, r.Background)

	if coll.Lines != nil {
		c := colorByName(coll.Lines.Style.Color)
		width := int(math.Round(coll.Lines.Style.Width * s / 4))
		for _, seg := range coll.Lines.Segments {
			drawLine(img, seg.X1*s, seg.Y1*s, seg.X2*s, seg.Y2*s, width, c)
		}
	}
	if coll.ZoneAxes != nil {
		c := colorByName(coll.ZoneAxes.Style.Color)
		radius := int(math.Round(coll.ZoneAxes.Style.Size * s / 8))
		for _, p := range coll.ZoneAxes.Points {
			drawDisc(img, p.X*s, p.Y*s, radius, c)
		}
	}
	if coll.PC != nil {
		c := colorByName(coll.PC.Style.Color)
		arm := int(math.Round(coll.PC.Style.Size * s / 8))
		for _, p := range coll.PC.Points {
			drawCross(img, p.X*s, p.Y*s, arm, c)
		}
	}

	return img, nil
}

// RenderMasterPattern converts one hemisphere image of a master pattern to a
// 16-bit grayscale image, normalized to the full intensity range of that
// hemisphere. A flat pattern renders black.
func RenderMasterPattern(mp *simulation.MasterPattern, hemisphere int) (*image.Gray16, error) {
	if hemisphere < 0 || hemisphere >= mp.NumHemispheres() {
		return nil, fmt.Errorf("hemisphere index %d out of range, pattern has %d", hemisphere, mp.NumHemispheres())
	}

	data := mp.Hemi(hemisphere)
	size := mp.Size()
	lo := floats.Min(data)
	hi := floats.Max(data)
	span := hi - lo

	img := image.NewGray16(image.Rect(0, 0, size, size))
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			v := 0.0
			if span > 0 {
				v = (data[row*size+col] - lo) / span
			}
			img.SetGray16(col, row, color.Gray16{Y: uint16(v * 65535)})
		}
	}
	return img, nil
}

// SavePNG writes an image to a PNG file, creating the directory if needed.
func SavePNG(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating image file: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("error encoding PNG: %w", err)
	}
	return nil
}

// fill paints the whole image with one color.
func fill(img *image.RGBA, c color.Color) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
}

// drawLine draws a straight segment with the given half-width using simple
// DDA stepping. Points outside the image are clipped by Set.
func drawLine(img *image.RGBA, x1, y1, x2, y2 float64, width int, c color.Color) {
	dx := x2 - x1
	dy := y2 - y1
	steps := int(math.Max(math.Abs(dx), math.Abs(dy))) + 1
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		px := int(math.Round(x1 + t*dx))
		py := int(math.Round(y1 + t*dy))
		for ox := -width; ox <= width; ox++ {
			for oy := -width; oy <= width; oy++ {
				img.Set(px+ox, py+oy, c)
			}
		}
	}
}

// drawDisc draws a filled circle.
func drawDisc(img *image.RGBA, cx, cy float64, radius int, c color.Color) {
	x0 := int(math.Round(cx))
	y0 := int(math.Round(cy))
	for ox := -radius; ox <= radius; ox++ {
		for oy := -radius; oy <= radius; oy++ {
			if ox*ox+oy*oy <= radius*radius {
				img.Set(x0+ox, y0+oy, c)
			}
		}
	}
}

// drawCross draws an upright cross with the given arm length.
func drawCross(img *image.RGBA, cx, cy float64, arm int, c color.Color) {
	x0 := int(math.Round(cx))
	y0 := int(math.Round(cy))
	for o := -arm; o <= arm; o++ {
		img.Set(x0+o, y0, c)
		img.Set(x0, y0+o, c)
	}
}

// colorByName resolves the style color names used by the overlay defaults.
// Unknown names fall back to white.
func colorByName(name string) color.Color {
	switch name {
	case "red":
		return color.RGBA{R: 255, A: 255}
	case "green":
		return color.RGBA{G: 255, A: 255}
	case "blue":
		return color.RGBA{B: 255, A: 255}
	case "gold":
		return color.RGBA{R: 255, G: 215, A: 255}
	case "black":
		return color.Black
	case "white", "":
		return color.White
	default:
		return color.White
	}
}
