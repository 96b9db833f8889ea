package viz

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"io"
)

const (
	dotW, dotH = 4, 4
	// frameDelay is in hundredths of a second
	frameDelay = 2
)

// Recorder accumulates canvas frames for an animated GIF.
type Recorder struct {
	palette color.Palette
	frames  []*image.Paletted
}

// NewRecorder builds a GIF palette from the theme's body colours on black.
func NewRecorder(t Theme) *Recorder {
	p := color.Palette{color.Black}
	for _, c := range t.Bodies {
		p = append(p, hexToRGBA(string(c)))
	}
	if len(p) == 1 {
		p = append(p, color.White)
	}
	return &Recorder{palette: p}
}

func (r *Recorder) Len() int { return len(r.frames) }

// Capture rasterises every lit Braille dot of c as a dotW×dotH block.
func (r *Recorder) Capture(c *Canvas) {
	pw, ph := c.PixelSize()
	img := image.NewPaletted(image.Rect(0, 0, pw*dotW, ph*dotH), r.palette)
	for y := 0; y < ph; y++ {
		for x := 0; x < pw; x++ {
			if !c.Lit(x, y) {
				continue
			}
			idx := uint8(1 + c.Ink[y/4][x/2]%(len(r.palette)-1))
			for py := 0; py < dotH; py++ {
				for px := 0; px < dotW; px++ {
					img.SetColorIndex(x*dotW+px, y*dotH+py, idx)
				}
			}
		}
	}
	r.frames = append(r.frames, img)
}

// Encode writes the captured frames as a looping GIF.
func (r *Recorder) Encode(w io.Writer) error {
	if len(r.frames) == 0 {
		return errors.New("no frames recorded")
	}
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range r.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, frameDelay)
	}
	return gif.EncodeAll(w, &anim)
}

func hexToRGBA(hex string) color.RGBA {
	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{255, 255, 255, 255}
	}
	return color.RGBA{r, g, b, 255}
}
