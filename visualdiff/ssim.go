package visualdiff

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// SSIM constants, matching scikit-image's structural_similarity defaults for
// 8-bit grayscale input (7x7 uniform window, sample covariance).
const (
	ssimWindow = 7
	ssimK1     = 0.01
	ssimK2     = 0.03
	ssimL      = 255.0
)

// gray holds luminance values row-major.
type gray struct {
	w, h int
	pix  []float64
}

func toGray(img image.Image) gray {
	b := img.Bounds()
	g := gray{w: b.Dx(), h: b.Dy(), pix: make([]float64, b.Dx()*b.Dy())}
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			c := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			g.pix[y*g.w+x] = float64(c.Y)
		}
	}
	return g
}

// resizeTo scales img to w x h with Catmull-Rom interpolation.
func resizeTo(img image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// SSIM computes the mean structural similarity of two page rasters. b is
// resized to a's dimensions when they differ. The result is in [-1, 1] and
// equals 1 for pixel-identical grayscale content.
func SSIM(a, b image.Image) float64 {
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Dx() == 0 || ab.Dy() == 0 {
		return 0
	}
	if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() {
		b = resizeTo(b, ab.Dx(), ab.Dy())
	}
	return ssimGray(toGray(a), toGray(b))
}

func ssimGray(x, y gray) float64 {
	if equalPix(x.pix, y.pix) {
		return 1
	}

	win := ssimWindow
	if x.w < win || x.h < win {
		win = min(x.w, x.h)
	}
	c1 := (ssimK1 * ssimL) * (ssimK1 * ssimL)
	c2 := (ssimK2 * ssimL) * (ssimK2 * ssimL)

	sx := integral(x.w, x.h, func(i int) float64 { return x.pix[i] })
	sy := integral(x.w, x.h, func(i int) float64 { return y.pix[i] })
	sxx := integral(x.w, x.h, func(i int) float64 { return x.pix[i] * x.pix[i] })
	syy := integral(x.w, x.h, func(i int) float64 { return y.pix[i] * y.pix[i] })
	sxy := integral(x.w, x.h, func(i int) float64 { return x.pix[i] * y.pix[i] })

	n := float64(win * win)
	cov := n / (n - 1)
	if win == 1 {
		cov = 1
	}

	var total float64
	var count int
	for top := 0; top+win <= x.h; top++ {
		for left := 0; left+win <= x.w; left++ {
			mx := rect(sx, x.w, left, top, win) / n
			my := rect(sy, x.w, left, top, win) / n
			vx := cov * (rect(sxx, x.w, left, top, win)/n - mx*mx)
			vy := cov * (rect(syy, x.w, left, top, win)/n - my*my)
			vxy := cov * (rect(sxy, x.w, left, top, win)/n - mx*my)

			num := (2*mx*my + c1) * (2*vxy + c2)
			den := (mx*mx + my*my + c1) * (vx + vy + c2)
			total += num / den
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// integral returns a (w+1)x(h+1) summed-area table of f over the pixels.
func integral(w, h int, f func(i int) float64) []float64 {
	s := make([]float64, (w+1)*(h+1))
	stride := w + 1
	for y := 0; y < h; y++ {
		var row float64
		for x := 0; x < w; x++ {
			row += f(y*w + x)
			s[(y+1)*stride+x+1] = s[y*stride+x+1] + row
		}
	}
	return s
}

// rect sums the win x win square at (left, top) from a summed-area table.
func rect(s []float64, w, left, top, win int) float64 {
	stride := w + 1
	x0, y0, x1, y1 := left, top, left+win, top+win
	return s[y1*stride+x1] - s[y0*stride+x1] - s[y1*stride+x0] + s[y0*stride+x0]
}

func equalPix(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
