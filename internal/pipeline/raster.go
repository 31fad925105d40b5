package pipeline

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sort"

	xdraw "golang.org/x/image/draw"
)

// Raw-pixel primitives backing the secondary tier. Every function returns a
// new zero-origin *image.NRGBA and leaves its input untouched.

func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func cloneNRGBA(src *image.NRGBA) *image.NRGBA {
	dst := image.NewNRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}

func newCanvas(w, h int, bg color.NRGBA) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(dst.Pix); i += 4 {
		dst.Pix[i+0] = bg.R
		dst.Pix[i+1] = bg.G
		dst.Pix[i+2] = bg.B
		dst.Pix[i+3] = bg.A
	}
	return dst
}

func pixelAt(src *image.NRGBA, x, y int) color.NRGBA {
	b := src.Bounds()
	x = clampInt(x, b.Min.X, b.Max.X-1)
	y = clampInt(y, b.Min.Y, b.Max.Y-1)
	i := src.PixOffset(x, y)
	return color.NRGBA{R: src.Pix[i], G: src.Pix[i+1], B: src.Pix[i+2], A: src.Pix[i+3]}
}

func setPixel(dst *image.NRGBA, x, y int, c color.NRGBA) {
	i := dst.PixOffset(x, y)
	dst.Pix[i+0] = c.R
	dst.Pix[i+1] = c.G
	dst.Pix[i+2] = c.B
	dst.Pix[i+3] = c.A
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mapPixels(src *image.NRGBA, fn func(color.NRGBA) color.NRGBA) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			setPixel(dst, x, y, fn(pixelAt(src, x, y)))
		}
	}
	return dst
}

// convolve3x3 applies kernel with edge pixels clamped. Alpha is copied.
func convolve3x3(src *image.NRGBA, kernel [9]float64, bias float64) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var r, g, bl float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					w := kernel[(ky+1)*3+(kx+1)]
					if w == 0 {
						continue
					}
					c := pixelAt(src, x+kx, y+ky)
					r += float64(c.R) * w
					g += float64(c.G) * w
					bl += float64(c.B) * w
				}
			}
			setPixel(dst, x, y, color.NRGBA{
				R: clamp8(r + bias),
				G: clamp8(g + bias),
				B: clamp8(bl + bias),
				A: pixelAt(src, x, y).A,
			})
		}
	}
	return dst
}

// medianFilter replaces each channel with the median of its
// (2*radius+1)^2 neighbourhood.
func medianFilter(src *image.NRGBA, radius int) *image.NRGBA {
	if radius <= 0 {
		return cloneNRGBA(src)
	}
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	size := (2*radius + 1) * (2*radius + 1)
	rs := make([]int, 0, size)
	gs := make([]int, 0, size)
	bs := make([]int, 0, size)

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			rs, gs, bs = rs[:0], gs[:0], bs[:0]
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					c := pixelAt(src, x+dx, y+dy)
					rs = append(rs, int(c.R))
					gs = append(gs, int(c.G))
					bs = append(bs, int(c.B))
				}
			}
			sort.Ints(rs)
			sort.Ints(gs)
			sort.Ints(bs)
			mid := len(rs) / 2
			setPixel(dst, x, y, color.NRGBA{
				R: uint8(rs[mid]),
				G: uint8(gs[mid]),
				B: uint8(bs[mid]),
				A: pixelAt(src, x, y).A,
			})
		}
	}
	return dst
}

func gaussianKernel(sigma float64) ([]float64, int) {
	if sigma <= 0 {
		return []float64{1}, 0
	}
	radius := int(math.Ceil(3 * sigma))
	kernel := make([]float64, 2*radius+1)
	var sum float64
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-0.5 * float64(i*i) / (sigma * sigma))
		kernel[i+radius] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel, radius
}

// gaussianBlur runs a separable blur: one horizontal and one vertical pass.
func gaussianBlur(src *image.NRGBA, sigma float64) *image.NRGBA {
	kernel, radius := gaussianKernel(sigma)
	if radius == 0 {
		return cloneNRGBA(src)
	}
	pass := func(in *image.NRGBA, dx, dy int) *image.NRGBA {
		b := in.Bounds()
		out := image.NewNRGBA(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				var r, g, bl, a float64
				for k := -radius; k <= radius; k++ {
					c := pixelAt(in, x+k*dx, y+k*dy)
					w := kernel[k+radius]
					r += float64(c.R) * w
					g += float64(c.G) * w
					bl += float64(c.B) * w
					a += float64(c.A) * w
				}
				setPixel(out, x, y, color.NRGBA{R: clamp8(r), G: clamp8(g), B: clamp8(bl), A: clamp8(a)})
			}
		}
		return out
	}
	return pass(pass(src, 1, 0), 0, 1)
}

// unsharpMask adds amount times the difference between src and its blur.
func unsharpMask(src *image.NRGBA, sigma, amount float64) *image.NRGBA {
	blurred := gaussianBlur(src, sigma)
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	for i := 0; i < len(src.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			orig := float64(src.Pix[i+c])
			dst.Pix[i+c] = clamp8(orig + (orig-float64(blurred.Pix[i+c]))*amount)
		}
		dst.Pix[i+3] = src.Pix[i+3]
	}
	return dst
}

// blendNRGBA mixes a toward b by t in [0,1]. Both must share bounds.
func blendNRGBA(a, b *image.NRGBA, t float64) *image.NRGBA {
	t = math.Max(0, math.Min(1, t))
	dst := image.NewNRGBA(a.Bounds())
	for i := range a.Pix {
		dst.Pix[i] = clamp8(float64(a.Pix[i])*(1-t) + float64(b.Pix[i])*t)
	}
	return dst
}

// grayWorld scales each channel so the channel means match the overall mean.
func grayWorld(src *image.NRGBA) *image.NRGBA {
	var sumR, sumG, sumB float64
	n := float64(len(src.Pix) / 4)
	if n == 0 {
		return cloneNRGBA(src)
	}
	for i := 0; i < len(src.Pix); i += 4 {
		sumR += float64(src.Pix[i])
		sumG += float64(src.Pix[i+1])
		sumB += float64(src.Pix[i+2])
	}
	scaleR, scaleG, scaleB := grayWorldScales(sumR/n, sumG/n, sumB/n)
	return mapPixels(src, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: clamp8(float64(c.R) * scaleR),
			G: clamp8(float64(c.G) * scaleG),
			B: clamp8(float64(c.B) * scaleB),
			A: c.A,
		}
	})
}

func grayWorldScales(meanR, meanG, meanB float64) (float64, float64, float64) {
	gray := (meanR + meanG + meanB) / 3
	scale := func(mean float64) float64 {
		if mean < 1 {
			return 1
		}
		return gray / mean
	}
	return scale(meanR), scale(meanG), scale(meanB)
}

func cropNRGBA(src *image.NRGBA, rect image.Rectangle) *image.NRGBA {
	rect = rect.Intersect(src.Bounds())
	dst := image.NewNRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	rowSize := rect.Dx() * 4
	for y := 0; y < rect.Dy(); y++ {
		si := src.PixOffset(rect.Min.X, rect.Min.Y+y)
		di := dst.PixOffset(0, y)
		copy(dst.Pix[di:di+rowSize], src.Pix[si:si+rowSize])
	}
	return dst
}

func cropCenterNRGBA(src *image.NRGBA, w, h int) *image.NRGBA {
	b := src.Bounds()
	x0 := b.Min.X + (b.Dx()-w)/2
	y0 := b.Min.Y + (b.Dy()-h)/2
	return cropNRGBA(src, image.Rect(x0, y0, x0+w, y0+h))
}

func flipHNRGBA(src *image.NRGBA) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			setPixel(dst, b.Max.X-1-(x-b.Min.X), y, pixelAt(src, x, y))
		}
	}
	return dst
}

func flipVNRGBA(src *image.NRGBA) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			setPixel(dst, x, b.Max.Y-1-(y-b.Min.Y), pixelAt(src, x, y))
		}
	}
	return dst
}

// rotateQuarterNRGBA rotates clockwise by quarter*90 degrees exactly.
func rotateQuarterNRGBA(src *image.NRGBA, quarter int) *image.NRGBA {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	switch ((quarter % 4) + 4) % 4 {
	case 1:
		dst := image.NewNRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				setPixel(dst, h-1-y, x, pixelAt(src, x, y))
			}
		}
		return dst
	case 2:
		dst := image.NewNRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				setPixel(dst, w-1-x, h-1-y, pixelAt(src, x, y))
			}
		}
		return dst
	case 3:
		dst := image.NewNRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				setPixel(dst, y, w-1-x, pixelAt(src, x, y))
			}
		}
		return dst
	default:
		return cloneNRGBA(src)
	}
}

// rotateBilinear rotates src clockwise by degrees about its centre onto a
// dstW x dstH canvas, inverse-mapping every destination pixel and sampling
// bilinearly. Uncovered pixels take bg.
func rotateBilinear(src *image.NRGBA, degrees float64, dstW, dstH int, bg color.NRGBA) *image.NRGBA {
	dst := newCanvas(dstW, dstH, bg)
	srcW, srcH := src.Bounds().Dx(), src.Bounds().Dy()
	sin, cos := math.Sincos(degrees * math.Pi / 180)

	srcXOff := float64(srcW)/2 - 0.5
	srcYOff := float64(srcH)/2 - 0.5
	dstXOff := float64(dstW)/2 - 0.5
	dstYOff := float64(dstH)/2 - 0.5

	for y := 0; y < dstH; y++ {
		for x := 0; x < dstW; x++ {
			dx := float64(x) - dstXOff
			dy := float64(y) - dstYOff
			sx := dx*cos + dy*sin + srcXOff
			sy := -dx*sin + dy*cos + srcYOff
			if sx < -0.5 || sy < -0.5 || sx > float64(srcW)-0.5 || sy > float64(srcH)-0.5 {
				continue
			}
			setPixel(dst, x, y, bilinearSample(src, sx, sy))
		}
	}
	return dst
}

func bilinearSample(src *image.NRGBA, x, y float64) color.NRGBA {
	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	fx, fy := x-float64(x0), y-float64(y0)

	c00 := pixelAt(src, x0, y0)
	c10 := pixelAt(src, x0+1, y0)
	c01 := pixelAt(src, x0, y0+1)
	c11 := pixelAt(src, x0+1, y0+1)

	mix := func(a, b, c, d uint8) uint8 {
		top := float64(a)*(1-fx) + float64(b)*fx
		bottom := float64(c)*(1-fx) + float64(d)*fx
		return clamp8(top*(1-fy) + bottom*fy)
	}
	return color.NRGBA{
		R: mix(c00.R, c10.R, c01.R, c11.R),
		G: mix(c00.G, c10.G, c01.G, c11.G),
		B: mix(c00.B, c10.B, c01.B, c11.B),
		A: mix(c00.A, c10.A, c01.A, c11.A),
	}
}

// compositeOver draws src onto dst at (ox, oy) with source-over alpha
// blending, modifying dst in place.
func compositeOver(dst, src *image.NRGBA, ox, oy int) {
	sb := src.Bounds()
	db := dst.Bounds()
	for y := 0; y < sb.Dy(); y++ {
		ty := oy + y
		if ty < db.Min.Y || ty >= db.Max.Y {
			continue
		}
		for x := 0; x < sb.Dx(); x++ {
			tx := ox + x
			if tx < db.Min.X || tx >= db.Max.X {
				continue
			}
			s := pixelAt(src, sb.Min.X+x, sb.Min.Y+y)
			if s.A == 255 {
				setPixel(dst, tx, ty, s)
				continue
			}
			d := pixelAt(dst, tx, ty)
			sa := float64(s.A) / 255
			da := float64(d.A) / 255
			outA := sa + da*(1-sa)
			if outA == 0 {
				setPixel(dst, tx, ty, color.NRGBA{})
				continue
			}
			blend := func(sc, dc uint8) uint8 {
				return clamp8((float64(sc)*sa + float64(dc)*da*(1-sa)) / outA)
			}
			setPixel(dst, tx, ty, color.NRGBA{
				R: blend(s.R, d.R),
				G: blend(s.G, d.G),
				B: blend(s.B, d.B),
				A: clamp8(outA * 255),
			})
		}
	}
}

func scaleBilinear(src *image.NRGBA, w, h int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}
