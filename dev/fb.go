// Grounded in the original kernel's framebuffer driver
// (sys/dev/video/fbdev.c): a read-only mmap'd region plus a read-only
// "attr" control file describing its geometry. There is no real boot
// protocol here to hand back a Limine framebuffer response, so the
// backing memory is a plain allocated arena of width*height*(bpp/8)
// bytes, rounded up to whole pages.
package dev

import (
	"sync"

	"hyra/defs"
	"hyra/driver"
	"hyra/mem"
)

const (
	fbWidth  = 1024
	fbHeight = 768
	fbBpp    = 32
)

/// FbAttr_t describes a framebuffer's geometry, the payload of the
/// /ctl/fb0/attr control file.
type FbAttr_t struct {
	Width  int
	Height int
	Pitch  int
	Bpp    int
}

type fbDev struct {
	sync.Mutex
	pa   mem.Pa_t
	npgs int
}

var fb *fbDev

func (f *fbDev) Read(minor int, buf []byte, offset int64) (int, defs.Err_t) { return 0, defs.ENOSUP }
func (f *fbDev) Write(minor int, buf []byte, offset int64) (int, defs.Err_t) {
	return 0, defs.ENOSUP
}

func (f *fbDev) Mmap(minor int, off int64, flags int) (mem.Pa_t, defs.Err_t) {
	bounds := int64(fbHeight * fbWidth * (fbBpp / 8))
	if off < 0 || off >= bounds {
		return 0, defs.EFAULT
	}
	return f.pa + mem.Pa_t(off), 0
}

/// FramebufferAttr reports the framebuffer's current geometry.
func FramebufferAttr() FbAttr_t {
	pitch := fbWidth * (fbBpp / 8)
	return FbAttr_t{Width: fbWidth, Height: fbHeight, Pitch: pitch, Bpp: fbBpp}
}

func init() {
	driver.Export("fbdev", func() defs.Err_t {
		npgs := (fbHeight*fbWidth*(fbBpp/8) + mem.PGSIZE - 1) / mem.PGSIZE
		pa, ok := mem.Physmem.AllocFrame(npgs)
		if !ok {
			return defs.ENOMEM
		}
		fb = &fbDev{pa: pa, npgs: npgs}
		RegisterCdev(defs.D_FB, fb)
		RegisterNode(NodeSpec{Name: "fb0", Devid: defs.Mkdev(defs.D_FB, 0), Mode: 0444})
		return 0
	})
}
