package dev

import (
	"sync"

	"hyra/defs"
	"hyra/driver"
	"hyra/util"
)

type beepDev struct {
	sync.Mutex
	freqHz int
}

var beep = &beepDev{}

func (b *beepDev) Read(minor int, buf []byte, offset int64) (int, defs.Err_t) {
	b.Lock()
	defer b.Unlock()
	var tmp [4]byte
	util.Writen(tmp[:], 4, 0, b.freqHz)
	return copy(buf, tmp[:]), 0
}

// Write sets the speaker frequency in Hz; a frequency of 0 silences it,
// matching the PC speaker convention of gating the 8254 counter off at
// 0Hz rather than treating it as an error.
func (b *beepDev) Write(minor int, buf []byte, offset int64) (int, defs.Err_t) {
	if len(buf) < 4 {
		return 0, defs.EINVAL
	}
	b.Lock()
	defer b.Unlock()
	b.freqHz = util.Readn(buf, 4, 0)
	return 4, 0
}

func init() {
	driver.Export("beep", func() defs.Err_t {
		RegisterCdev(defs.D_BEEP, beep)
		RegisterNode(NodeSpec{Name: "beep", Devid: defs.Mkdev(defs.D_BEEP, 0), Mode: 0666})
		return 0
	})
}
