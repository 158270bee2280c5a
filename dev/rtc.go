package dev

import (
	"time"

	"hyra/defs"
	"hyra/driver"
	"hyra/util"
)

type rtcDev struct{}

func (rtcDev) Read(minor int, buf []byte, offset int64) (int, defs.Err_t) {
	if offset != 0 {
		return 0, 0
	}
	var tmp [8]byte
	util.Writen(tmp[:], 8, 0, int(time.Now().Unix()))
	n := copy(buf, tmp[:])
	return n, 0
}

func (rtcDev) Write(minor int, buf []byte, offset int64) (int, defs.Err_t) {
	return 0, defs.ENOSUP
}

func init() {
	driver.Export("rtc", func() defs.Err_t {
		RegisterCdev(defs.D_RTC, rtcDev{})
		RegisterNode(NodeSpec{Name: "rtc", Devid: defs.Mkdev(defs.D_RTC, 0), Mode: 0444})
		return 0
	})
}
