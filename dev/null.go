package dev

import (
	"hyra/defs"
	"hyra/driver"
)

type nullDev struct{}

func (nullDev) Read(minor int, buf []byte, offset int64) (int, defs.Err_t) { return 0, 0 }

func (nullDev) Write(minor int, buf []byte, offset int64) (int, defs.Err_t) { return len(buf), 0 }

func init() {
	driver.Export("null", func() defs.Err_t {
		RegisterCdev(defs.D_DEVNULL, nullDev{})
		RegisterNode(NodeSpec{Name: "null", Devid: defs.Mkdev(defs.D_DEVNULL, 0), Mode: 0666})
		return 0
	})
}
