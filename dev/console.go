package dev

import (
	"sync"

	"hyra/defs"
	"hyra/driver"
)

type consoleDev struct {
	sync.Mutex
	out []byte
}

var console = &consoleDev{}

func (c *consoleDev) Read(minor int, buf []byte, offset int64) (int, defs.Err_t) {
	return 0, 0
}

func (c *consoleDev) Write(minor int, buf []byte, offset int64) (int, defs.Err_t) {
	c.Lock()
	defer c.Unlock()
	c.out = append(c.out, buf...)
	return len(buf), 0
}

/// ConsoleOutput returns everything written to the console so far,
/// exposed for tests and for a future /ctl/console/log entry.
func ConsoleOutput() []byte {
	console.Lock()
	defer console.Unlock()
	out := make([]byte, len(console.out))
	copy(out, console.out)
	return out
}

func init() {
	driver.Export("console", func() defs.Err_t {
		RegisterCdev(defs.D_CONSOLE, console)
		RegisterNode(NodeSpec{Name: "console", Devid: defs.Mkdev(defs.D_CONSOLE, 0), Mode: 0620})
		return 0
	})
}
