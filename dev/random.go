// Grounded in the original kernel's random driver (sys/dev/random/random.c):
// mix a small amount of fresh entropy into a pool, then run ChaCha20 as
// a keystream generator and write the keystream over the caller's
// buffer (its previous contents are not mixed in). The
// original reseeds from the timestamp counter on every read; this does
// the same with wall-clock time standing in for a hardware cycle
// counter.
package dev

import (
	"encoding/binary"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/crypto/chacha20"

	"hyra/defs"
	"hyra/driver"
)

type randomDev struct {
	sync.Mutex
	pool    [32]byte
	counter uint64
}

var random = newRandomDev()

func newRandomDev() *randomDev {
	r := &randomDev{}
	seed := rand.New(rand.NewSource(time.Now().UnixNano()))
	seed.Read(r.pool[:])
	return r
}

func (r *randomDev) mixEntropy(sample uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], sample)
	for i, b := range buf {
		r.pool[i] ^= b
	}
}

func (r *randomDev) Read(minor int, buf []byte, offset int64) (int, defs.Err_t) {
	r.Lock()
	defer r.Unlock()

	r.mixEntropy(uint64(time.Now().UnixNano()))
	r.counter++

	var nonce [12]byte
	binary.LittleEndian.PutUint64(nonce[:8], r.counter)

	c, err := chacha20.NewUnauthenticatedCipher(r.pool[:], nonce[:])
	if err != nil {
		return 0, defs.EIO
	}
	zero := make([]byte, len(buf))
	c.XORKeyStream(buf, zero)
	return len(buf), 0
}

func (r *randomDev) Write(minor int, buf []byte, offset int64) (int, defs.Err_t) {
	return 0, defs.ENOSUP
}

func init() {
	driver.Export("random", func() defs.Err_t {
		RegisterCdev(defs.D_RANDOM, random)
		RegisterNode(NodeSpec{Name: "random", Devid: defs.Mkdev(defs.D_RANDOM, 0), Mode: 0444})
		return 0
	})
}
