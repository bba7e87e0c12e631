package atoms

import (
	"encoding/binary"
	"hash/fnv"
	"math"
)

// fingerprintQuantum is the position resolution of the fingerprint. Two
// geometries closer than this per coordinate hash identically.
const fingerprintQuantum = 1e-8

// Fingerprint returns an order-sensitive hash of the configuration: atomic
// numbers and positions quantized to fingerprintQuantum Angstrom. The loop
// uses it to drop duplicate geometries from a candidate batch before
// querying the parent calculator.
func Fingerprint(a *Atoms) uint64 {
	h := fnv.New64a()
	var buf [8]byte

	for _, z := range a.numbers {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(z)))
		h.Write(buf[:])
	}

	n := a.NumAtoms()
	for i := 0; i < n; i++ {
		for j := 0; j < 3; j++ {
			q := int64(math.Round(a.positions.At(i, j) / fingerprintQuantum))
			binary.LittleEndian.PutUint64(buf[:], uint64(q))
			h.Write(buf[:])
		}
	}
	return h.Sum64()
}
