package keepaway

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
)

// Digest is a sha256 over the round number, the common modulus and every
// actor's counter and queue, in index order.
func (s *Simulator) Digest() string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, s.round)
	digestWriteBig(h, &tmp, s.modulus.Bytes())
	digestWriteU64(h, &tmp, uint64(len(s.actors)))
	for i := range s.actors {
		digestWriteU64(h, &tmp, s.counts[i])
		digestWriteU64(h, &tmp, uint64(len(s.queues[i])))
		for _, w := range s.queues[i] {
			digestWriteBig(h, &tmp, w.Bytes())
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func digestWriteU64(h hash.Hash, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

// digestWriteBig length-prefixes the big-endian magnitude.
func digestWriteBig(h hash.Hash, tmp *[8]byte, b []byte) {
	digestWriteU64(h, tmp, uint64(len(b)))
	h.Write(b)
}
