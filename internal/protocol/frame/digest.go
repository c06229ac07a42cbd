package frame

import (
	"crypto/subtle"

	"github.com/zeebo/blake3"
)

// Digest is a keyed BLAKE3-256 sum of a frame payload as sent.
type Digest [32]byte

// payloadKey separates frame digests from any other use of the same bytes.
var payloadKey = [32]byte{
	'b', 'l', 'o', 'b', 'm', 's', 'g', '.', 'f', 'r', 'a', 'm', 'e', '.',
	'p', 'a', 'y', 'l', 'o', 'a', 'd',
}

func PayloadDigest(wire []byte) Digest {
	h, err := blake3.NewKeyed(payloadKey[:])
	if err != nil {
		panic("frame: blake3 keyed hash initialization failed: " + err.Error())
	}
	h.Write(wire)
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

func equalDigest(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
