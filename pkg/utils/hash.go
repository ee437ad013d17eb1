package utils

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"math"
)

// HashFloats fingerprints values bit-exactly, so NaN cells and signed zeros
// produce stable, distinct keys. prefix namespaces the hash.
func HashFloats(prefix string, values []float64) string {
	h := md5.New()
	h.Write([]byte(prefix))
	var buf [8]byte
	for _, v := range values {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
