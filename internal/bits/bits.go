// Package bits converts between bytes and bit sequences.
// Bits are stored as bools, most-significant bit of every byte first.
package bits

import (
	"errors"
	"fmt"
)

// ErrMalformedBitLength is returned when a bit sequence is not a whole number of bytes.
var ErrMalformedBitLength = errors.New("bit length is not a multiple of 8")

// BytesToBits expands every byte into 8 bits, most-significant bit first.
func BytesToBits(bytes []byte) []bool {
	bits := make([]bool, 8*len(bytes))
	for i, b := range bytes {
		for j := 0; j < 8; j++ {
			// buf[i]:     0 1 1 0 1 0 0 1
			// (0x80>>j):  0 0 0 1 0 0 0 0  (j = 3)
			//                   ^
			bits[i*8+j] = (b & (0x80 >> uint(j))) != 0
		}
	}
	return bits
}

// BitsToBytes packs bits back into bytes, it fails unless len(bits) is a multiple of 8.
func BitsToBytes(bits []bool) ([]byte, error) {
	if len(bits)%8 != 0 {
		return nil, fmt.Errorf("%w: got %d bits", ErrMalformedBitLength, len(bits))
	}
	bytes := make([]byte, len(bits)/8)
	for i := 0; i < len(bits); i += 8 {
		var b byte
		for j := 0; j < 8; j++ {
			if bits[i+j] {
				b |= 0x80 >> uint(j)
			}
		}
		bytes[i/8] = b
	}
	return bytes, nil
}

// Pad returns bits extended with false up to the next multiple of size.
// The input is returned as is when it already fits.
func Pad(bits []bool, size int) []bool {
	rem := len(bits) % size
	if rem == 0 {
		return bits
	}
	padded := make([]bool, len(bits)+size-rem)
	copy(padded, bits)
	return padded
}

// String renders bits as 0/1 characters, used in debug logs and tests.
func String(bits []bool) string {
	buf := make([]byte, len(bits))
	for i, b := range bits {
		if b {
			buf[i] = '1'
		} else {
			buf[i] = '0'
		}
	}
	return string(buf)
}
