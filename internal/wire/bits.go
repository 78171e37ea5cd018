package wire

// HeaderSize returns the number of whole bytes needed to hold bits header bits.
func HeaderSize(bits int) int {
	if bits <= 0 {
		return 0
	}
	return (bits + 7) / 8
}

// PutBits writes the low n bits of v into header starting at bit offset off.
//
// Offsets are MSB-first: offset 0 is the most significant bit of header[0],
// offset 8 the most significant bit of header[1]. The most significant of
// the n bits is written at the lowest offset. The caller guarantees that
// off+n does not exceed 8*len(header).
func PutBits(header []byte, off int, v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		PutBit(header, off, v>>uint(i)&1 == 1)
		off++
	}
}

// GetBits reads n bits starting at bit offset off, in the order PutBits
// writes them.
func GetBits(header []byte, off, n int) uint64 {
	var v uint64
	for i := 0; i < n; i++ {
		v <<= 1
		if GetBit(header, off+i) {
			v |= 1
		}
	}
	return v
}

// PutBit sets or clears the bit at offset off.
func PutBit(header []byte, off int, set bool) {
	mask := byte(0x80) >> uint(off&7)
	if set {
		header[off>>3] |= mask
	} else {
		header[off>>3] &^= mask
	}
}

// GetBit reports whether the bit at offset off is set.
func GetBit(header []byte, off int) bool {
	return header[off>>3]&(byte(0x80)>>uint(off&7)) != 0
}
