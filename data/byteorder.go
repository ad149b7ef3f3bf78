package data

// BigEndianUint32 decodes a 32-bit value stored most significant byte first.
func BigEndianUint32(b [4]byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// PutBigEndianUint32 is the inverse of BigEndianUint32.
func PutBigEndianUint32(v uint32) [4]byte {
	return [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}
