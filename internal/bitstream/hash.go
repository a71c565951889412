package bitstream

// Hash computes the Jenkins one-at-a-time hash of data
func Hash(data []byte) uint32 {
	var h uint32
	for _, b := range data {
		h += uint32(b)
		h += h << 10
		h ^= h >> 6
	}
	h += h << 3
	h ^= h >> 11
	h += h << 15
	return h
}
