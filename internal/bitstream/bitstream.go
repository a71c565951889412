package bitstream

import (
	"errors"
)

// ErrStreamUnderflow is returned when a read runs past the end of the data
var ErrStreamUnderflow = errors.New("stream underflow")

// ErrValueOutOfRange is set by decoders that read a value the stream's
// context cannot hold
var ErrValueOutOfRange = errors.New("value out of range")

// Version identifies the layout of a stream. Optional fields are gated on it.
type Version uint8

const (
	Version1 Version = iota + 1
	// VersionDictName adds dictionary names to bad-word reports and the quitter to end-game messages
	VersionDictName
	// VersionBigBoard adds the stack hash to move reports
	VersionBigBoard
	// VersionPrevWords adds the new-proto version prefix to message headers
	VersionPrevWords
	// VersionDuplicate adds duplicate-mode state
	VersionDuplicate
	// VersionRematch adds rematch addresses
	VersionRematch

	VersionCurrent = VersionRematch
)

// Writer packs values into a bit stream, least significant bit first
type Writer struct {
	buf     []byte
	bitPos  uint
	version Version
}

// NewWriter creates a Writer for the given stream version
func NewWriter(version Version) *Writer {
	return &Writer{version: version}
}

// Version returns the stream version
func (w *Writer) Version() Version {
	return w.version
}

// SetVersion changes the stream version for subsequent gated fields
func (w *Writer) SetVersion(v Version) {
	w.version = v
}

// PutBits writes the low n bits of v
func (w *Writer) PutBits(n uint, v uint32) {
	for i := uint(0); i < n; i++ {
		if w.bitPos == 0 {
			w.buf = append(w.buf, 0)
		}
		if v&(1<<i) != 0 {
			w.buf[len(w.buf)-1] |= 1 << w.bitPos
		}
		w.bitPos = (w.bitPos + 1) % 8
	}
}

// PutBool writes a single bit
func (w *Writer) PutBool(b bool) {
	var v uint32
	if b {
		v = 1
	}
	w.PutBits(1, v)
}

func (w *Writer) PutU8(v uint8) {
	w.PutBits(8, uint32(v))
}

func (w *Writer) PutU16(v uint16) {
	w.PutBits(16, uint32(v))
}

func (w *Writer) PutU32(v uint32) {
	w.PutBits(32, v)
}

// PutU32VL writes v in 7-bit groups, high bit set on all but the last
func (w *Writer) PutU32VL(v uint32) {
	for {
		b := uint8(v & 0x7F)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.PutU8(b)
		if v == 0 {
			return
		}
	}
}

// PutString writes a length-prefixed string
func (w *Writer) PutString(s string) {
	w.PutU32VL(uint32(len(s)))
	for i := 0; i < len(s); i++ {
		w.PutU8(s[i])
	}
}

// PutBytes writes a length-prefixed byte slice
func (w *Writer) PutBytes(b []byte) {
	w.PutU32VL(uint32(len(b)))
	for _, c := range b {
		w.PutU8(c)
	}
}

// Bytes returns the packed data. A trailing partial byte is zero padded.
func (w *Writer) Bytes() []byte {
	out := make([]byte, len(w.buf))
	copy(out, w.buf)
	return out
}

// Len returns the number of bits written
func (w *Writer) Len() int {
	if w.bitPos == 0 {
		return len(w.buf) * 8
	}
	return (len(w.buf)-1)*8 + int(w.bitPos)
}

// Reader unpacks values written by a Writer. The first failed read sets a
// sticky error and all later reads return zero values.
type Reader struct {
	data    []byte
	pos     int
	version Version
	err     error
}

// NewReader creates a Reader over data for the given stream version
func NewReader(data []byte, version Version) *Reader {
	return &Reader{data: data, version: version}
}

func (r *Reader) Version() Version {
	return r.version
}

// SetVersion changes the version used to gate subsequent reads
func (r *Reader) SetVersion(v Version) {
	r.version = v
}

// Err returns the first error encountered, if any
func (r *Reader) Err() error {
	return r.err
}

// Fail records err as the stream's error unless one is already set
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// BitsLeft returns the number of unread bits, including padding
func (r *Reader) BitsLeft() int {
	return len(r.data)*8 - r.pos
}

// GetBits reads n bits
func (r *Reader) GetBits(n uint) uint32 {
	if r.err != nil {
		return 0
	}
	if r.BitsLeft() < int(n) {
		r.err = ErrStreamUnderflow
		return 0
	}
	var v uint32
	for i := uint(0); i < n; i++ {
		byteIdx := r.pos / 8
		bit := uint(r.pos % 8)
		if r.data[byteIdx]&(1<<bit) != 0 {
			v |= 1 << i
		}
		r.pos++
	}
	return v
}

func (r *Reader) GetBool() bool {
	return r.GetBits(1) == 1
}

func (r *Reader) GetU8() uint8 {
	return uint8(r.GetBits(8))
}

func (r *Reader) GetU16() uint16 {
	return uint16(r.GetBits(16))
}

func (r *Reader) GetU32() uint32 {
	return r.GetBits(32)
}

// GetU32VL reads a value written by PutU32VL
func (r *Reader) GetU32VL() uint32 {
	var v uint32
	for shift := uint(0); shift < 35; shift += 7 {
		b := r.GetU8()
		if r.err != nil {
			return 0
		}
		v |= uint32(b&0x7F) << shift
		if b&0x80 == 0 {
			return v
		}
	}
	return v
}

// GetString reads a length-prefixed string
func (r *Reader) GetString() string {
	return string(r.GetBytes())
}

// GetBytes reads a length-prefixed byte slice
func (r *Reader) GetBytes() []byte {
	n := r.GetU32VL()
	if r.err != nil {
		return nil
	}
	if int(n)*8 > r.BitsLeft() {
		r.err = ErrStreamUnderflow
		return nil
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = r.GetU8()
	}
	return out
}
