package bitstream

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type BitstreamSuite struct {
	suite.Suite
}

func TestBitstreamSuite(t *testing.T) {
	suite.Run(t, new(BitstreamSuite))
}

func (s *BitstreamSuite) TestMixedWidthFieldsRoundTrip() {
	w := NewWriter(VersionCurrent)
	w.PutBits(4, 0xB)
	w.PutBool(true)
	w.PutBits(3, 5)
	w.PutU16(0xBEEF)
	w.PutU32VL(300)
	w.PutString("QUIXOTIC")
	w.PutBits(2, 3)

	r := NewReader(w.Bytes(), w.Version())
	s.Equal(uint32(0xB), r.GetBits(4))
	s.True(r.GetBool())
	s.Equal(uint32(5), r.GetBits(3))
	s.Equal(uint16(0xBEEF), r.GetU16())
	s.Equal(uint32(300), r.GetU32VL())
	s.Equal("QUIXOTIC", r.GetString())
	s.Equal(uint32(3), r.GetBits(2))
	s.NoError(r.Err())
}

func (s *BitstreamSuite) TestFieldsAreNotByteAligned() {
	w := NewWriter(Version1)
	w.PutBits(4, 0x3)
	w.PutBits(4, 0xC)
	s.Equal([]byte{0xC3}, w.Bytes())
	s.Equal(8, w.Len())

	w.PutBool(true)
	s.Equal(9, w.Len())
	s.Len(w.Bytes(), 2)
}

func (s *BitstreamSuite) TestUnderflowIsSticky() {
	r := NewReader([]byte{0xFF}, Version1)
	s.Equal(uint32(0xF), r.GetBits(4))
	_ = r.GetU8()
	s.ErrorIs(r.Err(), ErrStreamUnderflow)
	s.Equal(uint32(0), r.GetBits(1))
	s.ErrorIs(r.Err(), ErrStreamUnderflow)
}

func (s *BitstreamSuite) TestStringLengthPastEnd() {
	w := NewWriter(Version1)
	w.PutU32VL(40)
	w.PutU8('A')

	r := NewReader(w.Bytes(), Version1)
	s.Equal("", r.GetString())
	s.ErrorIs(r.Err(), ErrStreamUnderflow)
}

func (s *BitstreamSuite) TestHashIsStableAndSensitive() {
	a := Hash([]byte{1, 2, 3})
	s.Equal(a, Hash([]byte{1, 2, 3}))
	s.NotEqual(a, Hash([]byte{1, 2, 4}))
	s.Equal(uint32(0), Hash(nil))
}
