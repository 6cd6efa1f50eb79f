// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rpcodec

import (
	"bufio"
	"errors"
	"io"
	"math/bits"
)

// bitLen is the number of bits needed to write n, with bitLen(0) == 0.
func bitLen(n uint32) int {
	return bits.Len32(n)
}

// bitReader reads an MSB-first bit stream.
type bitReader struct {
	r    *bufio.Reader
	cur  byte
	left int
}

func newBitReader(r io.Reader) *bitReader {
	return &bitReader{r: bufio.NewReaderSize(r, 64<<10)}
}

func (br *bitReader) readBits(n int) (uint32, error) {
	var v uint32
	for i := 0; i < n; i++ {
		if br.left == 0 {
			b, err := br.r.ReadByte()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return 0, ErrUnexpectedEOF
				}
				return 0, err
			}
			br.cur = b
			br.left = 8
		}
		br.left--
		v = v<<1 | uint32(br.cur>>br.left)&1
	}
	return v, nil
}

// bitWriter writes an MSB-first bit stream. Flush pads the last byte with
// zero bits.
type bitWriter struct {
	w    *bufio.Writer
	cur  byte
	used int
}

func newBitWriter(w io.Writer) *bitWriter {
	return &bitWriter{w: bufio.NewWriterSize(w, 64<<10)}
}

func (bw *bitWriter) writeBits(v uint32, n int) error {
	for i := n - 1; i >= 0; i-- {
		bw.cur = bw.cur<<1 | byte(v>>i)&1
		bw.used++
		if bw.used == 8 {
			if err := bw.w.WriteByte(bw.cur); err != nil {
				return err
			}
			bw.cur, bw.used = 0, 0
		}
	}
	return nil
}

func (bw *bitWriter) flush() error {
	if bw.used > 0 {
		if err := bw.w.WriteByte(bw.cur << (8 - bw.used)); err != nil {
			return err
		}
		bw.cur, bw.used = 0, 0
	}
	return bw.w.Flush()
}
