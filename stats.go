package mc

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
)

// ErrStatsTruncated is the error returned when a stats stream ends inside a record.
var ErrStatsTruncated = errors.New("truncated mbtree stats")

// Frame types recorded in a stats stream.
const (
	StatsTypeI byte = 'I'
	StatsTypeP byte = 'P'
	StatsTypeB byte = 'B'
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// StatsWriter writes per-frame macroblock qp offsets. Each record is the frame type
// followed by one big-endian Q8.8 word per macroblock.
type StatsWriter struct {
	w     io.Writer
	enc   *zstd.Encoder
	pack  Fix8PackFunc
	words []uint16
}

// NewStatsWriter returns a writer of records of count macroblocks. When compress is set
// the stream is zstd compressed and Close must be called to flush it.
func NewStatsWriter(w io.Writer, pack Fix8PackFunc, count int, compress bool) (*StatsWriter, error) {
	s := &StatsWriter{
		w:     w,
		pack:  pack,
		words: make([]uint16, count),
	}

	if compress {
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("stats writer: %w", err)
		}
		s.enc = enc
		s.w = enc
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewStatsWriter",
		"count":    count,
		"compress": compress,
	}).Debug("Stats stream opened")

	return s, nil
}

// Write appends the record of one frame. qp must hold one offset per macroblock.
func (s *StatsWriter) Write(frameType byte, qp []float32) error {
	if len(qp) != len(s.words) {
		return fmt.Errorf("stats record: %d offsets, want %d", len(qp), len(s.words))
	}

	s.pack(s.words, qp, len(qp))

	if _, err := s.w.Write([]byte{frameType}); err != nil {
		return err
	}
	_, err := s.w.Write(asBytes(s.words))

	return err
}

// Close flushes a compressed stream. It does not close the underlying writer.
func (s *StatsWriter) Close() error {
	if s.enc != nil {
		return s.enc.Close()
	}

	return nil
}

// StatsReader reads a stream written by StatsWriter. Compression is detected.
type StatsReader struct {
	r      io.Reader
	dec    *zstd.Decoder
	unpack Fix8UnpackFunc
	words  []uint16
	head   [1]byte
}

// NewStatsReader returns a reader of records of count macroblocks.
func NewStatsReader(r io.Reader, unpack Fix8UnpackFunc, count int) (*StatsReader, error) {
	br := bufio.NewReader(r)
	s := &StatsReader{
		r:      br,
		unpack: unpack,
		words:  make([]uint16, count),
	}

	magic, err := br.Peek(len(zstdMagic))
	compressed := err == nil && bytes.Equal(magic, zstdMagic)
	if compressed {
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("stats reader: %w", err)
		}
		s.dec = dec
		s.r = dec
	}

	logrus.WithFields(logrus.Fields{
		"function":   "NewStatsReader",
		"count":      count,
		"compressed": compressed,
	}).Debug("Stats stream opened")

	return s, nil
}

// Read fills qp with the next record of type frameType. Records of other types are
// skipped. It returns io.EOF at the end of the stream.
func (s *StatsReader) Read(frameType byte, qp []float32) error {
	if len(qp) != len(s.words) {
		return fmt.Errorf("stats record: %d offsets, want %d", len(qp), len(s.words))
	}

	for {
		if _, err := io.ReadFull(s.r, s.head[:]); err != nil {
			return err
		}

		if _, err := io.ReadFull(s.r, asBytes(s.words)); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return ErrStatsTruncated
			}
			return err
		}

		if s.head[0] == frameType {
			break
		}

		logrus.WithFields(logrus.Fields{
			"function": "Read",
			"want":     string(frameType),
			"got":      string(s.head[0]),
		}).Warn("Stats frame type mismatch, skipping record")
	}

	s.unpack(qp, s.words, len(qp))

	return nil
}

// Close releases the decoder of a compressed stream.
func (s *StatsReader) Close() {
	if s.dec != nil {
		s.dec.Close()
	}
}
