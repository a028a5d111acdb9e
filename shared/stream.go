package shared

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/cockroachdb/errors"
)

const streamBufferSize = 64 << 10

// OutputStream buffers writes of the primitives shared by the data, index and
// filter files and keeps track of the number of bytes written.
type OutputStream struct {
	w       *bufio.Writer
	closer  io.Closer
	offset  int64
	scratch [MaxVarintLen]byte
}

// CreateOutputStream truncates or creates the file at path.
func CreateOutputStream(path string) (*OutputStream, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "lsm: create %s", path)
	}
	s := NewOutputStream(f)
	s.closer = f
	return s, nil
}

func NewOutputStream(w io.Writer) *OutputStream {
	return &OutputStream{w: bufio.NewWriterSize(w, streamBufferSize)}
}

func (s *OutputStream) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	s.offset += int64(n)
	return n, err
}

func (s *OutputStream) WriteUvarint(n uint64) (int, error) {
	b, err := AppendUvarint(s.scratch[:0], n)
	if err != nil {
		return 0, err
	}
	return s.Write(b)
}

// WriteVarint32 writes a non-negative 32-bit quantity, such as a length.
func (s *OutputStream) WriteVarint32(n int) (int, error) {
	if n < 0 || n > math.MaxInt32 {
		return 0, errors.Newf("lsm: varint32 out of range: %d", n)
	}
	return s.WriteUvarint(uint64(n))
}

// WriteFixed64 writes v as 8 big-endian bytes.
func (s *OutputStream) WriteFixed64(v uint64) (int, error) {
	binary.BigEndian.PutUint64(s.scratch[:8], v)
	return s.Write(s.scratch[:8])
}

// WriteBlobPair writes varint(len(key)) varint(len(value)) key value and
// returns the total number of bytes.
func (s *OutputStream) WriteBlobPair(key, value []byte) (int, error) {
	total := 0
	for _, l := range []int{len(key), len(value)} {
		n, err := s.WriteVarint32(l)
		total += n
		if err != nil {
			return total, err
		}
	}
	for _, b := range [][]byte{key, value} {
		n, err := s.Write(b)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Offset is the number of bytes written so far.
func (s *OutputStream) Offset() int64 {
	return s.offset
}

func (s *OutputStream) Flush() error {
	return s.w.Flush()
}

// Close flushes buffered bytes and closes the underlying file, if any.
func (s *OutputStream) Close() error {
	err := s.w.Flush()
	if s.closer != nil {
		err = errors.CombineErrors(err, s.closer.Close())
		s.closer = nil
	}
	return err
}

// InputStream reads the primitives written by OutputStream. It supports
// absolute seeks and relative skips over any io.ReaderAt, so several streams
// may share one open file.
type InputStream struct {
	ra     io.ReaderAt
	size   int64
	r      *bufio.Reader
	offset int64
	closer io.Closer
}

// OpenInputStream opens the file at path for reading.
func OpenInputStream(path string) (*InputStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "lsm: open %s", path)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "lsm: stat %s", path)
	}
	s := NewInputStream(f, st.Size())
	s.closer = f
	return s, nil
}

func NewInputStream(ra io.ReaderAt, size int64) *InputStream {
	return &InputStream{
		ra:   ra,
		size: size,
		r:    bufio.NewReaderSize(io.NewSectionReader(ra, 0, size), 4096),
	}
}

// Size is the length of the underlying data.
func (s *InputStream) Size() int64 {
	return s.size
}

// Offset is the absolute position of the next byte to be read.
func (s *InputStream) Offset() int64 {
	return s.offset
}

// SeekTo positions the stream at the absolute offset off.
func (s *InputStream) SeekTo(off int64) error {
	if off < 0 || off > s.size {
		return errors.Newf("lsm: seek to %d outside [0, %d]", off, s.size)
	}
	s.r.Reset(io.NewSectionReader(s.ra, off, s.size-off))
	s.offset = off
	return nil
}

// Skip advances the stream by n bytes.
func (s *InputStream) Skip(n int64) error {
	for n > 0 {
		step := n
		if step > math.MaxInt32 {
			step = math.MaxInt32
		}
		d, err := s.r.Discard(int(step))
		s.offset += int64(d)
		n -= int64(d)
		if err != nil {
			return s.truncated(err)
		}
	}
	return nil
}

func (s *InputStream) ReadByte() (byte, error) {
	c, err := s.r.ReadByte()
	if err != nil {
		return 0, err
	}
	s.offset++
	return c, nil
}

// ReadUvarint returns io.EOF when the stream is exhausted before the first
// byte, and a corruption error when it ends or overflows mid-value.
func (s *InputStream) ReadUvarint() (uint64, error) {
	start := s.offset
	var v uint64
	var shift uint
	for i := 0; ; i++ {
		c, err := s.ReadByte()
		if err != nil {
			if i == 0 && err == io.EOF {
				return 0, io.EOF
			}
			return 0, s.truncated(err)
		}
		if i == MaxVarintLen || (i == MaxVarintLen-1 && c&0x7f > 1) {
			return 0, CorruptionErrorf("lsm: varint overflow at offset %d", start)
		}
		v |= uint64(c&0x7f) << shift
		if c&stopBit != 0 {
			if v == 0 {
				return 0, CorruptionErrorf("lsm: malformed varint at offset %d", start)
			}
			return v - 1, nil
		}
		shift += 7
	}
}

// ReadVarint32 reads a value written by WriteVarint32.
func (s *InputStream) ReadVarint32() (int, error) {
	start := s.offset
	v, err := s.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt32 {
		return 0, CorruptionErrorf("lsm: varint32 out of range at offset %d: %d", start, v)
	}
	return int(v), nil
}

func (s *InputStream) ReadFixed64() (uint64, error) {
	var b [8]byte
	if _, err := s.readFull(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// ReadBytes reads exactly n bytes into a fresh slice.
func (s *InputStream) ReadBytes(n int) ([]byte, error) {
	if int64(n) > s.size-s.offset {
		return nil, CorruptionErrorf("lsm: %d bytes requested at offset %d, %d available",
			n, s.offset, s.size-s.offset)
	}
	b := make([]byte, n)
	if _, err := s.readFull(b); err != nil {
		return nil, err
	}
	return b, nil
}

// ReadBlobPair reads a pair written by WriteBlobPair. It returns io.EOF when
// no record starts at the current offset.
func (s *InputStream) ReadBlobPair() (Pair, error) {
	klen, err := s.ReadVarint32()
	if err != nil {
		return Pair{}, err
	}
	vlen, err := s.ReadVarint32()
	if err != nil {
		return Pair{}, noEOF(err)
	}
	key, err := s.ReadBytes(klen)
	if err != nil {
		return Pair{}, err
	}
	value, err := s.ReadBytes(vlen)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Key: key, Value: value}, nil
}

// Close closes the underlying file when the stream opened it.
func (s *InputStream) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}

func (s *InputStream) readFull(b []byte) (int, error) {
	n, err := io.ReadFull(s.r, b)
	s.offset += int64(n)
	if err != nil {
		return n, s.truncated(err)
	}
	return n, nil
}

func (s *InputStream) truncated(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return CorruptionErrorf("lsm: unexpected end of data at offset %d", s.offset)
	}
	return err
}

func noEOF(err error) error {
	if err == io.EOF {
		return CorruptionErrorf("lsm: truncated record")
	}
	return err
}
