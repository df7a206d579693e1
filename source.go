/*
   Copyright The containerd Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package lcfs

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Source is the positioned-read backing store of an image. ReadExact
// must fill p entirely with the bytes at [off, off+len(p)) or fail; it
// must be safe for concurrent invocation with independent arguments.
// A Source that also implements io.Closer is closed by Image.Close.
type Source interface {
	ReadExact(p []byte, off int64) error
	Size() int64
}

// memorySource serves reads out of an in-memory image blob.
type memorySource struct {
	b []byte
}

// NewMemorySource returns a Source backed by b. The caller must not
// mutate b while the source is in use.
func NewMemorySource(b []byte) Source {
	return &memorySource{b: b}
}

func (s *memorySource) ReadExact(p []byte, off int64) error {
	if off < 0 || off > int64(len(s.b)) || int64(len(p)) > int64(len(s.b))-off {
		return fmt.Errorf("%w: read [%d, %d) outside blob of %d bytes", ErrCorrupted, off, off+int64(len(p)), len(s.b))
	}
	copy(p, s.b[off:])
	return nil
}

func (s *memorySource) Size() int64 {
	return int64(len(s.b))
}

// readerSource serves reads out of an io.ReaderAt, typically an open
// image file. Short reads are retried until the requested range is
// satisfied; EOF before that is treated as a truncated image.
type readerSource struct {
	r    io.ReaderAt
	size int64
}

// NewFileSource returns a Source reading from the open file f. The
// source takes over f; closing the image closes the file.
func NewFileSource(f *os.File) (Source, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if st.Size() <= 0 {
		return nil, fmt.Errorf("%w: empty image file %q", ErrInvalidImage, f.Name())
	}
	return &readerSource{r: f, size: st.Size()}, nil
}

// NewReaderSource returns a Source reading the first size bytes of r.
func NewReaderSource(r io.ReaderAt, size int64) Source {
	return &readerSource{r: r, size: size}
}

func (s *readerSource) ReadExact(p []byte, off int64) error {
	for len(p) > 0 {
		n, err := s.r.ReadAt(p, off)
		p = p[n:]
		off += int64(n)
		if len(p) == 0 {
			// A full final read may come back with io.EOF attached.
			return nil
		}
		switch {
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: unexpected EOF at offset %d", ErrCorrupted, off)
		case err != nil:
			return err
		case n == 0:
			return fmt.Errorf("read of %d bytes at offset %d made no progress: %w", len(p), off, io.ErrNoProgress)
		}
	}
	return nil
}

func (s *readerSource) Size() int64 {
	return s.size
}

func (s *readerSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
