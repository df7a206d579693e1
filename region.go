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
	"encoding/binary"
	"fmt"
	"math"

	"github.com/containerd/errdefs"
	"github.com/containerd/log"

	"github.com/containerd/lcfs/internal/disk"
)

// validateRegion checks that v lies fully inside the image and returns
// the absolute byte offset of its first byte. It performs no I/O, which
// makes it usable as a probe before trusting a derived element count.
// Every rejection, including arithmetic overflow, is ErrCorrupted.
func (i *Image) validateRegion(v disk.VData) (int64, error) {
	if v.Off > math.MaxUint64-disk.SizeHeader {
		return 0, fmt.Errorf("%w: region offset %#x overflows", ErrCorrupted, v.Off)
	}
	start := v.Off + disk.SizeHeader
	if start >= uint64(i.size) {
		return 0, fmt.Errorf("%w: region offset %#x beyond image of %d bytes", ErrCorrupted, v.Off, i.size)
	}
	if v.Len > math.MaxUint64-start {
		return 0, fmt.Errorf("%w: region length %#x overflows", ErrCorrupted, v.Len)
	}
	if start+v.Len > uint64(i.size) {
		log.L.WithFields(log.Fields{"off": v.Off, "len": v.Len, "size": i.size}).Debug("lcfs: region escapes image")
		return 0, fmt.Errorf("%w: region [%#x, %#x) beyond image of %d bytes", ErrCorrupted, v.Off, v.Off+v.Len, i.size)
	}
	return int64(start), nil
}

// readRegion validates v and reads its v.Len bytes into dst.
//
// Precondition: len(dst) >= v.Len. On error the contents of dst are
// unspecified, but no byte outside the image was ever addressed.
func (i *Image) readRegion(v disk.VData, dst []byte) error {
	off, err := i.validateRegion(v)
	if err != nil {
		return err
	}
	return i.src.ReadExact(dst[:v.Len], off)
}

// readString reads the NUL-terminated string addressed by v into buf
// and returns the view without the terminator. A zero-length region
// yields an empty string without touching the source. v.Len counts the
// terminator and may not exceed max; oversized names are the caller's
// problem (invalid argument), a missing terminator is the image's
// (corruption).
func (i *Image) readString(v disk.VData, buf []byte, max uint64) ([]byte, error) {
	if v.Len == 0 {
		return nil, nil
	}
	if v.Len > max {
		return nil, fmt.Errorf("string of %d bytes exceeds limit %d: %w", v.Len, max, errdefs.ErrInvalidArgument)
	}
	if err := i.readRegion(v, buf); err != nil {
		return nil, err
	}
	if buf[v.Len-1] != 0 {
		return nil, fmt.Errorf("%w: string at %#x is not NUL terminated", ErrCorrupted, v.Off)
	}
	return buf[:v.Len-1], nil
}

// decodeRegion reads the region addressed by v and decodes it into the
// fixed-size record out. buf provides the scratch space for the raw
// bytes; len(buf) must equal v.Len.
func (i *Image) decodeRegion(v disk.VData, buf []byte, out any) error {
	if err := i.readRegion(v, buf); err != nil {
		return err
	}
	_, err := binary.Decode(buf, binary.LittleEndian, out)
	return err
}
