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
	"bytes"
	"fmt"

	"github.com/containerd/errdefs"

	"github.com/containerd/lcfs/internal/disk"
)

// xattrAt decodes the idx-th header of the validated xattr table v.
func (i *Image) xattrAt(v disk.VData, idx uint64) (disk.XattrHeader, error) {
	var (
		h   disk.XattrHeader
		buf [disk.SizeXattrHeader]byte
	)
	err := i.decodeRegion(disk.VData{Off: v.Off + idx*disk.SizeXattrHeader, Len: disk.SizeXattrHeader}, buf[:], &h)
	return h, err
}

// listXattrSize walks the whole table, validating every key, and
// returns the byte count a full listing needs: each key plus its NUL
// separator.
func (n *Inode) listXattrSize(v disk.VData, count uint64) (int, error) {
	var (
		keyBuf [disk.MaxXattrNameLen]byte
		total  int
	)
	for idx := uint64(0); idx < count; idx++ {
		h, err := n.img.xattrAt(v, idx)
		if err != nil {
			return 0, err
		}
		if h.Key.Len > disk.MaxXattrNameLen {
			return 0, fmt.Errorf("%w: xattr key of %d bytes exceeds limit %d", ErrCorrupted, h.Key.Len, disk.MaxXattrNameLen)
		}
		if err := n.img.readRegion(h.Key, keyBuf[:]); err != nil {
			return 0, err
		}
		total += int(h.Key.Len) + 1
	}
	return total, nil
}

// ListXattrs writes the extended attribute keys of this inode into dst
// as NUL-separated names, in table order, and returns the number of
// bytes written. A nil dst is a size query: the exact byte count a
// subsequent call needs is returned and nothing is written. The listing
// is two-pass; when dst is too small the call fails with
// ErrBufferTooSmall before any byte of dst is touched.
func (n *Inode) ListXattrs(dst []byte) (int, error) {
	v := n.raw.Xattrs
	if v.Len == 0 {
		return 0, nil
	}
	if _, err := n.img.validateRegion(v); err != nil {
		return 0, err
	}
	count := v.Len / disk.SizeXattrHeader

	total, err := n.listXattrSize(v, count)
	if err != nil {
		return 0, err
	}
	if dst == nil {
		return total, nil
	}
	if len(dst) < total {
		return 0, fmt.Errorf("listing needs %d bytes, have %d: %w", total, len(dst), ErrBufferTooSmall)
	}

	copied := 0
	for idx := uint64(0); idx < count; idx++ {
		h, err := n.img.xattrAt(v, idx)
		if err != nil {
			return 0, err
		}
		if err := n.img.readRegion(h.Key, dst[copied:]); err != nil {
			return 0, err
		}
		copied += int(h.Key.Len)
		dst[copied] = 0
		copied++
	}
	return copied, nil
}

// GetXattr copies the value of the named extended attribute into dst
// and returns the number of value bytes copied. A nil dst is a size
// query returning the value's length without copying. An absent
// attribute is errdefs.ErrNotFound, distinct from a zero-length value;
// a dst too small for the value is ErrBufferTooSmall.
func (n *Inode) GetXattr(name string, dst []byte) (int, error) {
	v := n.raw.Xattrs
	if v.Len == 0 || len(name) > disk.MaxXattrNameLen {
		return 0, fmt.Errorf("xattr %q: %w", name, errdefs.ErrNotFound)
	}
	if _, err := n.img.validateRegion(v); err != nil {
		return 0, err
	}
	count := v.Len / disk.SizeXattrHeader

	var (
		want   = []byte(name)
		keyBuf [disk.MaxXattrNameLen]byte
	)
	for idx := uint64(0); idx < count; idx++ {
		h, err := n.img.xattrAt(v, idx)
		if err != nil {
			return 0, err
		}
		if h.Key.Len != uint64(len(want)) {
			continue
		}
		if err := n.img.readRegion(h.Key, keyBuf[:]); err != nil {
			return 0, err
		}
		if !bytes.Equal(keyBuf[:h.Key.Len], want) {
			continue
		}
		if dst == nil {
			return int(h.Value.Len), nil
		}
		if uint64(len(dst)) < h.Value.Len {
			return 0, fmt.Errorf("value of %q needs %d bytes, have %d: %w", name, h.Value.Len, len(dst), ErrBufferTooSmall)
		}
		if err := n.img.readRegion(h.Value, dst); err != nil {
			return 0, err
		}
		return int(h.Value.Len), nil
	}
	return 0, fmt.Errorf("xattr %q: %w", name, errdefs.ErrNotFound)
}
