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

// dentryAt decodes the idx-th dentry of the validated entry array v.
func (i *Image) dentryAt(v disk.VData, idx uint64) (disk.Dentry, error) {
	var (
		d   disk.Dentry
		buf [disk.SizeDentry]byte
	)
	// idx*SizeDentry stays below v.Len, which was already checked
	// against the image, so the offset sum cannot wrap.
	err := i.decodeRegion(disk.VData{Off: v.Off + idx*disk.SizeDentry, Len: disk.SizeDentry}, buf[:], &d)
	return d, err
}

// IterDirents invokes fn for each entry of this directory in stored
// array order, starting at index start to allow resuming a previous
// iteration. For every entry the child inode is resolved so that fn
// receives its file kind. Iteration stops when fn returns false; any
// decode error aborts immediately and is returned.
func (n *Inode) IterDirents(start uint64, fn func(name string, index uint64, kind FileKind) bool) error {
	v, err := n.entries()
	if err != nil {
		return err
	}
	// Probe the whole array before trusting the entry count derived
	// from its length.
	if _, err := n.img.validateRegion(v); err != nil {
		return err
	}
	count := v.Len / disk.SizeDentry

	var nameBuf [disk.MaxNameLen]byte
	for idx := start; idx < count; idx++ {
		d, err := n.img.dentryAt(v, idx)
		if err != nil {
			return err
		}
		name, err := n.img.readString(d.Name, nameBuf[:], disk.MaxNameLen)
		if err != nil {
			return err
		}
		child, err := n.img.Inode(d.InodeIndex)
		if err != nil {
			return err
		}
		if !fn(string(name), d.InodeIndex, child.Kind()) {
			return nil
		}
	}
	return nil
}

// Lookup searches this directory for an entry named name and returns
// the payload offset of its inode record. The dentry array is written
// sorted by name under bytewise comparison, so the search is binary
// over entry indexes. A decode failure while probing aborts the search
// rather than steering it; a miss is errdefs.ErrNotFound.
func (n *Inode) Lookup(name string) (uint64, error) {
	v, err := n.entries()
	if err != nil {
		return 0, err
	}
	if _, err := n.img.validateRegion(v); err != nil {
		return 0, err
	}

	var (
		want    = []byte(name)
		nameBuf [disk.MaxNameLen]byte
		lo      uint64
		hi      = v.Len / disk.SizeDentry
	)
	for lo < hi {
		mid := lo + (hi-lo)/2
		d, err := n.img.dentryAt(v, mid)
		if err != nil {
			return 0, err
		}
		entry, err := n.img.readString(d.Name, nameBuf[:], disk.MaxNameLen)
		if err != nil {
			return 0, err
		}
		switch bytes.Compare(want, entry) {
		case 0:
			return d.InodeIndex, nil
		case 1:
			lo = mid + 1
		case -1:
			hi = mid
		}
	}
	return 0, fmt.Errorf("entry %q: %w", name, errdefs.ErrNotFound)
}
