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

// Package lcfs reads lcfs metadata images: compact, versioned binary
// descriptions of a directory tree (inodes, directory entries, extended
// attributes and regular-file backing paths) laid out after a fixed
// header on an arbitrary byte source.
//
// The package only decodes; it never caches decoded objects and it
// treats every byte of the image as untrusted. All offset and length
// arithmetic is overflow-checked and bounds-checked against the image
// before any read, so a truncated or adversarial image produces an
// ErrCorrupted class error rather than an out-of-range access.
//
// An Image is immutable after OpenImage and may be shared across
// goroutines; each call uses call-local buffers only.
package lcfs

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/containerd/lcfs/internal/disk"
)

// Image provides access to the contents of one opened lcfs image.
type Image struct {
	src  Source
	hdr  disk.Header
	size int64
}

// OpenImage opens the image on src, reading and verifying its header.
// The format version and the on-disk record sizes must match this
// reader exactly; there is no cross-version negotiation.
func OpenImage(src Source) (*Image, error) {
	size := src.Size()
	if size < disk.SizeHeader+disk.SizeInode {
		return nil, fmt.Errorf("%w: %d bytes cannot hold a header and a root inode", ErrInvalidImage, size)
	}

	var buf [disk.SizeHeader]byte
	if err := src.ReadExact(buf[:], 0); err != nil {
		return nil, err
	}
	i := &Image{src: src, size: size}
	if _, err := binary.Decode(buf[:], binary.LittleEndian, &i.hdr); err != nil {
		return nil, err
	}

	if i.hdr.Version != disk.FormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d, expected %d", ErrInvalidImage, i.hdr.Version, disk.FormatVersion)
	}
	if i.hdr.InodeLen != disk.SizeInode {
		return nil, fmt.Errorf("%w: inode record size %d, expected %d", ErrInvalidImage, i.hdr.InodeLen, disk.SizeInode)
	}
	if i.hdr.InodeDataLen != disk.SizeInodeData {
		return nil, fmt.Errorf("%w: inode data record size %d, expected %d", ErrInvalidImage, i.hdr.InodeDataLen, disk.SizeInodeData)
	}
	return i, nil
}

// OpenImageFile opens the image stored in the file at path.
func OpenImageFile(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	src, err := NewFileSource(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	img, err := OpenImage(src)
	if err != nil {
		f.Close()
		return nil, err
	}
	return img, nil
}

// Close releases the backing source. It is idempotent and safe to call
// on a nil Image. Using the image or any Inode decoded from it after
// Close is invalid.
func (i *Image) Close() error {
	if i == nil || i.src == nil {
		return nil
	}
	src := i.src
	i.src = nil
	if c, ok := src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Size returns the total byte length of the image, header included.
func (i *Image) Size() int64 {
	return i.size
}

// Version returns the image format version recorded in the header.
func (i *Image) Version() uint32 {
	return i.hdr.Version
}

// RootIndex returns the payload offset of the root inode record, which
// by convention occupies the last inode-sized slot of the payload area.
func (i *Image) RootIndex() uint64 {
	payload := uint64(i.size) - disk.SizeHeader
	return payload - disk.SizeInode
}

// Root returns the root directory inode.
func (i *Image) Root() (*Inode, error) {
	return i.Inode(i.RootIndex())
}
