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
	"fmt"

	"github.com/containerd/errdefs"
	"golang.org/x/sys/unix"

	"github.com/containerd/lcfs/internal/disk"
)

// FileKind is the file type portion of an inode's mode (mode & S_IFMT).
type FileKind uint32

const (
	KindRegular   FileKind = unix.S_IFREG
	KindDirectory FileKind = unix.S_IFDIR
	KindSymlink   FileKind = unix.S_IFLNK
	KindCharDev   FileKind = unix.S_IFCHR
	KindBlockDev  FileKind = unix.S_IFBLK
	KindFIFO      FileKind = unix.S_IFIFO
	KindSocket    FileKind = unix.S_IFSOCK
)

// String implements fmt.Stringer.
func (k FileKind) String() string {
	switch k {
	case KindRegular:
		return "regular"
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	case KindCharDev:
		return "chardev"
	case KindBlockDev:
		return "blockdev"
	case KindFIFO:
		return "fifo"
	case KindSocket:
		return "socket"
	default:
		return fmt.Sprintf("unknown(%#x)", uint32(k))
	}
}

// Inode is an immutable view of one inode record and its split-out
// POSIX metadata, decoded on demand from the image. It holds no
// resources; the owning Image must stay open while it is used.
type Inode struct {
	img   *Image
	index uint64
	raw   disk.Inode
	data  disk.InodeData
}

// Inode decodes the inode record at the payload offset index together
// with its inode-data record.
func (i *Image) Inode(index uint64) (*Inode, error) {
	n := &Inode{img: i, index: index}

	var buf [disk.SizeInode]byte
	if err := i.decodeRegion(disk.VData{Off: index, Len: disk.SizeInode}, buf[:], &n.raw); err != nil {
		return nil, err
	}
	if err := i.decodeRegion(disk.VData{Off: n.raw.InodeDataIndex, Len: disk.SizeInodeData}, buf[:disk.SizeInodeData], &n.data); err != nil {
		return nil, err
	}
	return n, nil
}

// Index returns the payload offset this inode was decoded from.
func (n *Inode) Index() uint64 {
	return n.index
}

// Mode returns the file type and permission bits.
func (n *Inode) Mode() uint32 {
	return n.data.Mode
}

// Kind returns the file type of this inode.
func (n *Inode) Kind() FileKind {
	return FileKind(n.data.Mode & unix.S_IFMT)
}

// IsDir indicates whether n is a directory.
func (n *Inode) IsDir() bool {
	return n.Kind() == KindDirectory
}

// IsRegular indicates whether n is a regular file.
func (n *Inode) IsRegular() bool {
	return n.Kind() == KindRegular
}

// UID returns the user ID of the owner.
func (n *Inode) UID() uint32 {
	return n.data.UID
}

// GID returns the group ID of the owner.
func (n *Inode) GID() uint32 {
	return n.data.GID
}

// Nlink returns the number of hard links.
func (n *Inode) Nlink() uint32 {
	return n.data.Nlink
}

// Rdev returns the device number for device nodes.
func (n *Inode) Rdev() uint32 {
	return n.data.Rdev
}

// Size returns the file size in bytes.
func (n *Inode) Size() uint64 {
	return n.raw.Size
}

// Mtime returns the modification time as seconds and nanoseconds.
func (n *Inode) Mtime() (uint64, uint32) {
	return n.raw.Mtime, n.raw.MtimeNs
}

// entries returns the region holding the sorted dentry array of a
// directory inode.
func (n *Inode) entries() (disk.VData, error) {
	if !n.IsDir() {
		return disk.VData{}, fmt.Errorf("inode %#x is not a directory: %w", n.index, errdefs.ErrInvalidArgument)
	}
	return n.raw.Payload, nil
}

// PayloadPath returns the backing path of a regular file. The file
// content itself is not stored in the image; the returned path is
// interpreted by whatever content store backs the filesystem.
func (n *Inode) PayloadPath() (string, error) {
	if !n.IsRegular() {
		return "", fmt.Errorf("inode %#x is not a regular file: %w", n.index, errdefs.ErrInvalidArgument)
	}
	if n.raw.Payload.Len == 0 {
		return "", fmt.Errorf("regular file inode %#x has no payload path: %w", n.index, errdefs.ErrInvalidArgument)
	}
	var buf [disk.MaxPathLen]byte
	p, err := n.img.readString(n.raw.Payload, buf[:], disk.MaxPathLen)
	if err != nil {
		return "", err
	}
	return string(p), nil
}
