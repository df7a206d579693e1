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
	"encoding/binary"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/containerd/lcfs/internal/disk"
)

// imageBuilder assembles well-formed (and, on demand, deliberately
// broken) images for tests. Records are appended to the payload area in
// call order; the writer convention that the root inode is the very
// last record holds as long as the root directory is added last.
type imageBuilder struct {
	t       *testing.T
	payload bytes.Buffer
}

type xattrPair struct {
	key, value string
}

const (
	kindModeRegular = unix.S_IFREG | 0o644
	kindModeDir     = unix.S_IFDIR | 0o755
)

func newImageBuilder(t *testing.T) *imageBuilder {
	return &imageBuilder{t: t}
}

// add appends raw bytes and returns the region addressing them.
func (b *imageBuilder) add(data []byte) disk.VData {
	v := disk.VData{Off: uint64(b.payload.Len()), Len: uint64(len(data))}
	b.payload.Write(data)
	return v
}

// addString appends s with a NUL terminator.
func (b *imageBuilder) addString(s string) disk.VData {
	return b.add(append([]byte(s), 0))
}

// addRecord appends a fixed-size record and returns its payload offset.
func (b *imageBuilder) addRecord(v any) uint64 {
	off := uint64(b.payload.Len())
	require.NoError(b.t, binary.Write(&b.payload, binary.LittleEndian, v))
	return off
}

// addXattrs appends key and value blobs followed by the contiguous
// header table and returns the region addressing the table.
func (b *imageBuilder) addXattrs(pairs []xattrPair) disk.VData {
	if len(pairs) == 0 {
		return disk.VData{}
	}
	hdrs := make([]disk.XattrHeader, len(pairs))
	for i, p := range pairs {
		hdrs[i].Key = b.add([]byte(p.key))
		hdrs[i].Value = b.add([]byte(p.value))
	}
	start := uint64(b.payload.Len())
	for i := range hdrs {
		b.addRecord(hdrs[i])
	}
	return disk.VData{Off: start, Len: uint64(len(hdrs)) * disk.SizeXattrHeader}
}

// addInode appends an inode-data record, the xattr table and the inode
// record itself, returning the inode's payload offset.
func (b *imageBuilder) addInode(mode uint32, payload disk.VData, size uint64, xattrs []xattrPair) uint64 {
	dataIndex := b.addRecord(disk.InodeData{
		Mode:  mode,
		Nlink: 1,
		UID:   1000,
		GID:   1000,
	})
	return b.addRecord(disk.Inode{
		InodeDataIndex: dataIndex,
		Xattrs:         b.addXattrs(xattrs),
		Payload:        payload,
		Size:           size,
		Mtime:          1700000000,
		MtimeNs:        42,
	})
}

// addRegular appends a regular file inode whose payload references path.
func (b *imageBuilder) addRegular(path string, size uint64, xattrs []xattrPair) uint64 {
	return b.addInode(kindModeRegular, b.addString(path), size, xattrs)
}

// addDir appends a directory inode over the given children, writing the
// dentry array sorted by name as the writer does.
func (b *imageBuilder) addDir(children map[string]uint64, xattrs []xattrPair) uint64 {
	names := make([]string, 0, len(children))
	for name := range children {
		names = append(names, name)
	}
	sort.Strings(names)

	dentries := make([]disk.Dentry, len(names))
	for i, name := range names {
		dentries[i] = disk.Dentry{Name: b.addString(name), InodeIndex: children[name]}
	}
	start := uint64(b.payload.Len())
	for i := range dentries {
		b.addRecord(dentries[i])
	}
	entries := disk.VData{Off: start, Len: uint64(len(dentries)) * disk.SizeDentry}
	return b.addInode(kindModeDir, entries, 0, xattrs)
}

// rootWithXattrs appends a directory inode carrying an explicit xattr
// table region, bypassing addXattrs so tests can plant broken tables.
func (b *imageBuilder) rootWithXattrs(v disk.VData) uint64 {
	dataIndex := b.addRecord(disk.InodeData{Mode: kindModeDir, Nlink: 1})
	return b.addRecord(disk.Inode{InodeDataIndex: dataIndex, Xattrs: v})
}

// bytes serializes the image: header followed by the payload area.
func (b *imageBuilder) bytes() []byte {
	var buf bytes.Buffer
	require.NoError(b.t, binary.Write(&buf, binary.LittleEndian, disk.Header{
		Version:      disk.FormatVersion,
		InodeLen:     disk.SizeInode,
		InodeDataLen: disk.SizeInodeData,
	}))
	buf.Write(b.payload.Bytes())
	return buf.Bytes()
}

// open builds the image and opens it over a memory source.
func (b *imageBuilder) open() *Image {
	img, err := OpenImage(NewMemorySource(b.bytes()))
	require.NoError(b.t, err)
	b.t.Cleanup(func() { img.Close() })
	return img
}

// buildTree builds a small canonical image:
//
//	/
//	├── etc/
//	│   └── passwd  -> objects/11/aa (xattrs: user.foo, security.selinux)
//	└── usr/
//	    └── bin/
//	        └── env -> objects/22/bb
func buildTree(t *testing.T) *Image {
	b := newImageBuilder(t)
	passwd := b.addRegular("objects/11/aa", 420, []xattrPair{
		{"user.foo", "bar"},
		{"security.selinux", "system_u:object_r:passwd_file_t:s0"},
	})
	etc := b.addDir(map[string]uint64{"passwd": passwd}, nil)
	env := b.addRegular("objects/22/bb", 9000, nil)
	bin := b.addDir(map[string]uint64{"env": env}, nil)
	usr := b.addDir(map[string]uint64{"bin": bin}, nil)
	b.addDir(map[string]uint64{"etc": etc, "usr": usr}, nil)
	return b.open()
}
