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

// Package disk defines the lcfs on-disk structures. All fields are stored
// in little-endian byte order. Offsets held in a VData are relative to the
// first byte after the image header.
package disk

const (
	// FormatVersion is the only image format version this reader accepts.
	FormatVersion = 1

	SizeHeader      = 16
	SizeVData       = 16
	SizeInode       = 64
	SizeInodeData   = 20
	SizeDentry      = 24
	SizeXattrHeader = 32

	// MaxNameLen is the byte ceiling for a directory entry name,
	// including its NUL terminator. Matches NAME_MAX.
	MaxNameLen = 255

	// MaxXattrNameLen is the byte ceiling for an extended attribute key,
	// matching XATTR_NAME_MAX.
	MaxXattrNameLen = 255

	// MaxPathLen is the byte ceiling for a regular file's backing path,
	// including its NUL terminator. Matches PATH_MAX.
	MaxPathLen = 4096
)

// Header sits at offset 0 of the image. The record sizes are stored so
// that a reader built against different structures rejects the image
// outright instead of misdecoding it.
type Header struct {
	Version      uint32
	Flags        uint32
	InodeLen     uint32
	InodeDataLen uint32
}

// VData locates a variable-length byte range inside the payload area.
type VData struct {
	Off uint64
	Len uint64
}

// Inode is the fixed-size inode record. Payload is a union in spirit:
// for directories it addresses the sorted Dentry array, for regular
// files the NUL-terminated backing path. The file kind lives in the
// InodeData record's mode bits.
type Inode struct {
	InodeDataIndex uint64
	Xattrs         VData
	Payload        VData
	Size           uint64
	Mtime          uint64
	MtimeNs        uint32
	Reserved       uint32
}

// InodeData holds the POSIX metadata split out of the inode record.
type InodeData struct {
	Mode  uint32
	Nlink uint32
	UID   uint32
	GID   uint32
	Rdev  uint32
}

// Dentry is one entry of a directory's contiguous, name-sorted array.
// Name addresses a NUL-terminated string; InodeIndex is the payload
// offset of the owning inode record.
type Dentry struct {
	Name       VData
	InodeIndex uint64
}

// XattrHeader is one entry of an inode's extended attribute table.
// The table carries no ordering guarantee.
type XattrHeader struct {
	Key   VData
	Value VData
}
