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
	"strings"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/containerd/lcfs/internal/disk"
)

func xattrFixture(t *testing.T, pairs []xattrPair) *Inode {
	b := newImageBuilder(t)
	file := b.addRegular("objects/xx/yy", 1, pairs)
	b.addDir(map[string]uint64{"file": file}, nil)
	img := b.open()

	root, err := img.Root()
	require.NoError(t, err)
	idx, err := root.Lookup("file")
	require.NoError(t, err)
	n, err := img.Inode(idx)
	require.NoError(t, err)
	return n
}

func TestListXattrs(t *testing.T) {
	pairs := []xattrPair{
		{"user.foo", "bar"},
		{"security.selinux", "system_u:object_r:etc_t:s0"},
	}
	n := xattrFixture(t, pairs)
	want := "user.foo\x00security.selinux\x00"

	size, err := n.ListXattrs(nil)
	require.NoError(t, err)
	assert.Equal(t, len(want), size)

	dst := make([]byte, size)
	copied, err := n.ListXattrs(dst)
	require.NoError(t, err)
	assert.Equal(t, size, copied)
	assert.Equal(t, want, string(dst))

	t.Run("one byte short", func(t *testing.T) {
		short := make([]byte, size-1)
		_, err := n.ListXattrs(short)
		require.ErrorIs(t, err, ErrBufferTooSmall)
		require.ErrorIs(t, err, errdefs.ErrOutOfRange)
		// Two-pass listing: nothing was written before the failure.
		assert.Equal(t, make([]byte, size-1), short)
	})

	t.Run("no attributes", func(t *testing.T) {
		n := xattrFixture(t, nil)
		size, err := n.ListXattrs(nil)
		require.NoError(t, err)
		assert.Zero(t, size)
	})
}

func TestGetXattr(t *testing.T) {
	pairs := []xattrPair{
		{"user.foo", "bar"},
		{"user.empty", ""},
		{"user.blob", "\x00\x01\x02\x03"},
	}
	n := xattrFixture(t, pairs)

	t.Run("size query", func(t *testing.T) {
		size, err := n.GetXattr("user.foo", nil)
		require.NoError(t, err)
		assert.Equal(t, 3, size)
	})

	t.Run("copy", func(t *testing.T) {
		dst := make([]byte, 3)
		copied, err := n.GetXattr("user.foo", dst)
		require.NoError(t, err)
		assert.Equal(t, 3, copied)
		assert.Equal(t, "bar", string(dst))
	})

	t.Run("binary value", func(t *testing.T) {
		dst := make([]byte, 16)
		copied, err := n.GetXattr("user.blob", dst)
		require.NoError(t, err)
		assert.True(t, bytes.Equal([]byte{0, 1, 2, 3}, dst[:copied]))
	})

	t.Run("zero length value is not a miss", func(t *testing.T) {
		copied, err := n.GetXattr("user.empty", make([]byte, 8))
		require.NoError(t, err)
		assert.Zero(t, copied)
	})

	t.Run("too small", func(t *testing.T) {
		_, err := n.GetXattr("user.foo", make([]byte, 2))
		require.ErrorIs(t, err, ErrBufferTooSmall)
	})

	t.Run("absent", func(t *testing.T) {
		_, err := n.GetXattr("user.nope", nil)
		require.ErrorIs(t, err, errdefs.ErrNotFound)
	})

	t.Run("oversized name", func(t *testing.T) {
		_, err := n.GetXattr("user."+strings.Repeat("x", 300), nil)
		require.ErrorIs(t, err, errdefs.ErrNotFound)
	})

	t.Run("empty table", func(t *testing.T) {
		n := xattrFixture(t, nil)
		_, err := n.GetXattr("user.foo", nil)
		require.ErrorIs(t, err, errdefs.ErrNotFound)
	})
}

func TestXattrTableCorruption(t *testing.T) {
	t.Run("oversized key", func(t *testing.T) {
		b := newImageBuilder(t)
		key := b.add(bytes.Repeat([]byte("k"), 300))
		value := b.add([]byte("v"))
		start := b.addRecord(disk.XattrHeader{Key: key, Value: value})
		b.rootWithXattrs(disk.VData{Off: start, Len: disk.SizeXattrHeader})

		img := b.open()
		n, err := img.Root()
		require.NoError(t, err)
		_, err = n.ListXattrs(nil)
		require.ErrorIs(t, err, ErrCorrupted)
	})

	t.Run("table escapes image", func(t *testing.T) {
		b := newImageBuilder(t)
		b.rootWithXattrs(disk.VData{Off: 1 << 40, Len: disk.SizeXattrHeader})
		img := b.open()
		n, err := img.Root()
		require.NoError(t, err)
		_, err = n.ListXattrs(nil)
		require.ErrorIs(t, err, ErrCorrupted)
		_, err = n.GetXattr("user.foo", nil)
		require.ErrorIs(t, err, ErrCorrupted)
	})
}
