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
)

// Error classes returned by this package. They wrap the corresponding
// errdefs sentinels so that callers can match either the lcfs error or
// the generic class with errors.Is. I/O failures from a Source are
// propagated verbatim and belong to none of these classes.
var (
	// ErrInvalidImage indicates the image cannot be opened at all:
	// unknown format version, record sizes differing from this reader's,
	// or a source too small to hold a header and a root inode.
	ErrInvalidImage = fmt.Errorf("invalid lcfs image: %w", errdefs.ErrInvalidArgument)

	// ErrCorrupted indicates a structural violation inside an otherwise
	// well-formed image: an offset/length pair escaping the image,
	// arithmetic overflow while locating a region, a missing NUL
	// terminator, or a declared region that cannot be fully read.
	ErrCorrupted = fmt.Errorf("corrupted lcfs image: %w", errdefs.ErrDataLoss)

	// ErrBufferTooSmall indicates a caller-supplied destination cannot
	// hold the requested attribute data. Distinct from a lookup miss.
	ErrBufferTooSmall = fmt.Errorf("buffer too small: %w", errdefs.ErrOutOfRange)
)
