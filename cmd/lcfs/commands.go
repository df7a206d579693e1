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

package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/containerd/lcfs"
)

// withImage opens the image named by the first argument and hands it to
// fn together with the remaining arguments.
func withImage(cliContext *cli.Context, fn func(img *lcfs.Image, args []string) error) error {
	args := cliContext.Args().Slice()
	if len(args) == 0 {
		return fmt.Errorf("image file argument is required")
	}
	img, err := lcfs.OpenImageFile(args[0])
	if err != nil {
		return err
	}
	defer img.Close()
	return fn(img, args[1:])
}

// resolve walks path from the image root one component at a time. The
// kernel driver leaves the walking to the VFS; here it is done with
// plain lookups.
func resolve(img *lcfs.Image, path string) (*lcfs.Inode, error) {
	n, err := img.Root()
	if err != nil {
		return nil, err
	}
	for _, part := range strings.Split(path, "/") {
		if part == "" || part == "." {
			continue
		}
		index, err := n.Lookup(part)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if n, err = img.Inode(index); err != nil {
			return nil, err
		}
	}
	return n, nil
}

var infoCommand = &cli.Command{
	Name:      "info",
	Usage:     "Print image header information",
	ArgsUsage: "<image>",
	Action: func(cliContext *cli.Context) error {
		return withImage(cliContext, func(img *lcfs.Image, _ []string) error {
			tw := tabwriter.NewWriter(os.Stdout, 1, 8, 1, ' ', 0)
			fmt.Fprintf(tw, "Version:\t%d\n", img.Version())
			fmt.Fprintf(tw, "Size:\t%d\n", img.Size())
			fmt.Fprintf(tw, "Root inode:\t%#x\n", img.RootIndex())
			return tw.Flush()
		})
	},
}

var listCommand = &cli.Command{
	Name:      "ls",
	Usage:     "List the entries of a directory",
	ArgsUsage: "<image> [path]",
	Action: func(cliContext *cli.Context) error {
		return withImage(cliContext, func(img *lcfs.Image, args []string) error {
			path := "/"
			if len(args) > 0 {
				path = args[0]
			}
			n, err := resolve(img, path)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 1, 8, 1, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTYPE\tINODE\t")
			err = n.IterDirents(0, func(name string, index uint64, kind lcfs.FileKind) bool {
				fmt.Fprintf(tw, "%s\t%s\t%#x\t\n", name, kind, index)
				return true
			})
			if err != nil {
				return err
			}
			return tw.Flush()
		})
	},
}

var statCommand = &cli.Command{
	Name:      "stat",
	Usage:     "Print the metadata of a filesystem object",
	ArgsUsage: "<image> <path>",
	Action: func(cliContext *cli.Context) error {
		return withImage(cliContext, func(img *lcfs.Image, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("path argument is required")
			}
			n, err := resolve(img, args[0])
			if err != nil {
				return err
			}
			sec, nsec := n.Mtime()
			tw := tabwriter.NewWriter(os.Stdout, 1, 8, 1, ' ', 0)
			fmt.Fprintf(tw, "Inode:\t%#x\n", n.Index())
			fmt.Fprintf(tw, "Type:\t%s\n", n.Kind())
			fmt.Fprintf(tw, "Mode:\t%#o\n", n.Mode())
			fmt.Fprintf(tw, "Nlink:\t%d\n", n.Nlink())
			fmt.Fprintf(tw, "Uid/Gid:\t%d/%d\n", n.UID(), n.GID())
			fmt.Fprintf(tw, "Rdev:\t%d\n", n.Rdev())
			fmt.Fprintf(tw, "Size:\t%d\n", n.Size())
			fmt.Fprintf(tw, "Mtime:\t%d.%09d\n", sec, nsec)
			return tw.Flush()
		})
	},
}

var xattrCommand = &cli.Command{
	Name:  "xattr",
	Usage: "Inspect extended attributes",
	Subcommands: []*cli.Command{
		{
			Name:      "list",
			Aliases:   []string{"ls"},
			Usage:     "List extended attribute names",
			ArgsUsage: "<image> <path>",
			Action: func(cliContext *cli.Context) error {
				return withImage(cliContext, func(img *lcfs.Image, args []string) error {
					if len(args) == 0 {
						return fmt.Errorf("path argument is required")
					}
					n, err := resolve(img, args[0])
					if err != nil {
						return err
					}
					size, err := n.ListXattrs(nil)
					if err != nil || size == 0 {
						return err
					}
					names := make([]byte, size)
					if _, err := n.ListXattrs(names); err != nil {
						return err
					}
					for _, name := range bytes.Split(names[:size-1], []byte{0}) {
						fmt.Println(string(name))
					}
					return nil
				})
			},
		},
		{
			Name:      "get",
			Usage:     "Print the value of one extended attribute",
			ArgsUsage: "<image> <path> <name>",
			Action: func(cliContext *cli.Context) error {
				return withImage(cliContext, func(img *lcfs.Image, args []string) error {
					if len(args) < 2 {
						return fmt.Errorf("path and attribute name arguments are required")
					}
					n, err := resolve(img, args[0])
					if err != nil {
						return err
					}
					size, err := n.GetXattr(args[1], nil)
					if err != nil {
						return err
					}
					value := make([]byte, size)
					if _, err := n.GetXattr(args[1], value); err != nil {
						return err
					}
					os.Stdout.Write(value)
					fmt.Println()
					return nil
				})
			},
		},
	},
}

var payloadCommand = &cli.Command{
	Name:      "payload",
	Usage:     "Print the backing path of a regular file",
	ArgsUsage: "<image> <path>",
	Action: func(cliContext *cli.Context) error {
		return withImage(cliContext, func(img *lcfs.Image, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("path argument is required")
			}
			n, err := resolve(img, args[0])
			if err != nil {
				return err
			}
			p, err := n.PayloadPath()
			if err != nil {
				return err
			}
			fmt.Println(p)
			return nil
		})
	},
}
