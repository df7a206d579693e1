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

// lcfs is a small inspection tool for lcfs metadata images.
package main

import (
	"fmt"
	"os"

	"github.com/containerd/log"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "lcfs",
		Usage: "inspect lcfs metadata images",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug output in logs",
			},
		},
		Before: func(cliContext *cli.Context) error {
			if cliContext.Bool("debug") {
				return log.SetLevel("debug")
			}
			return nil
		},
		Commands: []*cli.Command{
			infoCommand,
			listCommand,
			statCommand,
			xattrCommand,
			payloadCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "lcfs: %s\n", err)
		os.Exit(1)
	}
}
