// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/showrefs/showrefs/cmd/showrefs"

func main() {
	cmd.Execute()
}
