// Program cfloader is a command-line front end for the cfloader library: it
// demonstrates opening a link to the bootloader, reading both targets'
// info, flashing images, reading flash back, and verifying a flash against
// a local file. It is not part of the protocol stack itself.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
