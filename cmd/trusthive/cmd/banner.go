package cmd

import (
	"fmt"
)

const banner = `
  _____              _   _   _ _
 |_   _| __ _   _ __| |_| | | |_|_   _____
   | || '__| | | / __| __| |_| | \ \ / / _ \
   | || |  | |_| \__ \ |_|  _  | |\ V /  __/
   |_||_|   \__,_|___/\__|_| |_|_| \_/ \___|

`

func printBanner() {
	fmt.Printf("\x1b[33m%s\x1b[0m", banner)
	fmt.Printf("\x1b[32m  Review Platform Auth Core - Version %s\x1b[0m\n\n", Version)
}
