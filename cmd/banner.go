package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

const banner = `
 __  _____ ___  __| | __ ___      ___ __
 \ \/ / __/ __|/ _' |/ _' \ \ /\ / / '_ \
  >  <\__ \__ \ (_| | (_| |\ V  V /| | | |
 /_/\_\___/___/\__,_|\__,_| \_/\_/ |_| |_|
`

// printBanner writes the banner to w, which is stderr so that stdout only
// carries results.
func printBanner(w io.Writer) {
	c := color.New(color.FgCyan, color.Bold)
	_, _ = c.Fprint(w, banner)
	_, _ = fmt.Fprintln(w, color.HiBlackString("  collect -> filter -> scan"))
	_, _ = fmt.Fprintln(w)
}
