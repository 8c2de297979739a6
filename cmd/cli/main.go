// tsmerge merges time-series files from field devices.
//
// Files are validated for compatibility, then joined sequentially, stacked by
// parameter, or merged per station into a single time-aligned table.
package main

import (
	"os"

	"github.com/ccollicutt/tsmerge/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
