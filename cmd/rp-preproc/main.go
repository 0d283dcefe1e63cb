// rp-preproc imports xUnit XML results into Report Portal.
//
// Usage:
//
//	rp-preproc import -c <config> [-d <payload_dir>] [--service[=url]] [--simple_xml] [--merge] [--auto-dashboard] [--debug]
//	rp-preproc serve [--listen=:8080]
//	rp-preproc mcp
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
