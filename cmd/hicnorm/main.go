// Command hicnorm spills contact records to disk, inspects spill files and
// balances the aggregated contact matrix.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
