// Package automaxprocs sets GOMAXPROCS to match the Linux container CPU quota.
package automaxprocs

import (
	"fmt"
	"os"

	"go.uber.org/automaxprocs/maxprocs"
)

func init() {
	if _, err := maxprocs.Set(); err != nil {
		fmt.Fprintf(os.Stderr, "android-store-service:warning: non-fatal error setting GOMAXPROCS: %v\n", err)
	}
}
