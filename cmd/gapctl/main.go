// Command gapctl runs content-gap analyses from the command line.
//
//	gapctl analyze --content pages.csv --queries queries.csv
//	gapctl analyze --content pages.csv --queries queries.csv --quality High,Medium --format csv -o out.csv
//	gapctl runs list
//	gapctl runs show <id>
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
