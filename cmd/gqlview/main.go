// Command gqlview serves the notes GraphQL schema over HTTP and websockets.
//
//	gqlview serve --config gqlview.yaml
//	gqlview token --user al --jwt-secret s3cret
//
// Settings come from defaults, the config file, GQLVIEW_* environment variables and flags (in increasing priority).
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
