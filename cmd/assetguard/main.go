package main

import (
	"fmt"
	"os"

	"assetguard/internal/observability/logger"
)

func main() {
	root := newRootCmd()
	err := root.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
