// Squeeze - token-aware compression for structured prompts
package main

import (
	"os"

	"github.com/HartBrook/squeeze/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
