package main

import (
	"fmt"
	"os"

	"github.com/keneth-urbizagastegui/vitalband"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", vitalband.UserMessage(err))
		os.Exit(1)
	}
}
