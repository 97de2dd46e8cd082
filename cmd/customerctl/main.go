package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand(newApp(os.Stdin, os.Stdout)).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
