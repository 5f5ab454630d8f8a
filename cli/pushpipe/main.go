package main

import (
	"os"

	pushpipecmder "github.com/pushpipe/pushpipe/cmd/pushpipe"
)

func main() {
	cmd := pushpipecmder.NewPushpipeCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
