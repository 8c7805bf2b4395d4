package main

import "github.com/xlnnetwork/xln/internal/cli"

func main() {
	cli.Execute()
}
