package main

import "github.com/deploymenttheory/go-fluxdisk/cmd"

func main() {
	cmd.Execute()
}
