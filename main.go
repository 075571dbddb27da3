package main

import "github.com/probekit/probekit/cmd"

func main() {
	cmd.Execute()
}
