package main

import "github.com/studio-ops/studio-erp/cmd/staffctl/cmd"

func main() {
	cmd.Execute()
}
