package main

import "github.com/trusthive/trusthive/cmd/trusthive/cmd"

func main() {
	cmd.Execute()
}
