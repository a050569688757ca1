package main

import "github.com/fkoehler/gearharvest/cmd"

func main() {
	cmd.Execute()
}
