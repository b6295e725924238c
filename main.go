package main

import "github.com/tanq16/fetcher/cmd"

func main() {
	cmd.Execute()
}
