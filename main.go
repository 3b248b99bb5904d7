package main

import "github.com/wasabi0522/sokuho/cmd"

func main() {
	cmd.Execute()
}
