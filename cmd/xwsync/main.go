package main

import "github.com/mcoot/xwsync/internal/cli"

func main() {
	cli.Execute()
}
