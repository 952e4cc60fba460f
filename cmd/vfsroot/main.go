package main

import "github.com/jvs-project/vfsroot/internal/cli"

func main() {
	cli.Execute()
}
