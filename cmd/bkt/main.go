package main

import "github.com/bitbucket-cli/bkt/internal/cli"

func main() {
	cli.Execute()
}
