package main

import "github.com/verdictlabs/verdict/cmd/verdictd/cmd"

func main() {
	cmd.Execute()
}
