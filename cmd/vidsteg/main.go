package main

import "github.com/opd-ai/vidsteg/cmd/vidsteg/cmd"

func main() {
	cmd.Execute()
}
