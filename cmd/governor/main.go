package main

import "github.com/siva-ai/governor/cmd/governor/cmd"

func main() {
	cmd.Execute()
}
