package main

import "github.com/oshokin/hexpack/cmd/hexpack/cmd"

func main() {
	cmd.Execute()
}
