package main

import "parastream/cmd"

func main() {
	cmd.Execute()
}
