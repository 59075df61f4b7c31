package main

import "github.com/KaramelBytes/scoreloom-cli/cmd"

func main() {
	cmd.Execute()
}
