package main

import "archive-auditor/cmd"

func main() {
	cmd.Execute()
}
