package main

import "photofeed-client/cmd"

func main() {
	cmd.Run()
}
