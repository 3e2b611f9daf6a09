package main

import "github.com/angelmondragon/forkfinderz-realtime/cmd/notifyctl/command"

func main() {
	command.Execute()
}
