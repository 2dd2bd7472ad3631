package main

import "remote-screen/cmd/remote-screen/cmd"

// @title Remote Screen API
// @version 1.0
// @description Companion transaction verifier bridge for a UI host

// @host localhost:8080
// @BasePath /
func main() {
	cmd.Execute()
}
