// Package main is the entry point for the launcher: it waits for the
// application's database and other dependencies, then starts the server.
package main

func main() {
	Execute()
}
