// Command aist analyzes AI coding-assistant session logs and reports where
// the time went.
package main

func main() {
	Execute()
}
