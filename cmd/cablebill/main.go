// Command cablebill is the operator CLI: it serves the API, runs the
// scheduler, bills a period on demand and manages schema and users.
package main

func main() {
	Execute()
}
