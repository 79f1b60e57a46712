// Command crm-pipeline runs the CRM record pipeline outside the functions
// runtime: as a plain HTTP server, as a one-shot invocation, or to mint the
// Gmail refresh token the notifier needs.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
