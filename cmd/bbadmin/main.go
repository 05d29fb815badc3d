// Command bbadmin manages ByteBite accounts and storage from the shell.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(&adminApp{out: os.Stdout}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
