// Command testserver runs the harness servers outside of go test, for
// manual checks against a client under development.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
