package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "testserver",
	Short: "HTTP and HTTPS test servers with restart on demand",
	Long: `testserver starts a plain HTTP server and an HTTP/2 capable HTTPS server
serving the harness routes (/status/{code}, /echo, /echo_headers, ...).

Send SIGHUP to make both servers rebind on the same ports.`,
	SilenceUsage: true,
}
