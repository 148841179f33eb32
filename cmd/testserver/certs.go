package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/testserver/security/tlstest"
)

var certsDir string

var certsCmd = &cobra.Command{
	Use:   "certs",
	Short: "Write a throwaway CA and localhost certificate",
	Long: `Write a CA, a certificate for localhost/127.0.0.1/::1 signed by it, the
private key in plain and password-encrypted form, into a directory.`,
	Example: `  testserver certs --dir ./certs
  testserver serve --cert ./certs/cert.pem --key ./certs/key.pem --ca ./certs/ca.pem`,
	Args: cobra.NoArgs,
	RunE: runCerts,
}

func init() {
	rootCmd.AddCommand(certsCmd)
	certsCmd.Flags().StringVarP(&certsDir, "dir", "d", ".", "Output directory")
}

func runCerts(cmd *cobra.Command, args []string) error {
	if err := os.MkdirAll(certsDir, 0o755); err != nil {
		return err
	}
	certs, err := tlstest.Generate(certsDir)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ca:            %s\n", certs.CAFile)
	fmt.Fprintf(out, "cert:          %s\n", certs.CertFile)
	fmt.Fprintf(out, "key:           %s\n", certs.KeyFile)
	fmt.Fprintf(out, "encrypted key: %s (password %q)\n", certs.EncryptedKeyFile, certs.KeyPassword)
	return nil
}
