package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/testserver/bootstrap"
	"github.com/kbukum/testserver/config"
	"github.com/kbukum/testserver/fixture"
	"github.com/kbukum/testserver/logger"
	"github.com/kbukum/testserver/observability"
	"github.com/kbukum/testserver/security/tlstest"
)

// Ports used when neither the config nor a flag picks one.
const (
	defaultHTTPPort  = 8000
	defaultHTTPSPort = 8001
)

type serveFlags struct {
	configFile  string
	envFile     string
	host        string
	httpPort    int
	httpsPort   int
	certFile    string
	keyFile     string
	keyPassword string
	caFile      string
	h2c         bool
}

var serveOpts serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and HTTPS servers until interrupted",
	Long: `Run the HTTP and HTTPS servers in the foreground.

Configuration comes from config.yml, .env and TESTSERVER_* variables;
flags override it. Without --cert a throwaway CA and certificate are
generated for the HTTPS server and removed on exit.

SIGHUP restarts both servers on their current ports. SIGINT and SIGTERM
stop them.`,
	Example: `  testserver serve
  testserver serve --http-port 9000 --https-port 9001 --h2c
  testserver serve --cert cert.pem --key key.encrypted.pem --key-password password`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadServeConfig(cmd, serveOpts)
		if err != nil {
			return err
		}
		return runServe(cmd.Context(), cfg, serveOpts.caFile)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	bindServeFlags(serveCmd, &serveOpts)
}

func bindServeFlags(cmd *cobra.Command, o *serveFlags) {
	f := cmd.Flags()
	f.StringVarP(&o.configFile, "config", "c", "", "Path to config.yml")
	f.StringVar(&o.envFile, "env-file", "", "Path to a .env file")
	f.StringVar(&o.host, "host", "127.0.0.1", "Interface both servers bind to")
	f.IntVar(&o.httpPort, "http-port", defaultHTTPPort, "HTTP port (0 picks a free port)")
	f.IntVar(&o.httpsPort, "https-port", defaultHTTPSPort, "HTTPS port (0 picks a free port)")
	f.StringVar(&o.certFile, "cert", "", "PEM certificate for the HTTPS server")
	f.StringVar(&o.keyFile, "key", "", "PEM private key, optionally encrypted")
	f.StringVar(&o.keyPassword, "key-password", "", "Password for an encrypted --key")
	f.StringVar(&o.caFile, "ca", "", "CA bundle reported for clients to trust")
	f.BoolVar(&o.h2c, "h2c", false, "Accept cleartext HTTP/2 on the HTTP server")
	cmd.MarkFlagsRequiredTogether("cert", "key")
}

// loadServeConfig layers flags over the loaded configuration. A flag wins
// when it was given explicitly or when the configuration left the value
// unset.
func loadServeConfig(cmd *cobra.Command, opts serveFlags) (*fixture.Config, error) {
	var loaderOpts []config.LoaderOption
	if opts.configFile != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(opts.configFile))
	}
	if opts.envFile != "" {
		loaderOpts = append(loaderOpts, config.WithEnvFile(opts.envFile))
	}
	cfg, err := fixture.Load(loaderOpts...)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.HTTP.Host = opts.host
		cfg.HTTPS.Host = opts.host
	}
	if flags.Changed("http-port") || cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = opts.httpPort
	}
	if flags.Changed("https-port") || cfg.HTTPS.Port == 0 {
		cfg.HTTPS.Port = opts.httpsPort
	}
	if flags.Changed("h2c") {
		cfg.HTTP.H2C = opts.h2c
	}
	if opts.certFile != "" {
		cfg.HTTPS.TLS.CertFile = opts.certFile
		cfg.HTTPS.TLS.KeyFile = opts.keyFile
	}
	if opts.keyPassword != "" {
		cfg.HTTPS.TLS.KeyPassword = opts.keyPassword
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(ctx context.Context, cfg *fixture.Config, caFile string) error {
	log := cfg.Logger()

	shutdownTelemetry, err := observability.Setup(ctx, cfg.Observability, log)
	if err != nil {
		return err
	}

	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			log.Warn("Telemetry shutdown incomplete", logger.ErrorFields("telemetry", err))
		}
	}()

	httpsCfg := cfg.HTTPS
	if !httpsCfg.IsTLS() {
		dir, err := os.MkdirTemp("", "testserver-certs-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)

		certs, err := tlstest.Generate(dir)
		if err != nil {
			return err
		}
		httpsCfg.TLS.CertFile = certs.CertFile
		httpsCfg.TLS.KeyFile = certs.KeyFile
		caFile = certs.CAFile
		log.Info("Generated certificates", logger.Fields("ca", caFile))
	}

	httpSrv, err := fixture.Build(cfg, cfg.HTTP, fixture.WithLogger(log))
	if err != nil {
		return err
	}
	httpsSrv, err := fixture.Build(cfg, httpsCfg, fixture.WithLogger(log), fixture.WithCAFile(caFile))
	if err != nil {
		return err
	}
	app := bootstrap.NewApp(cfg.Name, cfg.Version, bootstrap.WithLogger(log))
	for _, s := range []*fixture.Server{httpSrv, httpsSrv} {
		if err := app.RegisterComponent(s); err != nil {
			return err
		}
	}

	return app.Run(ctx)
}
