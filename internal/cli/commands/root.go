package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-iacgen"
	"github.com/goliatone/go-iacgen/internal/cli/config"
	"github.com/goliatone/go-iacgen/internal/logging"
	"github.com/goliatone/go-iacgen/pkg/catalog"
	"github.com/goliatone/go-iacgen/pkg/client"
	pkgopenapi "github.com/goliatone/go-iacgen/pkg/openapi"
	"github.com/goliatone/go-iacgen/pkg/session"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// ErrReported marks a failure that has already been shown to the user.
var ErrReported = errors.New("failure already reported")

// app carries what every subcommand needs once flags and configuration are
// resolved.
type app struct {
	configFile string
	envFile    string
	logLevel   string
	noColor    bool

	cfg    *config.Config
	logger *zap.Logger
	http   *http.Client
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "iacgen",
		Short: "Generate infrastructure-as-code artifacts from forms",
		Long: color.CyanString(`iacgen - infrastructure-as-code generator client

Fill in a form for a tool (Docker, Grafana datasources, Terraform, Helm,
Ansible, CI pipelines), send it to the generation service and save the
artifact it returns.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default ./iacgen.yaml)")
	flags.StringVar(&a.envFile, "env-file", "", "dotenv file loaded before the config (default ./.env)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newListCommand(a))
	rootCmd.AddCommand(newShowCommand(a))
	rootCmd.AddCommand(newGenerateCommand(a))
	rootCmd.AddCommand(newLoginCommand(a))
	rootCmd.AddCommand(newLogoutCommand(a))
	rootCmd.AddCommand(newWhoamiCommand(a))

	return rootCmd
}

func (a *app) setup() error {
	cfg, err := config.Load(config.LoadOptions{ConfigFile: a.configFile, EnvFile: a.envFile})
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	if a.noColor {
		color.NoColor = true
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) registry(ctx context.Context) (*catalog.Registry, error) {
	opts := []iacgen.Option{
		iacgen.WithLogger(a.logger.Named("catalog")),
		iacgen.WithCacheTTL(a.cfg.OptionsTTL),
	}
	if dir := a.cfg.CatalogDir; dir != "" {
		opts = append(opts, iacgen.WithCatalogFS(os.DirFS(dir)))
	}
	if src := strings.TrimSpace(a.cfg.OpenAPISource); src != "" {
		if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
			opts = append(opts, iacgen.WithOpenAPISource(pkgopenapi.SourceFromURL(src)))
		} else {
			opts = append(opts, iacgen.WithOpenAPISource(pkgopenapi.SourceFromFile(src)))
		}
	}
	if a.http != nil {
		opts = append(opts, iacgen.WithHTTPClient(a.http))
	}
	return iacgen.Open(ctx, opts...)
}

func (a *app) sessions() *session.Manager {
	path := a.cfg.Auth.SessionFile
	if path == "" {
		path = session.DefaultPath()
	}
	return session.NewManager(session.Config{
		ClientID:      a.cfg.Auth.ClientID,
		DeviceAuthURL: a.cfg.Auth.DeviceURL,
		TokenURL:      a.cfg.Auth.TokenURL,
		Scopes:        a.cfg.Auth.Scopes,
	}, session.NewFileStore(path), session.WithLogger(a.logger.Named("session")), session.WithHTTPClient(a.http))
}

// client builds the API client. With an identity provider configured the
// stored session's token is attached; a missing session is an error only
// when auth.required is set.
func (a *app) client(ctx context.Context) (*client.Client, error) {
	opts := []client.Option{
		client.WithBaseURL(client.ServiceGenerator, a.cfg.GeneratorURL),
		client.WithBaseURL(client.ServiceTemplates, a.cfg.TemplatesURL),
		client.WithTimeout(a.cfg.Timeout),
		client.WithUserAgent("iacgen/" + Version),
		client.WithLogger(a.logger.Named("client")),
		client.WithHTTPClient(a.http),
	}

	if a.cfg.Auth.Enabled() {
		manager := a.sessions()
		_, err := manager.Init(ctx)
		switch {
		case err == nil:
			hc, err := manager.HTTPClient(ctx)
			if err != nil {
				return nil, err
			}
			opts = append(opts, client.WithHTTPClient(hc))
		case errors.Is(err, session.ErrUnauthenticated):
			if a.cfg.Auth.Required {
				return nil, fmt.Errorf("%w; run `iacgen login` first", err)
			}
		default:
			return nil, err
		}
	}
	return client.New(opts...)
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			titleColor := color.New(color.FgCyan, color.Bold)
			if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
				titleColor.DisableColor()
			}
			out := cmd.OutOrStdout()

			titleColor.Fprint(out, "iacgen version: ")
			fmt.Fprintln(out, Version)
			titleColor.Fprint(out, "Git commit: ")
			fmt.Fprintln(out, GitCommit)
			titleColor.Fprint(out, "Build date: ")
			fmt.Fprintln(out, BuildDate)
		},
	}
}

// Execute runs the root command
func Execute() error {
	return run(NewRootCommand(), os.Args[1:], os.Stderr)
}

func run(rootCmd *cobra.Command, args []string, stderr io.Writer) error {
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, ErrReported) {
			errorColor := color.New(color.FgRed, color.Bold)
			errorColor.Fprintf(stderr, "Error: %v\n", err)
		}
		return err
	}
	return nil
}
