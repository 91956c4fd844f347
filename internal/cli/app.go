package cli

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dmitrijs2005/pbx/internal/config"
	"github.com/dmitrijs2005/pbx/internal/docstore"
	"github.com/dmitrijs2005/pbx/internal/logging"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// App holds the state of one pbx invocation.
type App struct {
	stdout     io.Writer
	stderr     io.Writer
	httpClient *http.Client
	newS3      func(ctx context.Context, c docstore.S3Config) (docstore.Store, error)
	now        func() time.Time

	configPath string
	verbose    bool

	cfg *config.Config
	log logging.Logger
}

type Option func(*App)

// WithOutput redirects command output and diagnostics.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *App) {
		a.stdout, a.stderr = stdout, stderr
	}
}

// WithHTTPClient sets the client shared by all uploads.
func WithHTTPClient(c *http.Client) Option {
	return func(a *App) {
		a.httpClient = c
	}
}

// WithS3 replaces the constructor of the S3 document source.
func WithS3(fn func(ctx context.Context, c docstore.S3Config) (docstore.Store, error)) Option {
	return func(a *App) {
		a.newS3 = fn
	}
}

func New(opts ...Option) *App {
	a := &App{
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		httpClient: &http.Client{},
		newS3:      defaultS3,
		now:        time.Now,
		log:        logging.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func defaultS3(ctx context.Context, c docstore.S3Config) (docstore.Store, error) {
	client, err := docstore.NewS3Client(ctx, c)
	if err != nil {
		return nil, err
	}
	return docstore.NewS3Store(client), nil
}

// load builds the configuration for cmd: defaults, the JSON file, the
// environment and finally the flags given on the command line.
func (a *App) load(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return usageErrorf("%w", err)
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = a.verbose
	}
	a.cfg = cfg
	a.log = logging.New(a.stderr, cfg.Verbose)
	return nil
}

// Execute runs the command line args and returns the exit status.
func Execute(ctx context.Context, args []string, opts ...Option) int {
	a := New(opts...)
	root := a.Command()
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := root.ExecuteContext(ctx)
	if err != nil {
		io.WriteString(a.stderr, red("Error: "+err.Error())+"\n")
	}
	return ExitCode(err)
}
