package cli

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/pbx/internal/common"
	"github.com/dmitrijs2005/pbx/internal/upload"
	"github.com/spf13/cobra"
)

// documentsFlags are shared by every documents subcommand.
type documentsFlags struct {
	inboxID  string
	routerID string
	keyFile  string
	apiKey   string
}

type uploadFlags struct {
	recursive        bool
	dryRun           bool
	skipUploaded     bool
	stopOnFirstFail  bool
	noJournal        bool
	tagTypeID        string
	documentClass    string
	documentSubclass string
	maxOutstanding   int
	attempts         int
	interval         time.Duration
	tokenExpiry      time.Duration
}

func (a *App) documentsCommand() *cobra.Command {
	df := &documentsFlags{}
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "Manage documents",
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&df.inboxID, "inbox-id", "", "Inbox to upload to")
	pf.StringVar(&df.routerID, "router-id", "", "Router to upload to")
	pf.StringVarP(&df.keyFile, "key-file", "k", "", "Path to the service account key file (default $"+common.EnvKeyFile+")")
	pf.StringVarP(&df.apiKey, "api-key", "a", "", "API key (default $"+common.EnvAPIKey+")")
	cmd.MarkFlagsMutuallyExclusive("inbox-id", "router-id")

	cmd.AddCommand(a.uploadCommand(df))
	cmd.AddCommand(a.historyCommand())
	return cmd
}

func (a *App) uploadCommand(df *documentsFlags) *cobra.Command {
	uf := &uploadFlags{}
	cmd := &cobra.Command{
		Use:   "upload <document-path>",
		Short: "Upload the documents matching a path pattern",
		Long: `Upload every document matching <document-path>.

The path may contain * and ? wildcards and {name} placeholders, e.g.
"scans/{document_class}/*.pdf". Placeholders named inbox_id, router_id,
tag_type_id, document_class or document_subclass set that value per file.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(1)(cmd, args); err != nil {
				return &usageError{err: err}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			if err := a.applyUploadFlags(cmd, df, uf); err != nil {
				return err
			}
			return a.runUpload(cmd.Context(), args[0], df, uf)
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&uf.recursive, "recursive", "r", false, "Match files in subdirectories too")
	f.StringVar(&uf.tagTypeID, "tag-type-id", "", "Tag type of the documents")
	f.StringVar(&uf.documentClass, "document-class", "", "Document class")
	f.StringVar(&uf.documentSubclass, "document-subclass", "", "Document subclass")
	f.BoolVar(&uf.dryRun, "dry-run", false, "Build the requests without sending them")
	f.BoolVar(&uf.skipUploaded, "skip-uploaded", false, "Skip documents the journal lists as uploaded to the same target")
	f.BoolVar(&uf.stopOnFirstFail, "stop-on-first-fail", false, "Start no more uploads once one has failed")
	f.BoolVar(&uf.noJournal, "no-journal", false, "Do not record this run in the journal")
	f.IntVar(&uf.maxOutstanding, "max-outstanding", 0, "Maximum uploads in flight")
	f.IntVar(&uf.attempts, "attempts", 0, "Maximum attempts per document")
	f.DurationVar(&uf.interval, "interval", 0, "Minimum time between two request starts")
	f.DurationVar(&uf.tokenExpiry, "token-expiry", 0, "Lifetime of the access token")
	return cmd
}

// applyUploadFlags overlays the flags given on the command line onto the
// loaded configuration.
func (a *App) applyUploadFlags(cmd *cobra.Command, df *documentsFlags, uf *uploadFlags) error {
	flags := cmd.Flags()
	if flags.Changed("key-file") {
		a.cfg.KeyFile = df.keyFile
	}
	if flags.Changed("api-key") {
		a.cfg.APIKey = df.apiKey
	}
	if flags.Changed("stop-on-first-fail") {
		a.cfg.StopOnFirstFail = uf.stopOnFirstFail
	}
	if flags.Changed("max-outstanding") {
		if uf.maxOutstanding < 1 {
			return usageErrorf("--max-outstanding must be at least 1, got %d", uf.maxOutstanding)
		}
		a.cfg.MaxOutstanding = uf.maxOutstanding
	}
	if flags.Changed("attempts") {
		if uf.attempts < 1 {
			return usageErrorf("--attempts must be at least 1, got %d", uf.attempts)
		}
		a.cfg.Attempts = uf.attempts
	}
	if flags.Changed("interval") {
		a.cfg.Interval = uf.interval
	}
	if flags.Changed("token-expiry") {
		a.cfg.TokenExpiry = uf.tokenExpiry
	}
	if uf.noJournal {
		a.cfg.JournalPath = ""
	}
	return nil
}

func baseParams(df *documentsFlags, uf *uploadFlags) upload.Params {
	return upload.Params{
		Target: upload.Target{InboxID: df.inboxID, RouterID: df.routerID},
		Metadata: upload.Metadata{
			TagTypeID:        uf.tagTypeID,
			DocumentClass:    uf.documentClass,
			DocumentSubclass: uf.documentSubclass,
		},
	}
}

func (a *App) checkCredentials() error {
	if a.cfg.KeyFile == "" || a.cfg.APIKey == "" {
		return usageErrorf("the %s and %s environment variables must be set or provided during command invocation",
			common.EnvKeyFile, common.EnvAPIKey)
	}
	return nil
}

func (a *App) historyCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent upload runs from the journal",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.NoArgs(cmd, args); err != nil {
				return &usageError{err: err}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			if a.cfg.JournalPath == "" {
				return fmt.Errorf("the journal is disabled")
			}
			return a.runHistory(cmd.Context(), limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show, 0 for all")
	return cmd
}
