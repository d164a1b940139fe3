package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sanisidro/fiscal-api/pkg/blobclient"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	baseURL  string
	timeout  time.Duration
	attempts int
	verbose  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "blobctl",
		Short:         "Talk to the fiscal API blob proxy",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := os.Getenv("FISCAL_API_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}
	root.PersistentFlags().StringVar(&opts.baseURL, "url", defaultURL, "API base URL (env FISCAL_API_URL)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", blobclient.DefaultTimeout, "timeout of a single attempt")
	root.PersistentFlags().IntVar(&opts.attempts, "attempts", blobclient.DefaultAttempts, "attempts per request")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log retries to stderr")

	root.AddCommand(
		newListCmd(opts),
		newHeadCmd(opts),
		newPutCmd(opts),
		newDeleteCmd(opts),
	)
	return root
}

func (o *rootOptions) client() (*blobclient.Client, error) {
	log := zap.NewNop()
	if o.verbose {
		var err error
		log, err = zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}
	return blobclient.New(o.baseURL,
		blobclient.WithTimeout(o.timeout),
		blobclient.WithRetry(o.attempts, blobclient.DefaultBaseDelay),
		blobclient.WithLogger(log),
	), nil
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list [prefix]",
		Short: "List blobs under a prefix",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			result, err := c.List(cmd.Context(), prefix)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

func newHeadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "head <pathname>",
		Short: "Show blob metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			blob, err := c.Head(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), blob)
		},
	}
}

func newPutCmd(opts *rootOptions) *cobra.Command {
	var putOpts blobclient.PutOptions

	cmd := &cobra.Command{
		Use:   "put <pathname> [file]",
		Short: "Upload a file, or stdin when no file is given, replacing any existing blob",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if len(args) == 2 && args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", args[1], err)
				}
				defer f.Close()
				in = f
			}
			body, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("failed to read body: %w", err)
			}

			blob, err := c.Put(cmd.Context(), args[0], string(body), putOpts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), blob)
		},
	}

	cmd.Flags().StringVar(&putOpts.Access, "access", "public", "blob access")
	cmd.Flags().StringVar(&putOpts.ContentType, "content-type", "", "content type of the blob")
	return cmd
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <url-or-pathname>",
		Short: "Delete a blob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			if err := c.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
