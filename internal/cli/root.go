// Package cli implements the checkreview command, a terminal client for
// reviewing and submitting scanned check batches.
package cli

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"check-review-gateway/internal/checkapi"
)

const defaultServer = "http://localhost:5000"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	client *checkapi.Client
	logger zerolog.Logger
}

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	var (
		server  string
		timeout time.Duration
		debug   bool
	)
	a := &app{logger: zerolog.Nop()}

	cmd := &cobra.Command{
		Use:   "checkreview",
		Short: "Review scanned check batches and submit them to HubSpot",
		Long: `checkreview talks to the check processing service: it uploads scanned PDFs,
follows their processing, and walks a batch through review and submission.

Submitting a batch whose total does not match its expected amount asks for
confirmation first; --yes answers it up front.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := zerolog.WarnLevel
			if debug {
				level = zerolog.DebugLevel
			}
			a.logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}).
				Level(level).
				With().Timestamp().Logger()
			a.client = checkapi.NewClient(strings.TrimRight(server, "/"), checkapi.WithTimeout(timeout))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&server, "server", envOr("UPSTREAM_BASE_URL", defaultServer), "check processing service URL")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", checkapi.DefaultTimeout, "request timeout")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		newUploadCmd(a),
		newStatusCmd(a),
		newBatchesCmd(a),
		newReviewCmd(a),
		newSetCmd(a),
		newContactsCmd(a),
		newSubmitCmd(a),
	)
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
