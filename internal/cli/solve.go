package cli

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"math-challenge-service/internal/client"
)

// NewSolveCmd builds the CLI subcommand that runs the solver client against
// a challenge server and prints the flag.
func NewSolveCmd(port *string) *cobra.Command {
	var (
		host    string
		name    string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Connect to a challenge server, answer everything, print the flag",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return errors.New("a --name is required")
			}
			logger := configureLogger("debug")
			solver := &client.Solver{
				Addr:    host + ":" + *port,
				Name:    name,
				Timeout: timeout,
				Logger:  logger,
			}
			issued, err := solver.Run(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "solve failed")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "FLAG: %s\n", issued)
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "localhost", "challenge server host")
	cmd.Flags().StringVar(&name, "name", "", "name to declare in the hello line")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "dial timeout")
	return cmd
}
