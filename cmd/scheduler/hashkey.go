package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/meeting-finder/internal/application"
)

// newHashKeyCmd prints the argon2id hash stored in SCHEDULER_API_KEYS for a
// secret. The secret is read from stdin when no argument is given.
func newHashKeyCmd() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "hash-key [secret]",
		Short: "Hash an API key secret for SCHEDULER_API_KEYS",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var secret string
			if len(args) == 1 {
				secret = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read secret: %w", err)
				}
				secret = line
			}
			secret = strings.TrimSpace(secret)
			if secret == "" {
				return fmt.Errorf("secret must not be empty")
			}

			hash, err := application.CreateKeyHash(secret, application.DefaultArgon2idParams)
			if err != nil {
				return err
			}
			if owner != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", owner, hash)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "prefix the output with owner= for SCHEDULER_API_KEYS")
	return cmd
}
