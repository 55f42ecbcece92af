package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quizwatch/quizwatch/internal/crypto"
)

// secretKeyEnv holds the passphrase for enc: config values
const secretKeyEnv = "QUIZWATCH_SECRET_KEY"

func newEncryptCmd(_ *rootOptions) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "encrypt [value]",
		Short: "Encrypt a secret for use as an enc: config value",
		Long: `Encrypts a secret (bot token, webhook URL, API credentials) with the
passphrase from --key or ` + secretKeyEnv + `. The value is read from stdin
when no argument is given. Paste the printed enc: string into the config.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				key = os.Getenv(secretKeyEnv)
			}
			if key == "" {
				return errors.New("no passphrase: pass --key or set " + secretKeyEnv)
			}

			var value string
			if len(args) == 1 {
				value = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading value from stdin: %w", err)
				}
				value = strings.TrimRight(line, "\r\n")
			}
			if value == "" {
				return errors.New("empty value")
			}
			if crypto.IsEncrypted(value) {
				return errors.New("value is already encrypted")
			}

			sealed, err := crypto.NewEncryptor(key).Seal(value)
			if err != nil {
				return fmt.Errorf("encrypting: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), sealed)
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Passphrase (default: $"+secretKeyEnv+")")

	return cmd
}
