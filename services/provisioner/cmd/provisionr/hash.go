package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"provisionr/pkg/passphrase"
	"provisionr/pkg/shacrypt"
)

func newHashCommand() *cobra.Command {
	var verify string

	cmd := &cobra.Command{
		Use:   "hash [PLAINTEXT]",
		Short: "Produce a SHA-512 crypt hash, or check one with --verify",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plaintext, err := plaintextArg(cmd, args)
			if err != nil {
				return err
			}
			h := shacrypt.New()

			if verify != "" {
				if err := h.Verify(verify, plaintext); err != nil {
					if errors.Is(err, shacrypt.ErrMismatch) {
						return errors.New("hash does not match")
					}
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return err
			}

			hashed, err := h.Hash(plaintext)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hashed)
			return err
		},
	}

	cmd.Flags().StringVar(&verify, "verify", "", "Existing $6$ hash to check the plaintext against")
	return cmd
}

// plaintextArg takes the plaintext from the first argument or the first line of stdin.
func plaintextArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("read plaintext: %w", err)
		}
		return "", errors.New("empty plaintext")
	}
	return line, nil
}

func newPassphraseCommand() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "passphrase",
		Short: "Generate passphrases in the format used for issued credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return fmt.Errorf("invalid --count %d", count)
			}
			gen := passphrase.New()
			for range count {
				p, err := gen.Generate()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of passphrases to print")
	return cmd
}
