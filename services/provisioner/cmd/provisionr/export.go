package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"provisionr/pkg/seal"
)

const envAgeSecretKey = "AGE_SECRET_KEY"

func newExportCommand() *cobra.Command {
	var (
		output     string
		compress   bool
		recipients []string
		s3Key      string
		presignTTL time.Duration
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every issued credential as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := seal.Options{Compress: compress, Recipients: recipients}
			return withStack(cmd.Context(), cmd.ErrOrStderr(), stackOptions{}, func(ctx context.Context, s *stack) error {
				var buf bytes.Buffer
				n, err := writeSealedExport(ctx, s.exporter, &buf, opts)
				if err != nil {
					return err
				}

				if s3Key != "" {
					return uploadExport(ctx, cmd.OutOrStdout(), s, s3Key, buf.Bytes(), presignTTL)
				}

				if output == "" || output == "-" {
					_, err := cmd.OutOrStdout().Write(buf.Bytes())
					return err
				}
				if err := os.WriteFile(output, buf.Bytes(), 0o600); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
				s.log.Info().Int("records", n).Str("path", output).Msg("export written")
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "Destination file, - for stdout")
	cmd.Flags().BoolVar(&compress, "zstd", false, "Compress the export with zstd")
	cmd.Flags().StringSliceVar(&recipients, "age-recipient", nil, "Encrypt the export to this age recipient (repeatable)")
	cmd.Flags().StringVar(&s3Key, "s3-key", "", "Upload to S3_BUCKET under this key instead of writing locally")
	cmd.Flags().DurationVar(&presignTTL, "presign-ttl", 15*time.Minute, "Lifetime of the download URL printed after an S3 upload")
	return cmd
}

type csvWriter interface {
	WriteCSV(ctx context.Context, w io.Writer) (int, error)
}

func writeSealedExport(ctx context.Context, exporter csvWriter, dst io.Writer, opts seal.Options) (int, error) {
	w, err := seal.NewWriter(dst, opts)
	if err != nil {
		return 0, err
	}
	n, err := exporter.WriteCSV(ctx, w)
	if err != nil {
		_ = w.Close()
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("seal export: %w", err)
	}
	return n, nil
}

func uploadExport(ctx context.Context, out io.Writer, s *stack, key string, data []byte, ttl time.Duration) error {
	if s.s3 == nil {
		return errors.New("--s3-key requires S3_ENDPOINT")
	}
	if s.cfg.ExportBucket == "" {
		return errors.New("--s3-key requires S3_BUCKET")
	}
	if err := s.s3.PutBytes(ctx, s.cfg.ExportBucket, key, data); err != nil {
		return fmt.Errorf("upload export: %w", err)
	}
	url, err := s.s3.PresignGet(ctx, s.cfg.ExportBucket, key, ttl)
	if err != nil {
		return fmt.Errorf("presign export: %w", err)
	}
	s.log.Info().Str("bucket", s.cfg.ExportBucket).Str("key", key).Int("bytes", len(data)).Msg("export uploaded")
	_, err = fmt.Fprintln(out, url)
	return err
}

func newUnsealCommand() *cobra.Command {
	var (
		identityFile string
		compressed   bool
	)

	cmd := &cobra.Command{
		Use:   "unseal FILE",
		Short: "Decrypt and decompress an export produced with --age-recipient or --zstd",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var keys []string
			switch {
			case identityFile != "":
				raw, err := os.ReadFile(identityFile)
				if err != nil {
					return err
				}
				keys = parseIdentityFile(string(raw))
			case os.Getenv(envAgeSecretKey) != "":
				keys = []string{os.Getenv(envAgeSecretKey)}
			}
			if !compressed && strings.HasSuffix(strings.TrimSuffix(args[0], ".age"), ".zst") {
				compressed = true
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			r, err := seal.Open(f, compressed, keys...)
			if err != nil {
				return err
			}
			defer r.Close()
			_, err = io.Copy(cmd.OutOrStdout(), r)
			return err
		},
	}

	cmd.Flags().StringVarP(&identityFile, "identity", "i", "", "age identity file (defaults to "+envAgeSecretKey+")")
	cmd.Flags().BoolVar(&compressed, "zstd", false, "Input is zstd compressed")
	return cmd
}

// parseIdentityFile returns the secret keys in an age identity file, skipping comments.
func parseIdentityFile(raw string) []string {
	var keys []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keys = append(keys, line)
	}
	return keys
}
