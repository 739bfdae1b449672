package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"provisionr/pkg/render"
	"provisionr/services/provisioner"
)

func newRenderCommand() *cobra.Command {
	var (
		id      provisioner.Identity
		name    string
		file    string
		vars    map[string]string
		noIssue bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a kickstart for a machine identity",
		Long: "Render a stored template (--template) or a local file (--file) exactly as the\n" +
			"/api/v1/ks endpoint would. Credentials are issued on first use unless --dry-run is set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var body string
			if file != "" {
				raw, err := readInput(cmd.InOrStdin(), file)
				if err != nil {
					return err
				}
				body = string(raw)
			}

			return withStack(cmd.Context(), cmd.ErrOrStderr(), stackOptions{connectBus: !noIssue}, func(ctx context.Context, s *stack) error {
				pipeline := s.pipeline
				if noIssue {
					pipeline = provisioner.NewPipeline(dryRunConfig{s.config}, s.ledger, s.hasher, s.templates, s.log)
				}

				var (
					out string
					err error
				)
				if file != "" {
					out, err = pipeline.RenderString(ctx, id, body, vars)
				} else {
					out, err = pipeline.Render(ctx, id, name, vars)
				}
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), out)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&id.MAC, "mac", "", "Machine MAC address")
	cmd.Flags().StringVar(&id.UUID, "uuid", "", "Machine SMBIOS UUID")
	cmd.Flags().StringVar(&id.Serial, "serial", "", "Machine serial number")
	cmd.Flags().StringVarP(&name, "template", "t", render.DefaultName, "Stored template name")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Render this template file instead of a stored one, - for stdin")
	cmd.Flags().StringToStringVar(&vars, "var", nil, "Extra template variable key=value (repeatable)")
	cmd.Flags().BoolVar(&noIssue, "dry-run", false, "Do not issue or read credentials")
	cmd.MarkFlagsMutuallyExclusive("template", "file")
	return cmd
}

// dryRunConfig reports credential issuance as disabled regardless of the stored setting.
type dryRunConfig struct {
	provisioner.ConfigReader
}

func (c dryRunConfig) Read(ctx context.Context) (provisioner.GlobalConfig, error) {
	cfg, err := c.ConfigReader.Read(ctx)
	cfg.IssueCredentials = false
	return cfg, err
}
