package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"provisionr/pkg/bus"
	"provisionr/services/provisioner/internal/config"
)

func newEventsCommand() *cobra.Command {
	var (
		subject string
		durable string
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow provisionr events on NATS and print them as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.NATSURL == "" {
				return errors.New("NATS_URL is required")
			}
			log, err := commandLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			b, err := bus.New(cfg.NATSURL)
			if err != nil {
				return fmt.Errorf("connect nats: %w", err)
			}
			defer b.Close()
			if err := b.EnsureStream(ctx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			sub, err := b.Subscribe(ctx, subject, durable, func(_ context.Context, subj string, data []byte) error {
				_, err := fmt.Fprintf(out, "%s %s\n", subj, data)
				return err
			})
			if err != nil {
				return fmt.Errorf("subscribe %s: %w", subject, err)
			}
			defer sub.Close()

			log.Info().Str("subject", subject).Msg("following events")
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", bus.SubjectPrefix+">", "Subject filter")
	cmd.Flags().StringVar(&durable, "durable", "", "Durable consumer name; empty for an ephemeral consumer")
	return cmd
}
