package main

import (
	"encoding/json"

	job "github.com/maheshrc27/crosspost/internal/jobs"
	"github.com/spf13/cobra"
)

func newRunOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run-once",
		Short: "Run a single publish pass and print its report",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			b, err := openBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer b.close()

			c, err := newCore(cfg, b)
			if err != nil {
				return err
			}
			publish := job.NewPublishJob(c.selector, c.dispatcher,
				job.WithConcurrency(cfg.DispatchConcurrency),
				job.WithStaleAfter(b.store.Posts, cfg.StaleProcessingAfter),
			)

			report, passErr := publish.RunOnePass(ctx)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			return passErr
		},
	}
}
