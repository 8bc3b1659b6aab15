package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"intrusion-worker-go/internal/config"
	"intrusion-worker-go/internal/services"
)

// withStores opens the database for an administrative command and closes it afterwards.
func withStores(cfg *config.Config, fn func(ctx context.Context, sc *services.ServiceContainer) error) error {
	sc, err := services.OpenStores(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = sc.Shutdown(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return fn(ctx, sc)
}

func galleryCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "Inspect the known-face gallery",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List known identities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cfg, func(ctx context.Context, sc *services.ServiceContainer) error {
				identities, err := sc.Gallery.List(ctx)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tLABEL\tEMBEDDINGS\tCREATED")
				for _, identity := range identities {
					s := identity.Summary()
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.ID, s.Label, s.EmbeddingCount, s.CreatedAt.Format(time.RFC3339))
				}
				return w.Flush()
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a known identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cfg, func(ctx context.Context, sc *services.ServiceContainer) error {
				if err := sc.Gallery.Remove(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
				return nil
			})
		},
	})

	return cmd
}

func logsCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Inspect the intrusion log",
	}

	var page, limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List intrusion log entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cfg, func(ctx context.Context, sc *services.ServiceContainer) error {
				result, err := sc.Logs.Page(ctx, page, limit)
				if err != nil {
					return err
				}
				return printLogPage(cmd.OutOrStdout(), result.Page, result.TotalPages, result.TotalCount, func(w io.Writer) {
					for _, entry := range result.Entries {
						fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", entry.ID, entry.Timestamp.Format(time.RFC3339), entry.CameraName, len(entry.FaceImage))
					}
				})
			})
		},
	}
	listCmd.Flags().IntVar(&page, "page", 1, "Page number, starting at 1")
	listCmd.Flags().IntVar(&limit, "limit", cfg.LogPageSizeDefault, "Entries per page")
	cmd.AddCommand(listCmd)

	return cmd
}

func printLogPage(out io.Writer, page, totalPages int, total int64, rows func(io.Writer)) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIMESTAMP\tCAMERA\tIMAGE BYTES")
	rows(w)
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "page %d of %d (%d entries)\n", page, totalPages, total)
	return err
}

func settingsCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alert-email [email]",
		Short: "Show or set the alert recipient. An empty string clears it.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cfg, func(ctx context.Context, sc *services.ServiceContainer) error {
				if len(args) == 1 {
					if err := sc.Settings.SetAlertEmail(ctx, args[0]); err != nil {
						return err
					}
				}
				email, err := sc.Settings.AlertEmail(ctx)
				if err != nil {
					return err
				}
				if email == "" {
					email = "(not set)"
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), email)
				return err
			})
		},
	}
	return cmd
}
