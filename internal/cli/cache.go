package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/areamap/backend/internal/cache/redis"
)

func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the embedding cache",
	}

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every cached embedding",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd, cc)
			defer cancel()

			rc := cc.Config.Redis
			client, err := redis.NewClient(ctx, rc.Host, rc.Port, rc.Password, rc.DB, time.Duration(rc.TTLSec)*time.Second)
			if err != nil {
				return err
			}
			defer client.Close()

			n, err := client.Purge(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d cached embeddings\n", n)
			return nil
		},
	}

	cmd.AddCommand(purgeCmd)
	return cmd
}
