package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/polyxo/gridctl/internal/api"
	"github.com/polyxo/gridctl/internal/format"
)

var partitionsCmd = &cobra.Command{
	Use:   "partition",
	Short: "Inspect cluster partitions",
}

var (
	partitionListPage     int
	partitionListPageSize int
)

var partitionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List partitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		partitions, err := listAllPages(cmd.Context(), partitionListPage, partitionListPageSize,
			func(ctx context.Context, page, pageSize int) (int, []api.Partition, error) {
				return client.ListPartitions(ctx, api.ListQuery{Page: page, PageSize: pageSize})
			})
		if err != nil {
			return err
		}
		if len(partitions) == 0 {
			return nil
		}
		return format.Print(os.Stdout, outputFormat(), partitions, func() format.Table {
			return partitionTable(partitions)
		})
	},
}

var partitionGetCmd = &cobra.Command{
	Use:   "get <partition-id>...",
	Short: "Get details of partitions by id",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		partitions := make([]api.Partition, 0, len(args))
		for _, id := range args {
			p, err := client.GetPartition(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("getting partition %q: %w", id, err)
			}
			partitions = append(partitions, p)
		}
		return format.Print(os.Stdout, outputFormat(), partitions, func() format.Table {
			return partitionTable(partitions)
		})
	},
}

func partitionTable(partitions []api.Partition) format.Table {
	rows := make([][]string, len(partitions))
	for i, p := range partitions {
		rows[i] = []string{
			p.ID,
			strconv.Itoa(p.PodMax),
			strconv.Itoa(p.PodReserved),
			strconv.Itoa(p.PreemptionPercentage),
			strconv.Itoa(p.Priority),
		}
	}
	return format.Table{
		Headers: []string{"ID", "PodMax", "PodReserved", "Preemption%", "Priority"},
		Rows:    rows,
	}
}

func init() {
	partitionListCmd.Flags().IntVar(&partitionListPage, "page", -1, "specific page to get; -1 gets all pages")
	partitionListCmd.Flags().IntVar(&partitionListPageSize, "page-size", 100, "number of elements per page")

	partitionsCmd.AddCommand(partitionListCmd, partitionGetCmd)
	rootCmd.AddCommand(partitionsCmd)
}
