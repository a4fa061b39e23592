package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"github.com/polyxo/gridctl/internal/api"
	"github.com/polyxo/gridctl/internal/format"
	"github.com/polyxo/gridctl/internal/tui"
	"github.com/polyxo/gridctl/internal/watch"
)

var resultsCmd = &cobra.Command{
	Use:   "result",
	Short: "Manage cluster results",
}

// ── result list ───────────────────────────────────────────────────────────────

var (
	resultListFilter   string
	resultListSortBy   string
	resultListSortDir  string
	resultListPage     int
	resultListPageSize int
)

var resultListCmd = &cobra.Command{
	Use:   "list",
	Short: "List results",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		results, err := listAllPages(cmd.Context(), resultListPage, resultListPageSize,
			func(ctx context.Context, page, pageSize int) (int, []api.Result, error) {
				return client.ListResults(ctx, api.ListQuery{
					Filter:        resultListFilter,
					Page:          page,
					PageSize:      pageSize,
					SortBy:        resultListSortBy,
					SortDirection: api.SortDirection(resultListSortDir),
				})
			})
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return nil
		}
		return format.Print(os.Stdout, outputFormat(), results, func() format.Table {
			return resultTable(results)
		})
	},
}

// ── result get ────────────────────────────────────────────────────────────────

var resultGetCmd = &cobra.Command{
	Use:   "get <result-id>...",
	Short: "Get a detailed overview of results by id",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		results := make([]api.Result, len(args))
		g, ctx := errgroup.WithContext(cmd.Context())
		for i, id := range args {
			i, id := i, id
			g.Go(func() error {
				r, err := client.GetResult(ctx, id)
				if err != nil {
					return fmt.Errorf("getting result %q: %w", id, err)
				}
				results[i] = r
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		return format.Print(os.Stdout, outputFormat(), results, func() format.Table {
			return resultTable(results)
		})
	},
}

// ── result create ─────────────────────────────────────────────────────────────

var resultCreateSpecs []string

var resultCreateCmd = &cobra.Command{
	Use:   "create <session-id>",
	Short: "Create results in a session, with or without data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		defs := make([]api.ResultDefinition, 0, len(resultCreateSpecs))
		for _, spec := range resultCreateSpecs {
			def, err := parseResultSpec(spec)
			if err != nil {
				return err
			}
			defs = append(defs, def)
		}

		created, err := client.CreateResults(cmd.Context(), args[0], defs)
		if err != nil {
			return fmt.Errorf("creating results: %w", err)
		}
		return format.Print(os.Stdout, outputFormat(), created, func() format.Table {
			return resultTable(created)
		})
	},
}

// parseResultSpec parses one --result value: "<name>" creates metadata only,
// "<name> bytes <data>" inlines the data, "<name> file <path>" reads it from
// a file.
func parseResultSpec(spec string) (api.ResultDefinition, error) {
	fields := strings.Fields(spec)
	switch len(fields) {
	case 1:
		return api.ResultDefinition{Name: fields[0]}, nil
	case 3:
		switch fields[1] {
		case "bytes":
			return api.ResultDefinition{Name: fields[0], Data: []byte(fields[2])}, nil
		case "file":
			data, err := os.ReadFile(fields[2])
			if err != nil {
				return api.ResultDefinition{}, fmt.Errorf("reading result data file: %w", err)
			}
			return api.ResultDefinition{Name: fields[0], Data: data}, nil
		}
	}
	return api.ResultDefinition{}, fmt.Errorf(
		"invalid --result %q (want \"<name>\", \"<name> bytes <data>\", or \"<name> file <path>\")", spec)
}

// ── result upload-data ────────────────────────────────────────────────────────

var (
	resultUploadFromBytes string
	resultUploadFromFile  string
)

var resultUploadDataCmd = &cobra.Command{
	Use:   "upload-data <session-id> <result-id>",
	Short: "Upload the data of a result created without it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		data := []byte(resultUploadFromBytes)
		if resultUploadFromFile != "" {
			data, err = os.ReadFile(resultUploadFromFile)
			if err != nil {
				return fmt.Errorf("reading result data file: %w", err)
			}
		}

		if err := client.UploadResultData(cmd.Context(), args[0], args[1], data); err != nil {
			return fmt.Errorf("uploading result data: %w", err)
		}
		return nil
	},
}

// ── result delete-data ────────────────────────────────────────────────────────

var resultDeleteConfirm bool

var resultDeleteDataCmd = &cobra.Command{
	Use:   "delete-data <result-id>...",
	Short: "Delete the data backing results (metadata is kept)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		if !resultDeleteConfirm && !confirm(fmt.Sprintf("Delete the data of %d result(s)?", len(args))) {
			return nil
		}
		if err := client.DeleteResultData(cmd.Context(), args); err != nil {
			return fmt.Errorf("deleting result data: %w", err)
		}
		return nil
	},
}

// ── result watch ──────────────────────────────────────────────────────────────

var (
	resultWatchIDs     []string
	resultWatchFilter  string
	resultWatchLimit   int
	resultWatchSession string
	resultWatchSortBy  string
	resultWatchSortDir string
)

var resultWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard of result statuses in your cluster",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		group, err := watch.NewGroup(cmd.Context(), watch.ResultOps{Client: client}, watch.Config{
			SessionID:     resultWatchSession,
			Filter:        resultWatchFilter,
			EntityIDs:     resultWatchIDs,
			Limit:         resultWatchLimit,
			SortBy:        resultWatchSortBy,
			SortDirection: api.SortDirection(resultWatchSortDir),
			Prompt:        promptLine,
		})
		if err != nil {
			return err
		}
		defer closeGroup(group.Close)

		return tui.Run(group, "results", resultMetadata)
	},
}

// resultMetadata fills the dashboard metadata panel for a result.
func resultMetadata(r api.Result) [][2]string {
	return [][2]string{
		{"Name", r.Name},
		{"Session ID", r.SessionID},
		{"Owner Task", r.OwnerTaskID},
		{"Created By", r.CreatedBy},
		{"Size", strconv.FormatInt(r.Size, 10)},
		{"Created", fmtTime(r.CreatedAt)},
		{"Completed", fmtTimePtr(r.CompletedAt)},
	}
}

func resultTable(results []api.Result) format.Table {
	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = []string{r.ID, r.Name, r.Status.String(), r.SessionID, fmtTime(r.CreatedAt)}
	}
	return format.Table{
		Headers: []string{"ID", "Name", "Status", "Session", "CreatedAt"},
		Rows:    rows,
	}
}

func init() {
	resultListCmd.Flags().StringVarP(&resultListFilter, "filter", "f", "", "expression to filter the listed results with")
	resultListCmd.Flags().StringVar(&resultListSortBy, "sort-by", "", "result attribute to sort by")
	resultListCmd.Flags().StringVar(&resultListSortDir, "sort-direction", "asc", "asc or desc")
	resultListCmd.Flags().IntVar(&resultListPage, "page", -1, "specific page to get; -1 gets all pages")
	resultListCmd.Flags().IntVar(&resultListPageSize, "page-size", 100, "number of elements per page")

	resultCreateCmd.Flags().StringArrayVarP(&resultCreateSpecs, "result", "r", nil,
		`result to create: "<name>", "<name> bytes <data>", or "<name> file <path>"`)
	resultCreateCmd.MarkFlagRequired("result")

	resultUploadDataCmd.Flags().StringVar(&resultUploadFromBytes, "from-bytes", "", "result data as an inline string")
	resultUploadDataCmd.Flags().StringVar(&resultUploadFromFile, "from-file", "", "path of a file holding the result data")
	resultUploadDataCmd.MarkFlagsMutuallyExclusive("from-bytes", "from-file")
	resultUploadDataCmd.MarkFlagsOneRequired("from-bytes", "from-file")

	resultDeleteDataCmd.Flags().BoolVar(&resultDeleteConfirm, "confirm", false, "skip the interactive confirmation")

	resultWatchCmd.Flags().StringSliceVar(&resultWatchIDs, "id", nil, "explicit result ids to watch")
	resultWatchCmd.Flags().StringVarP(&resultWatchFilter, "filter", "f", "", "expression to select results to watch")
	resultWatchCmd.Flags().IntVar(&resultWatchLimit, "limit", 1, "maximum number of results to watch when filtering")
	resultWatchCmd.Flags().StringVar(&resultWatchSession, "session-id", "", "session to watch when the filter does not pin one")
	resultWatchCmd.Flags().StringVar(&resultWatchSortBy, "sort-by", "", "result attribute to sort by when filtering")
	resultWatchCmd.Flags().StringVar(&resultWatchSortDir, "sort-direction", "asc", "asc or desc")
	resultWatchCmd.MarkFlagsMutuallyExclusive("id", "filter")
	resultWatchCmd.MarkFlagsOneRequired("id", "filter")

	resultsCmd.AddCommand(resultListCmd, resultGetCmd, resultCreateCmd,
		resultUploadDataCmd, resultDeleteDataCmd, resultWatchCmd)
	rootCmd.AddCommand(resultsCmd)
}
