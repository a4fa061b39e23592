package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"github.com/polyxo/gridctl/internal/api"
	"github.com/polyxo/gridctl/internal/format"
	"github.com/polyxo/gridctl/internal/tui"
	"github.com/polyxo/gridctl/internal/watch"
)

var tasksCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage cluster tasks",
}

// ── task list ─────────────────────────────────────────────────────────────────

var (
	taskListFilter   string
	taskListSortBy   string
	taskListSortDir  string
	taskListPage     int
	taskListPageSize int
)

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		tasks, err := listAllPages(cmd.Context(), taskListPage, taskListPageSize,
			func(ctx context.Context, page, pageSize int) (int, []api.Task, error) {
				return client.ListTasks(ctx, api.ListQuery{
					Filter:        taskListFilter,
					Page:          page,
					PageSize:      pageSize,
					SortBy:        taskListSortBy,
					SortDirection: api.SortDirection(taskListSortDir),
				})
			})
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			return nil
		}
		return format.Print(os.Stdout, outputFormat(), tasks, func() format.Table {
			return taskTable(tasks)
		})
	},
}

// ── task get ──────────────────────────────────────────────────────────────────

var taskGetCmd = &cobra.Command{
	Use:   "get <task-id>...",
	Short: "Get a detailed overview of tasks by id",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		tasks := make([]api.Task, len(args))
		g, ctx := errgroup.WithContext(cmd.Context())
		for i, id := range args {
			i, id := i, id
			g.Go(func() error {
				t, err := client.GetTask(ctx, id)
				if err != nil {
					return fmt.Errorf("getting task %q: %w", id, err)
				}
				tasks[i] = t
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		return format.Print(os.Stdout, outputFormat(), tasks, func() format.Table {
			return taskTable(tasks)
		})
	},
}

// ── task create ───────────────────────────────────────────────────────────────

var (
	taskCreateSessionID   string
	taskCreatePayloadID   string
	taskCreateOutputs     []string
	taskCreateDeps        []string
	taskCreateMaxRetries  int
	taskCreateMaxDuration time.Duration
	taskCreatePriority    int
	taskCreatePartition   string
)

var taskCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Submit a task to a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		var opts *api.TaskOptions
		changed := func(name string) bool { return cmd.Flags().Changed(name) }
		if changed("max-duration") && changed("priority") && changed("max-retries") {
			opts = &api.TaskOptions{
				MaxDuration: taskCreateMaxDuration,
				MaxRetries:  taskCreateMaxRetries,
				Priority:    taskCreatePriority,
				PartitionID: taskCreatePartition,
			}
		} else if changed("max-duration") || changed("priority") || changed("max-retries") {
			return fmt.Errorf("task options require all three of --max-duration, --priority, and --max-retries")
		}

		def := api.TaskDefinition{
			PayloadID:        taskCreatePayloadID,
			ExpectedOutputs:  taskCreateOutputs,
			DataDependencies: taskCreateDeps,
			Options:          opts,
		}
		created, err := client.SubmitTasks(cmd.Context(), taskCreateSessionID, []api.TaskDefinition{def})
		if err != nil {
			return fmt.Errorf("submitting task: %w", err)
		}
		return format.Print(os.Stdout, outputFormat(), created, func() format.Table {
			return taskTable(created)
		})
	},
}

// ── task cancel ───────────────────────────────────────────────────────────────

var taskCancelCmd = &cobra.Command{
	Use:   "cancel <task-id>...",
	Short: "Cancel tasks by id",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		if err := client.CancelTasks(cmd.Context(), args); err != nil {
			return fmt.Errorf("cancelling tasks: %w", err)
		}
		return nil
	},
}

// ── task watch ────────────────────────────────────────────────────────────────

var (
	taskWatchIDs     []string
	taskWatchFilter  string
	taskWatchLimit   int
	taskWatchSession string
	taskWatchSortBy  string
	taskWatchSortDir string
)

var taskWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard of task statuses in your cluster",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		group, err := watch.NewGroup(cmd.Context(), watch.TaskOps{Client: client}, watch.Config{
			SessionID:     taskWatchSession,
			Filter:        taskWatchFilter,
			EntityIDs:     taskWatchIDs,
			Limit:         taskWatchLimit,
			SortBy:        taskWatchSortBy,
			SortDirection: api.SortDirection(taskWatchSortDir),
			Prompt:        promptLine,
		})
		if err != nil {
			return err
		}
		defer closeGroup(group.Close)

		return tui.Run(group, "tasks", taskMetadata)
	},
}

// taskMetadata fills the dashboard metadata panel for a task.
func taskMetadata(t api.Task) [][2]string {
	return [][2]string{
		{"Session ID", t.SessionID},
		{"Owner Pod", t.OwnerPodID},
		{"Pod Hostname", t.PodHostname},
		{"Dependencies", strconv.Itoa(t.CountDataDependencies)},
		{"Outputs", strconv.Itoa(t.CountExpectedOutputs)},
		{"Created", fmtTime(t.CreatedAt)},
		{"Started", fmtTimePtr(t.StartedAt)},
		{"Ended", fmtTimePtr(t.EndedAt)},
		{"Status Message", t.StatusMessage},
	}
}

func taskTable(tasks []api.Task) format.Table {
	rows := make([][]string, len(tasks))
	for i, t := range tasks {
		rows[i] = []string{t.ID, t.Status.String(), t.SessionID, fmtTime(t.CreatedAt)}
	}
	return format.Table{
		Headers: []string{"ID", "Status", "Session", "CreatedAt"},
		Rows:    rows,
	}
}

func init() {
	taskListCmd.Flags().StringVarP(&taskListFilter, "filter", "f", "", "expression to filter the listed tasks with")
	taskListCmd.Flags().StringVar(&taskListSortBy, "sort-by", "", "task attribute to sort by")
	taskListCmd.Flags().StringVar(&taskListSortDir, "sort-direction", "asc", "asc or desc")
	taskListCmd.Flags().IntVar(&taskListPage, "page", -1, "specific page to get; -1 gets all pages")
	taskListCmd.Flags().IntVar(&taskListPageSize, "page-size", 100, "number of elements per page")

	taskCreateCmd.Flags().StringVar(&taskCreateSessionID, "session-id", "", "id of the session to create the task in")
	taskCreateCmd.Flags().StringVar(&taskCreatePayloadID, "payload-id", "", "id of the task's payload")
	taskCreateCmd.Flags().StringSliceVar(&taskCreateOutputs, "expected-outputs", nil, "ids of the task's outputs")
	taskCreateCmd.Flags().StringSliceVar(&taskCreateDeps, "data-dependencies", nil, "ids of the task's data dependencies")
	taskCreateCmd.Flags().IntVar(&taskCreateMaxRetries, "max-retries", 0, "maximum execution attempts")
	taskCreateCmd.Flags().DurationVar(&taskCreateMaxDuration, "max-duration", 0, "maximum execution time")
	taskCreateCmd.Flags().IntVar(&taskCreatePriority, "priority", 0, "task priority")
	taskCreateCmd.Flags().StringVar(&taskCreatePartition, "partition-id", "", "partition to run the task in")
	taskCreateCmd.MarkFlagRequired("session-id")
	taskCreateCmd.MarkFlagRequired("payload-id")
	taskCreateCmd.MarkFlagRequired("expected-outputs")

	taskWatchCmd.Flags().StringSliceVar(&taskWatchIDs, "id", nil, "explicit task ids to watch")
	taskWatchCmd.Flags().StringVarP(&taskWatchFilter, "filter", "f", "", "expression to select tasks to watch")
	taskWatchCmd.Flags().IntVar(&taskWatchLimit, "limit", 1, "maximum number of tasks to watch when filtering")
	taskWatchCmd.Flags().StringVar(&taskWatchSession, "session-id", "", "session to watch when the filter does not pin one")
	taskWatchCmd.Flags().StringVar(&taskWatchSortBy, "sort-by", "", "task attribute to sort by when filtering")
	taskWatchCmd.Flags().StringVar(&taskWatchSortDir, "sort-direction", "asc", "asc or desc")
	taskWatchCmd.MarkFlagsMutuallyExclusive("id", "filter")
	taskWatchCmd.MarkFlagsOneRequired("id", "filter")

	tasksCmd.AddCommand(taskListCmd, taskGetCmd, taskCreateCmd, taskCancelCmd, taskWatchCmd)
	rootCmd.AddCommand(tasksCmd)
}
