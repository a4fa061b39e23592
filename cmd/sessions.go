package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/polyxo/gridctl/internal/api"
	"github.com/polyxo/gridctl/internal/format"
	"github.com/polyxo/gridctl/internal/tui"
)

var sessionsCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage cluster sessions",
}

// ── session list ──────────────────────────────────────────────────────────────

var (
	sessionListFilter   string
	sessionListSortBy   string
	sessionListSortDir  string
	sessionListPage     int
	sessionListPageSize int
)

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		sessions, err := listAllPages(cmd.Context(), sessionListPage, sessionListPageSize,
			func(ctx context.Context, page, pageSize int) (int, []api.Session, error) {
				return client.ListSessions(ctx, api.ListQuery{
					Filter:        sessionListFilter,
					Page:          page,
					PageSize:      pageSize,
					SortBy:        sessionListSortBy,
					SortDirection: api.SortDirection(sessionListSortDir),
				})
			})
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			return nil
		}
		return format.Print(os.Stdout, outputFormat(), sessions, func() format.Table {
			return sessionTable(sessions)
		})
	},
}

// ── session get ───────────────────────────────────────────────────────────────

var sessionGetCmd = &cobra.Command{
	Use:   "get <session-id>...",
	Short: "Get details of sessions by id",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		sessions := make([]api.Session, 0, len(args))
		for _, id := range args {
			s, err := client.GetSession(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("getting session %q: %w", id, err)
			}
			sessions = append(sessions, s)
		}
		return format.Print(os.Stdout, outputFormat(), sessions, func() format.Table {
			return sessionTable(sessions)
		})
	},
}

// ── session create ────────────────────────────────────────────────────────────

var (
	sessionCreateMaxRetries  int
	sessionCreateMaxDuration time.Duration
	sessionCreatePriority    int
	sessionCreatePartitions  []string
	sessionCreateDefaultPart string
	sessionCreateAppName     string
	sessionCreateAppVersion  string
	sessionCreateOptions     []string
)

var sessionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new session",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		extra := make(map[string]string, len(sessionCreateOptions))
		for _, kv := range sessionCreateOptions {
			key, value, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("invalid --option %q (want KEY=VALUE)", kv)
			}
			extra[key] = value
		}

		opts := api.TaskOptions{
			MaxDuration:        sessionCreateMaxDuration,
			MaxRetries:         sessionCreateMaxRetries,
			Priority:           sessionCreatePriority,
			PartitionID:        sessionCreateDefaultPart,
			ApplicationName:    sessionCreateAppName,
			ApplicationVersion: sessionCreateAppVersion,
			Options:            extra,
		}
		partitions := sessionCreatePartitions
		if len(partitions) == 0 {
			partitions = []string{sessionCreateDefaultPart}
		}

		id, err := client.CreateSession(cmd.Context(), opts, partitions)
		if err != nil {
			return fmt.Errorf("creating session: %w", err)
		}
		created, err := client.GetSession(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("fetching created session: %w", err)
		}
		return format.Print(os.Stdout, outputFormat(), created, func() format.Table {
			return sessionTable([]api.Session{created})
		})
	},
}

// ── session lifecycle actions ─────────────────────────────────────────────────

var (
	sessionActionConfirm      bool
	sessionActionSkipNotFound bool
)

// sessionActionCommand builds cancel/pause/resume/close, which differ only in
// the verb and the client call.
func sessionActionCommand(verb string, action func(*api.Client, context.Context, string) (api.Session, error)) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <session-id>...",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " sessions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			var updated []api.Session
			for _, id := range args {
				if !sessionActionConfirm && !confirm(fmt.Sprintf("Are you sure you want to %s session [%s]?", verb, id)) {
					continue
				}
				s, err := action(client, cmd.Context(), id)
				if err != nil {
					if sessionActionSkipNotFound && errors.Is(err, api.ErrNotFound) {
						fmt.Fprintf(os.Stderr, "warning: session %q not found, skipping\n", id)
						continue
					}
					return fmt.Errorf("%s session %q: %w", verb, id, err)
				}
				updated = append(updated, s)
			}
			if len(updated) == 0 {
				return nil
			}
			return format.Print(os.Stdout, outputFormat(), updated, func() format.Table {
				return sessionTable(updated)
			})
		},
	}
}

// ── session stop-submission ───────────────────────────────────────────────────

var (
	sessionStopClients bool
	sessionStopWorkers bool
)

var sessionStopSubmissionCmd = &cobra.Command{
	Use:   "stop-submission <session-id>...",
	Short: "Stop clients and/or workers from submitting new tasks to sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		var blocked []string
		if sessionStopClients {
			blocked = append(blocked, "clients")
		}
		if sessionStopWorkers {
			blocked = append(blocked, "workers")
		}

		var updated []api.Session
		for _, id := range args {
			if !sessionActionConfirm && !confirm(fmt.Sprintf(
				"Are you sure you want to stop %s from submitting tasks to session [%s]?",
				strings.Join(blocked, " and "), id)) {
				continue
			}
			s, err := client.StopSubmission(cmd.Context(), id, sessionStopClients, sessionStopWorkers)
			if err != nil {
				if sessionActionSkipNotFound && errors.Is(err, api.ErrNotFound) {
					fmt.Fprintf(os.Stderr, "warning: session %q not found, skipping\n", id)
					continue
				}
				return fmt.Errorf("stopping submission to session %q: %w", id, err)
			}
			updated = append(updated, s)
		}
		if len(updated) == 0 {
			return nil
		}
		return format.Print(os.Stdout, outputFormat(), updated, func() format.Table {
			return sessionTable(updated)
		})
	},
}

// ── session watch ─────────────────────────────────────────────────────────────

var sessionWatchRefresh time.Duration

var sessionWatchCmd = &cobra.Command{
	Use:   "watch <session-id>",
	Short: "Live dashboard of a session's task counts per status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		return tui.RunSession(client, args[0], sessionWatchRefresh)
	},
}

// ── session delete ────────────────────────────────────────────────────────────

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>...",
	Short: "Delete sessions and everything they own",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		for _, id := range args {
			if !sessionActionConfirm && !confirm(fmt.Sprintf("Are you sure you want to delete session [%s]?", id)) {
				continue
			}
			if err := client.DeleteSession(cmd.Context(), id); err != nil {
				if sessionActionSkipNotFound && errors.Is(err, api.ErrNotFound) {
					fmt.Fprintf(os.Stderr, "warning: session %q not found, skipping\n", id)
					continue
				}
				return fmt.Errorf("deleting session %q: %w", id, err)
			}
		}
		return nil
	},
}

func sessionTable(sessions []api.Session) format.Table {
	rows := make([][]string, len(sessions))
	for i, s := range sessions {
		rows[i] = []string{s.ID, s.Status.String(), strings.Join(s.PartitionIDs, ","), fmtTime(s.CreatedAt)}
	}
	return format.Table{
		Headers: []string{"ID", "Status", "Partitions", "CreatedAt"},
		Rows:    rows,
	}
}

func init() {
	sessionListCmd.Flags().StringVarP(&sessionListFilter, "filter", "f", "", "expression to filter the listed sessions with")
	sessionListCmd.Flags().StringVar(&sessionListSortBy, "sort-by", "", "session attribute to sort by")
	sessionListCmd.Flags().StringVar(&sessionListSortDir, "sort-direction", "asc", "asc or desc")
	sessionListCmd.Flags().IntVar(&sessionListPage, "page", -1, "specific page to get; -1 gets all pages")
	sessionListCmd.Flags().IntVar(&sessionListPageSize, "page-size", 100, "number of elements per page")

	sessionCreateCmd.Flags().IntVar(&sessionCreateMaxRetries, "max-retries", 0, "default maximum execution attempts for session tasks")
	sessionCreateCmd.Flags().DurationVar(&sessionCreateMaxDuration, "max-duration", 0, "default maximum task execution time")
	sessionCreateCmd.Flags().IntVar(&sessionCreatePriority, "priority", 0, "default task priority")
	sessionCreateCmd.Flags().StringSliceVar(&sessionCreatePartitions, "partition", nil, "partitions to add to the session")
	sessionCreateCmd.Flags().StringVar(&sessionCreateDefaultPart, "default-partition", "default", "default partition")
	sessionCreateCmd.Flags().StringVar(&sessionCreateAppName, "application-name", "", "default application name")
	sessionCreateCmd.Flags().StringVar(&sessionCreateAppVersion, "application-version", "", "default application version")
	sessionCreateCmd.Flags().StringSliceVar(&sessionCreateOptions, "option", nil, "additional default options as KEY=VALUE")
	sessionCreateCmd.MarkFlagRequired("max-retries")
	sessionCreateCmd.MarkFlagRequired("max-duration")
	sessionCreateCmd.MarkFlagRequired("priority")

	sessionStopSubmissionCmd.Flags().BoolVar(&sessionStopClients, "clients", false, "prevent clients from submitting new tasks")
	sessionStopSubmissionCmd.Flags().BoolVar(&sessionStopWorkers, "workers", false, "prevent workers from submitting new tasks")
	sessionStopSubmissionCmd.MarkFlagsOneRequired("clients", "workers")

	sessionWatchCmd.Flags().DurationVar(&sessionWatchRefresh, "refresh-rate", time.Second, "how often to re-fetch the session and its task counts")

	cancelCmd := sessionActionCommand("cancel", (*api.Client).CancelSession)
	pauseCmd := sessionActionCommand("pause", (*api.Client).PauseSession)
	resumeCmd := sessionActionCommand("resume", (*api.Client).ResumeSession)
	closeCmd := sessionActionCommand("close", (*api.Client).CloseSession)
	purgeCmd := sessionActionCommand("purge", (*api.Client).PurgeSession)
	for _, c := range []*cobra.Command{cancelCmd, pauseCmd, resumeCmd, closeCmd, purgeCmd,
		sessionStopSubmissionCmd, sessionDeleteCmd} {
		c.Flags().BoolVar(&sessionActionConfirm, "confirm", false, "skip the interactive confirmation")
		c.Flags().BoolVar(&sessionActionSkipNotFound, "skip-not-found", false, "skip sessions that do not exist")
	}

	sessionsCmd.AddCommand(sessionListCmd, sessionGetCmd, sessionCreateCmd,
		cancelCmd, pauseCmd, resumeCmd, closeCmd, purgeCmd,
		sessionStopSubmissionCmd, sessionWatchCmd, sessionDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}
