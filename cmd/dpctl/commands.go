package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/samiuddin-code/datportal-sub005/internal/profile"
	"github.com/samiuddin-code/datportal-sub005/internal/rpc"
	"github.com/samiuddin-code/datportal-sub005/internal/tui/client"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(
		statusCmd,
		projectsCmd,
		openCmd,
		threadCmd,
		olderCmd,
		reloadCmd,
		sendCmd,
		uploadCmd,
		deleteCmd,
		pendingCmd,
		retryCmd,
		discardCmd,
		watchCmd,
	)
	projectsCmd.Flags().Bool("more", false, "fetch the next page first")
	watchCmd.Flags().String("prefix", "", "only events whose kind starts with prefix")
	sendCmd.Flags().Int64("project", 0, "project id (default: the open thread)")
	uploadCmd.Flags().Int64("project", 0, "project id (default: the open thread)")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon and feed status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			resp, err := c.Status(ctx, &rpc.StatusRequest{})
			if err != nil {
				return err
			}
			if jsonFlag {
				outputJSON(resp)
				return nil
			}
			fmt.Printf("Profile:  %s\n", resp.Profile)
			fmt.Printf("Backend:  %s\n", resp.BaseURL)
			fmt.Printf("User:     %s (%d)\n", resp.UserName, resp.UserID)
			fmt.Printf("Feed:     %s since %s\n", resp.FeedState, resp.FeedSince.Format(time.RFC3339))
			fmt.Printf("Uptime:   %s\n", (time.Duration(resp.UptimeMs) * time.Millisecond).Round(time.Second))
			fmt.Printf("Projects: %d (%d unread)\n", resp.Projects, resp.TotalUnread)
			if resp.OpenProjectID != 0 {
				fmt.Printf("Open:     %d\n", resp.OpenProjectID)
			}
			fmt.Printf("Pending:  %d\n", resp.Pending)
			fmt.Printf("Viewers:  %d (visible: %v)\n", resp.Viewers, resp.Visible)
			return nil
		})
	},
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List sidebar projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		more, _ := cmd.Flags().GetBool("more")
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			var (
				resp *rpc.ListProjectsResponse
				err  error
			)
			if more {
				resp, err = c.LoadMoreProjects(ctx, &rpc.LoadMoreProjectsRequest{})
			} else {
				resp, err = c.ListProjects(ctx, &rpc.ListProjectsRequest{})
			}
			if err != nil {
				return err
			}
			if jsonFlag {
				outputJSON(resp)
				return nil
			}
			if len(resp.Projects) == 0 {
				fmt.Println("No projects.")
				return nil
			}
			for _, p := range resp.Projects {
				preview := ""
				if p.LastMessage != nil {
					preview = oneLine(p.LastMessage.Body, 50)
				}
				fmt.Printf("%-8d %-12s %-32s %4d  %s\n", p.ProjectID, p.ReferenceNumber, oneLine(p.Title, 32), p.UnreadCount, preview)
			}
			fmt.Printf("\n%d unread\n", resp.TotalUnread)
			return nil
		})
	},
}

var openCmd = &cobra.Command{
	Use:   "open <project-id>",
	Short: "Open a project's conversation and print its newest page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return threadCall(cmd, func(ctx context.Context, c *client.Client) (*rpc.ThreadResponse, error) {
			return c.Open(ctx, &rpc.OpenRequest{ProjectID: id})
		})
	},
}

var threadCmd = &cobra.Command{
	Use:   "thread",
	Short: "Print the open conversation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return threadCall(cmd, func(ctx context.Context, c *client.Client) (*rpc.ThreadResponse, error) {
			return c.GetThread(ctx, &rpc.GetThreadRequest{})
		})
	},
}

var olderCmd = &cobra.Command{
	Use:   "older",
	Short: "Load the next page of older messages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return threadCall(cmd, func(ctx context.Context, c *client.Client) (*rpc.ThreadResponse, error) {
			return c.LoadOlder(ctx, &rpc.LoadOlderRequest{})
		})
	},
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Refetch the newest page of the open conversation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return threadCall(cmd, func(ctx context.Context, c *client.Client) (*rpc.ThreadResponse, error) {
			return c.Reload(ctx, &rpc.ReloadRequest{})
		})
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <text>...",
	Short: "Send a message",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, _ := cmd.Flags().GetInt64("project")
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			resp, err := c.Send(ctx, &rpc.SendRequest{ProjectID: project, Body: strings.Join(args, " ")})
			if err != nil {
				return err
			}
			if jsonFlag {
				outputJSON(resp)
				return nil
			}
			if resp.Message != nil {
				fmt.Printf("Sent message %d.\n", resp.Message.ID)
			} else {
				fmt.Println("Sent.")
			}
			return nil
		})
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload files as attachments",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, _ := cmd.Flags().GetInt64("project")
		paths := make([]string, 0, len(args))
		for _, a := range args {
			abs, err := filepath.Abs(a)
			if err != nil {
				return err
			}
			paths = append(paths, abs)
		}
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			resp, err := c.Upload(ctx, &rpc.UploadRequest{ProjectID: project, Paths: paths})
			if err != nil {
				return err
			}
			if jsonFlag {
				outputJSON(resp)
				return nil
			}
			for _, m := range resp.Media {
				fmt.Printf("%-8d %-9s %s\n", m.ID, m.Category, m.Path)
			}
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <message-id>",
	Short: "Delete a message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return ackCall(cmd, func(ctx context.Context, c *client.Client) (*rpc.Ack, error) {
			return c.Delete(ctx, &rpc.DeleteRequest{MessageID: id})
		})
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List sends awaiting confirmation or retry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			resp, err := c.ListPending(ctx, &rpc.ListPendingRequest{})
			if err != nil {
				return err
			}
			if jsonFlag {
				outputJSON(resp)
				return nil
			}
			if len(resp.Pending) == 0 {
				fmt.Println("Nothing pending.")
				return nil
			}
			for _, p := range resp.Pending {
				what := oneLine(p.Body, 40)
				if p.Kind != "message" {
					what = fmt.Sprintf("%d file(s)", len(p.Files))
				}
				fmt.Printf("%-36s %-8d %-8s %-7s %s", p.ClientTempID, p.ProjectID, p.State, p.Kind, what)
				if p.Error != "" {
					fmt.Printf("  (%s)", p.Error)
				}
				fmt.Println()
			}
			return nil
		})
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry <client-temp-id>",
	Short: "Retry a failed send",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return ackCall(cmd, func(ctx context.Context, c *client.Client) (*rpc.Ack, error) {
			return c.Retry(ctx, &rpc.RetryRequest{ClientTempID: args[0]})
		})
	},
}

var discardCmd = &cobra.Command{
	Use:   "discard <client-temp-id>",
	Short: "Drop a failed send",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return ackCall(cmd, func(ctx context.Context, c *client.Client) (*rpc.Ack, error) {
			return c.Discard(ctx, &rpc.DiscardRequest{ClientTempID: args[0]})
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream daemon events until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		prefix, _ := cmd.Flags().GetString("prefix")
		name, err := resolveProfile()
		if err != nil {
			return err
		}
		c, err := client.New(profile.SocketPath(name))
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		// No deadline: the stream lives until the user interrupts.
		stream, err := c.Watch(cmd.Context(), &rpc.WatchRequest{Prefix: prefix})
		if err != nil {
			return err
		}
		for {
			evt, err := stream.Recv()
			if err != nil {
				if cmd.Context().Err() != nil {
					return nil
				}
				return err
			}
			if jsonFlag {
				outputJSON(evt)
				continue
			}
			at := time.UnixMilli(evt.OccurredAtUnixMs).Format("15:04:05")
			fmt.Printf("%s %-20s %s\n", at, evt.Kind, oneLine(string(evt.Payload), 100))
		}
	},
}

func threadCall(cmd *cobra.Command, call func(context.Context, *client.Client) (*rpc.ThreadResponse, error)) error {
	return withClient(cmd, func(ctx context.Context, c *client.Client) error {
		resp, err := call(ctx, c)
		if err != nil {
			return err
		}
		if jsonFlag {
			outputJSON(resp)
			return nil
		}
		printThread(resp.Thread)
		return nil
	})
}

func ackCall(cmd *cobra.Command, call func(context.Context, *client.Client) (*rpc.Ack, error)) error {
	return withClient(cmd, func(ctx context.Context, c *client.Client) error {
		resp, err := call(ctx, c)
		if err != nil {
			return err
		}
		if jsonFlag {
			outputJSON(resp)
			return nil
		}
		fmt.Println(resp.Message)
		return nil
	})
}

// printThread prints oldest first, the way a chat reads.
func printThread(t rpc.Thread) {
	if t.ProjectID == 0 {
		fmt.Println("No conversation is open.")
		return
	}
	names := make(map[int64]string, len(t.Members))
	for _, m := range t.Members {
		names[m.UserID] = m.Name
	}
	fmt.Printf("Project %d: %d of %d messages (%s)\n\n", t.ProjectID, len(t.Items), t.Total, t.Phase)
	for i := len(t.Items) - 1; i >= 0; i-- {
		m := t.Items[i]
		author := names[m.AuthorUserID]
		if author == "" {
			author = "user " + strconv.FormatInt(m.AuthorUserID, 10)
		}
		id := strconv.FormatInt(m.ID, 10)
		if m.Provisional() {
			id = "sending"
		}
		fmt.Printf("[%s] %s %s: %s", id, m.AddedAt.Local().Format("Jan 02 15:04"), author, m.Body)
		if n := len(m.Media); n > 0 {
			fmt.Printf(" [%d attachment(s)]", n)
		}
		fmt.Println()
	}
	if t.HasMore {
		fmt.Println("\n(older messages available: dpctl older)")
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > limit {
		return string(r[:limit-1]) + "…"
	}
	return s
}
