package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/samiuddin-code/datportal-sub005/internal/config"
	"github.com/samiuddin-code/datportal-sub005/internal/profile"
	"github.com/samiuddin-code/datportal-sub005/internal/tui/client"
	"github.com/spf13/cobra"
)

func init() {
	profileCmd.AddCommand(profileListCmd, profileUseCmd)
	rootCmd.AddCommand(profileCmd, initCmd)

	initCmd.Flags().String("base-url", "", "backend API base URL (required)")
	initCmd.Flags().String("token", "", "access token, stored in the profile .env")
	initCmd.Flags().String("policy", "deferred", "send policy: deferred or optimistic")
	initCmd.Flags().Bool("force", false, "overwrite an existing console.toml")
	_ = initCmd.MarkFlagRequired("base-url")
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage profiles",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known profiles",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		names, err := profile.List()
		if err != nil {
			return err
		}
		active := profile.Resolve(profileFlag)
		type row struct {
			Name          string `json:"name"`
			Path          string `json:"path"`
			Active        bool   `json:"active"`
			DaemonRunning bool   `json:"daemonRunning"`
		}
		rows := make([]row, 0, len(names))
		for _, n := range names {
			rows = append(rows, row{
				Name:          n,
				Path:          profile.Dir(n),
				Active:        n == active,
				DaemonRunning: client.Probe(profile.SocketPath(n), 500*time.Millisecond),
			})
		}
		if jsonFlag {
			outputJSON(rows)
			return nil
		}
		if len(rows) == 0 {
			fmt.Println("No profiles found.")
			return nil
		}
		for _, r := range rows {
			mark := " "
			if r.Active {
				mark = "*"
			}
			running := "stopped"
			if r.DaemonRunning {
				running = "running"
			}
			fmt.Printf("%s %-20s %s (%s)\n", mark, r.Name, r.Path, running)
		}
		return nil
	},
}

var profileUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Make a profile the default",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		if err := profile.ValidateName(args[0]); err != nil {
			return err
		}
		cfg, err := config.Load(profile.ConfigPath())
		if err != nil {
			return err
		}
		cfg.DefaultProfile = args[0]
		if err := config.Save(profile.ConfigPath(), cfg); err != nil {
			return err
		}
		fmt.Printf("Default profile is now %q.\n", args[0])
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write console.toml and .env for a profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		name, err := resolveProfile()
		if err != nil {
			return err
		}
		baseURL, _ := cmd.Flags().GetString("base-url")
		token, _ := cmd.Flags().GetString("token")
		policy, _ := cmd.Flags().GetString("policy")
		force, _ := cmd.Flags().GetBool("force")

		path := profile.ConsolePath(name)
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s exists; use --force to overwrite", path)
		}
		if err := profile.EnsureDir(name); err != nil {
			return err
		}

		cfg := config.DefaultConsole()
		cfg.Backend.BaseURL = baseURL
		cfg.Outbox.Policy = policy
		if policy != "deferred" && policy != "optimistic" {
			return fmt.Errorf("policy %q is not deferred or optimistic", policy)
		}
		if _, err := config.FeedURLFor(baseURL); err != nil {
			return err
		}
		// The token stays out of console.toml; it goes to .env below.
		if err := config.Save(path, cfg); err != nil {
			return err
		}

		if token != "" {
			envPath := profile.EnvPath(name)
			if err := godotenv.Write(map[string]string{config.EnvToken: token}, envPath); err != nil {
				return fmt.Errorf("write %s: %w", envPath, err)
			}
			if err := os.Chmod(envPath, 0600); err != nil {
				return err
			}
		}
		fmt.Printf("Profile %q initialized at %s\n", name, profile.Dir(name))
		return nil
	},
}
