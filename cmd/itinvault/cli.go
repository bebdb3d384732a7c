package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/itinvault/itinvault/internal/cached"
	"github.com/itinvault/itinvault/internal/config"
	"github.com/itinvault/itinvault/internal/errors"
	"github.com/itinvault/itinvault/internal/scenario"
	"github.com/itinvault/itinvault/internal/store"
	"github.com/itinvault/itinvault/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(database *sql.DB, cfg *config.Config) *cli.App {
	var s *cached.Store
	if database != nil {
		s = cached.New(store.New(database, cfg), cfg)
	}

	app := &cli.App{
		Name:    "itinvault",
		Usage:   "Versioned travel scenario store",
		Version: Version,
		Commands: []*cli.Command{
			createCmd(s),
			saveCmd(s),
			latestCmd(s),
			showCmd(s),
			historyCmd(s),
			revertCmd(s),
			labelCmd(s),
			deleteVersionCmd(s),
			pruneCmd(s),
			renameCmd(s),
			deleteCmd(s),
			listCmd(s),
			summaryCmd(s),
			cacheStatsCmd(s),
			webCmd(database, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// createCmd creates the create command.
func createCmd(s *cached.Store) *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create a scenario, or fetch it if the name already exists",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Scenario description"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("scenario name is required"))
			}

			sc, created, err := s.GetOrCreateScenario(c.Context, c.Args().First(), c.String("description"))
			if err != nil {
				return outputError(err)
			}

			return outputJSON(map[string]any{
				"scenario": sc,
				"created":  created,
			})
		},
	}
}

// saveCmd creates the save command.
func saveCmd(s *cached.Store) *cli.Command {
	return &cli.Command{
		Name:      "save",
		Usage:     "Save an itinerary snapshot (reads itinerary JSON from stdin)",
		ArgsUsage: "<scenario-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Version name; omit for an autosave"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("scenario id is required"))
			}
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("itinerary JSON must be piped via stdin"))
			}

			raw, err := readStdin()
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if raw == "" {
				return outputError(errors.NewInvalidRequest("itinerary JSON is required"))
			}

			itinerary, err := scenario.ParseItinerary([]byte(raw))
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}

			name := c.String("name")
			result, err := s.SaveVersion(c.Context, store.SaveVersionInput{
				ScenarioID:  c.Args().First(),
				Data:        itinerary,
				Named:       name != "",
				VersionName: name,
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(result)
		},
	}
}

// latestCmd creates the latest command.
func latestCmd(s *cached.Store) *cli.Command {
	return &cli.Command{
		Name:      "latest",
		Usage:     "Show the latest version of a scenario",
		ArgsUsage: "<scenario-id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("scenario id is required"))
			}

			version, err := s.GetLatestVersion(c.Context, c.Args().First())
			if err != nil {
				return outputError(err)
			}

			return outputJSON(map[string]any{"version": version})
		},
	}
}

// showCmd creates the show command.
func showCmd(s *cached.Store) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one version of a scenario",
		ArgsUsage: "<scenario-id> <version-number>",
		Action: func(c *cli.Context) error {
			id, number, err := scenarioVersionArgs(c)
			if err != nil {
				return outputError(err)
			}

			version, err := s.GetVersion(c.Context, id, number)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(map[string]any{"version": version})
		},
	}
}

// historyCmd creates the history command.
func historyCmd(s *cached.Store) *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "List a scenario's versions, newest first",
		ArgsUsage: "<scenario-id>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum versions to return (default 20, max 100)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("scenario id is required"))
			}

			versions, err := s.GetVersionHistory(c.Context, c.Args().First(), c.Int("limit"))
			if err != nil {
				return outputError(err)
			}

			return outputJSON(map[string]any{
				"versions": versions,
				"count":    len(versions),
			})
		},
	}
}

// revertCmd creates the revert command.
func revertCmd(s *cached.Store) *cli.Command {
	return &cli.Command{
		Name:      "revert",
		Usage:     "Restore an earlier version as a new named version",
		ArgsUsage: "<scenario-id> <version-number>",
		Action: func(c *cli.Context) error {
			id, number, err := scenarioVersionArgs(c)
			if err != nil {
				return outputError(err)
			}

			version, err := s.RevertToVersion(c.Context, id, number)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(map[string]any{"version": version})
		},
	}
}

// labelCmd creates the label command.
func labelCmd(s *cached.Store) *cli.Command {
	return &cli.Command{
		Name:      "label",
		Usage:     "Name an existing version, exempting it from pruning",
		ArgsUsage: "<scenario-id> <version-number> <name>",
		Action: func(c *cli.Context) error {
			id, number, err := scenarioVersionArgs(c)
			if err != nil {
				return outputError(err)
			}
			if c.NArg() < 3 {
				return outputError(errors.NewInvalidRequest("version name is required"))
			}
			name := c.Args().Get(2)

			if err := s.NameVersion(c.Context, id, number, name); err != nil {
				return outputError(err)
			}

			return outputJSON(map[string]any{
				"scenario_id":    id,
				"version_number": number,
				"version_name":   name,
			})
		},
	}
}

// deleteVersionCmd creates the delete-version command.
func deleteVersionCmd(s *cached.Store) *cli.Command {
	return &cli.Command{
		Name:      "delete-version",
		Usage:     "Delete one version from a scenario's history",
		ArgsUsage: "<scenario-id> <version-number>",
		Action: func(c *cli.Context) error {
			id, number, err := scenarioVersionArgs(c)
			if err != nil {
				return outputError(err)
			}

			if err := s.DeleteVersion(c.Context, id, number); err != nil {
				return outputError(err)
			}

			return outputJSON(map[string]any{
				"scenario_id":    id,
				"version_number": number,
				"deleted":        true,
			})
		},
	}
}

// pruneCmd creates the prune command.
func pruneCmd(s *cached.Store) *cli.Command {
	return &cli.Command{
		Name:      "prune",
		Usage:     "Delete all unnamed versions of a scenario",
		ArgsUsage: "<scenario-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "keep-latest",
				Usage: "keep the newest unnamed version",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("scenario id is required"))
			}

			deleted, err := s.DeleteUnlabeledVersions(c.Context, c.Args().First(), c.Bool("keep-latest"))
			if err != nil {
				return outputError(err)
			}

			return outputJSON(map[string]any{
				"scenario_id": c.Args().First(),
				"deleted":     deleted,
			})
		},
	}
}

// renameCmd creates the rename command.
func renameCmd(s *cached.Store) *cli.Command {
	return &cli.Command{
		Name:      "rename",
		Usage:     "Rename a scenario",
		ArgsUsage: "<scenario-id> <new-name>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return outputError(errors.NewInvalidRequest("scenario id and new name are required"))
			}
			id := c.Args().First()
			name := c.Args().Get(1)

			if err := s.RenameScenario(c.Context, id, name); err != nil {
				return outputError(err)
			}

			return outputJSON(map[string]any{
				"scenario_id": id,
				"name":        name,
			})
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(s *cached.Store) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a scenario and all of its versions",
		ArgsUsage: "<scenario-id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("scenario id is required"))
			}

			if err := s.DeleteScenario(c.Context, c.Args().First()); err != nil {
				return outputError(err)
			}

			return outputJSON(map[string]any{
				"scenario_id": c.Args().First(),
				"deleted":     true,
			})
		},
	}
}

// listCmd creates the list command.
func listCmd(s *cached.Store) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List all scenarios",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-latest", Usage: "Skip attaching each scenario's latest version"},
		},
		Action: func(c *cli.Context) error {
			scenarios, err := s.ListScenarios(c.Context)
			if err != nil {
				return outputError(err)
			}

			type listItem struct {
				Scenario      scenario.Scenario `json:"scenario"`
				LatestVersion *scenario.Version `json:"latest_version,omitempty"`
			}

			items := make([]listItem, len(scenarios))
			for i, sc := range scenarios {
				items[i] = listItem{Scenario: sc}
			}

			if !c.Bool("no-latest") && len(scenarios) > 0 {
				ids := make([]string, len(scenarios))
				for i, sc := range scenarios {
					ids[i] = sc.ID
				}
				latest, err := s.GetLatestVersions(c.Context, ids)
				if err != nil {
					return outputError(err)
				}
				for i := range items {
					items[i].LatestVersion = latest[items[i].Scenario.ID]
				}
			}

			return outputJSON(map[string]any{
				"scenarios": items,
				"count":     len(items),
			})
		},
	}
}

// summaryCmd creates the summary command with set/get/delete subcommands.
func summaryCmd(s *cached.Store) *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "Manage a scenario's generated markdown summary",
		Subcommands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Store a summary (reads markdown from stdin)",
				ArgsUsage: "<scenario-id>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "for-version", Required: true, Usage: "Version the summary was generated for"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() < 1 {
						return outputError(errors.NewInvalidRequest("scenario id is required"))
					}
					if !stdinHasData() {
						return outputError(errors.NewInvalidRequest("summary markdown must be piped via stdin"))
					}

					markdown, err := readStdin()
					if err != nil {
						return outputError(errors.NewInternal(err))
					}

					id := c.Args().First()
					forVersion := c.Int("for-version")
					if err := s.SaveSummary(c.Context, id, markdown, forVersion); err != nil {
						return outputError(err)
					}

					return outputJSON(map[string]any{
						"scenario_id": id,
						"for_version": forVersion,
					})
				},
			},
			{
				Name:      "get",
				Usage:     "Fetch the summary generated for a version",
				ArgsUsage: "<scenario-id> <version-number>",
				Action: func(c *cli.Context) error {
					id, number, err := scenarioVersionArgs(c)
					if err != nil {
						return outputError(err)
					}

					summary, err := s.GetSummary(c.Context, id, number)
					if err != nil {
						return outputError(err)
					}

					return outputJSON(map[string]any{"summary": summary})
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a scenario's stored summary",
				ArgsUsage: "<scenario-id>",
				Action: func(c *cli.Context) error {
					if c.NArg() < 1 {
						return outputError(errors.NewInvalidRequest("scenario id is required"))
					}

					if err := s.DeleteSummary(c.Context, c.Args().First()); err != nil {
						return outputError(err)
					}

					return outputJSON(map[string]any{
						"scenario_id": c.Args().First(),
						"deleted":     true,
					})
				},
			},
		},
	}
}

// cacheStatsCmd creates the cache-stats command.
func cacheStatsCmd(s *cached.Store) *cli.Command {
	return &cli.Command{
		Name:  "cache-stats",
		Usage: "Report query cache statistics",
		Action: func(c *cli.Context) error {
			stats := s.Cache().Stats()
			return outputJSON(map[string]any{
				"enabled":   s.Cache().Enabled(),
				"hits":      stats.Hits,
				"misses":    stats.Misses,
				"evictions": stats.Evictions,
				"size":      stats.Size,
				"hit_rate":  s.Cache().HitRate(),
			})
		},
	}
}

// webCmd creates the web command.
func webCmd(database *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Serve the read-only web viewer",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Value: 8321, Usage: "Listen port"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(database, cfg, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// Helper functions

// scenarioVersionArgs reads the <scenario-id> <version-number> positional pair.
func scenarioVersionArgs(c *cli.Context) (string, int, error) {
	if c.NArg() < 2 {
		return "", 0, errors.NewInvalidRequest("scenario id and version number are required")
	}
	number, err := strconv.Atoi(c.Args().Get(1))
	if err != nil {
		return "", 0, errors.NewInvalidRequest("version number must be an integer")
	}
	return c.Args().First(), number, nil
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if vErr, ok := err.(*errors.VaultError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", vErr.Code, vErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
