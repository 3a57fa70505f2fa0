package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/ideaforge/internal/errors"
	"github.com/hpungsan/ideaforge/internal/mcp"
	"github.com/hpungsan/ideaforge/internal/ops"
	"github.com/hpungsan/ideaforge/internal/schedule"
	"github.com/hpungsan/ideaforge/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(in io.Reader, out, errOut io.Writer) *cli.App {
	app := &cli.App{
		Name:    "ideaforge",
		Usage:   "Generate app ideas and grow each one into a project, one iteration a day",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Value:   ".",
				EnvVars: []string{"IDEAFORGE_DIR"},
				Usage:   "Workspace directory (config.json, .env, ideas, projects, ledger)",
			},
		},
		Commands: []*cli.Command{
			ideateCmd(),
			proposeCmd(),
			iterateCmd(),
			applyCmd(),
			projectsCmd(),
			stateCmd(),
			treeCmd(),
			ideasCmd(),
			runsCmd(),
			serveCmd(),
			webCmd(),
			daemonCmd(),
		},
		Reader:    in,
		Writer:    out,
		ErrWriter: errOut,
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// withWorkspace opens the workspace named by --dir around fn.
func withWorkspace(fn func(c *cli.Context, ws *workspace) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		ws, err := openWorkspace(c.String("dir"), c.App.ErrWriter)
		if err != nil {
			return outputError(err)
		}
		defer ws.Close()
		return fn(c, ws)
	}
}

// ideateCmd creates the ideate command.
func ideateCmd() *cli.Command {
	return &cli.Command{
		Name:  "ideate",
		Usage: "Generate new ideas and store the ones that pass the filters",
		Action: withWorkspace(func(c *cli.Context, ws *workspace) error {
			out, err := ops.Ideate(c.Context, ws.env)
			if err != nil {
				if isRunLevel(err) {
					return outputError(err)
				}
				fmt.Fprintf(c.App.Writer, "ideate: error (%s)\n", errorMessage(err))
				return nil
			}
			for _, r := range out.Accepted {
				fmt.Fprintf(c.App.Writer, "%s: accepted - %s\n", r.ProjectSlug, r.Idea)
			}
			for _, r := range out.Rejected {
				fmt.Fprintf(c.App.Writer, "rejected (%s): %s\n", r.Reason, r.Idea)
			}
			if len(out.Accepted) == 0 && len(out.Rejected) == 0 {
				fmt.Fprintln(c.App.Writer, "ideate: no ideas generated")
			}
			return nil
		}),
	}
}

// proposeCmd creates the propose command.
func proposeCmd() *cli.Command {
	return &cli.Command{
		Name:  "propose",
		Usage: "Write the next improvement proposal for every project",
		Action: withWorkspace(func(c *cli.Context, ws *workspace) error {
			out, err := ops.Propose(c.Context, ws.env)
			if out != nil {
				printResults(c.App.Writer, out.Results)
			}
			if err != nil {
				return outputError(err)
			}
			return nil
		}),
	}
}

// iterateCmd creates the iterate command.
func iterateCmd() *cli.Command {
	return &cli.Command{
		Name:  "iterate",
		Usage: "Apply one generated change-set to every project",
		Action: withWorkspace(func(c *cli.Context, ws *workspace) error {
			out, err := ops.Iterate(c.Context, ws.env)
			if out != nil {
				printResults(c.App.Writer, out.Results)
			}
			if err != nil {
				return outputError(err)
			}
			return nil
		}),
	}
}

// applyCmd creates the apply command.
func applyCmd() *cli.Command {
	return &cli.Command{
		Name:  "apply",
		Usage: "Apply a change-set to one project (reads the change-set JSON from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Required: true, Usage: "Project slug"},
		},
		Action: withWorkspace(func(c *cli.Context, ws *workspace) error {
			data, err := io.ReadAll(c.App.Reader)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			raw := strings.TrimSpace(string(data))
			if raw == "" {
				return outputError(errors.NewInvalidRequest("change-set must be piped via stdin"))
			}

			res, err := ops.ApplyChangeSet(ws.env, ops.ApplyInput{
				Slug:      c.String("project"),
				ChangeSet: raw,
			})
			if err != nil {
				return outputError(err)
			}
			fmt.Fprintln(c.App.Writer, res.Line())
			return nil
		}),
	}
}

// projectsCmd creates the projects command.
func projectsCmd() *cli.Command {
	return &cli.Command{
		Name:  "projects",
		Usage: "List projects with their iteration counts",
		Action: withWorkspace(func(c *cli.Context, ws *workspace) error {
			projects, err := ops.ListProjects(ws.env)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, projects)
		}),
	}
}

// stateCmd creates the state command.
func stateCmd() *cli.Command {
	return &cli.Command{
		Name:  "state",
		Usage: "Print a project's state document",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Required: true, Usage: "Project slug"},
		},
		Action: withWorkspace(func(c *cli.Context, ws *workspace) error {
			doc, err := ops.GetState(ws.env, c.String("project"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, doc)
		}),
	}
}

// treeCmd creates the tree command.
func treeCmd() *cli.Command {
	return &cli.Command{
		Name:  "tree",
		Usage: "List a project's source files as the generator sees them",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Required: true, Usage: "Project slug"},
		},
		Action: withWorkspace(func(c *cli.Context, ws *workspace) error {
			tree, err := ops.GetTree(ws.env, c.String("project"))
			if err != nil {
				return outputError(err)
			}
			for _, entry := range tree {
				fmt.Fprintln(c.App.Writer, entry.Path)
			}
			return nil
		}),
	}
}

// ideasCmd creates the ideas command.
func ideasCmd() *cli.Command {
	return &cli.Command{
		Name:  "ideas",
		Usage: "List stored ideas",
		Action: withWorkspace(func(c *cli.Context, ws *workspace) error {
			ideas, err := ops.ListIdeas(ws.env)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, ideas)
		}),
	}
}

// runsCmd creates the runs command.
func runsCmd() *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "List recent runs, or the outcomes of one run",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum runs to list"},
			&cli.StringFlag{Name: "run", Usage: "Show the per-project outcomes of this run ID"},
		},
		Action: withWorkspace(func(c *cli.Context, ws *workspace) error {
			if id := c.String("run"); id != "" {
				outcomes, err := ws.ledger.Outcomes(id)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(c.App.Writer, outcomes)
			}
			if c.Int("limit") < 0 {
				return outputError(errors.NewInvalidRequest("limit must not be negative"))
			}
			runs, err := ws.ledger.Runs(c.Int("limit"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, runs)
		}),
	}
}

// serveCmd creates the serve command.
func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the MCP server over stdio",
		Action: withWorkspace(func(c *cli.Context, ws *workspace) error {
			if unknown := mcp.ValidateDisabledTools(ws.cfg.DisabledTools); len(unknown) > 0 {
				ws.logger.WithField("tools", unknown).Warn("unknown tools in disabled_tools")
			}
			if err := mcp.Run(ws.env, ws.ledger, ws.cfg, Version); err != nil {
				return outputError(err)
			}
			return nil
		}),
	}
}

// webCmd creates the web command.
func webCmd() *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Serve a read-only dashboard of projects, proposals and runs",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 8737, Usage: "Port to listen on"},
		},
		Action: withWorkspace(func(c *cli.Context, ws *workspace) error {
			port := c.Int("port")
			if port < 1 || port > 65535 {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("invalid port %d", port)))
			}
			srv, err := web.NewServer(ws.env, ws.ledger, ws.logger, Version, c.String("bind"), port)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if err := web.Run(c.Context, srv, ws.logger); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		}),
	}
}

// daemonCmd creates the daemon command.
func daemonCmd() *cli.Command {
	return &cli.Command{
		Name:  "daemon",
		Usage: "Run ideate, propose and iterate on the configured cron schedule until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "schedule", Usage: "Cron expression overriding the configured schedule"},
		},
		Action: withWorkspace(func(c *cli.Context, ws *workspace) error {
			expr := ws.cfg.Schedule
			if c.IsSet("schedule") {
				expr = c.String("schedule")
			}
			d, err := schedule.New(expr, schedule.Pipeline(ws.env), ws.logger)
			if err != nil {
				return outputError(err)
			}
			return d.Run(c.Context)
		}),
	}
}

// Helper functions

// printResults writes one line per project.
func printResults(w io.Writer, results []ops.ProjectResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "no projects")
		return
	}
	for _, r := range results {
		fmt.Fprintln(w, r.Line())
	}
}

// isRunLevel reports whether err ends the whole run rather than one item.
func isRunLevel(err error) bool {
	return errors.Is(err, errors.ErrConfig) || errors.Is(err, errors.ErrCancelled)
}

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	return cli.Exit(fmt.Sprintf("[%s] %s", errors.CodeOf(err), errorMessage(err)), 1)
}

func errorMessage(err error) string {
	var fErr *errors.ForgeError
	if stderrors.As(err, &fErr) && error(fErr) == err {
		return fErr.Message
	}
	return err.Error()
}
