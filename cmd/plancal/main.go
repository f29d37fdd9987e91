package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"plancal/internal/config"
	"plancal/internal/grid"
	"plancal/internal/icons"
	"plancal/internal/ics"
	appLog "plancal/internal/log"
	"plancal/internal/planner"
	"plancal/internal/refresh"
	"plancal/internal/remote"
	"plancal/internal/todo"
	"plancal/internal/tz"
	"plancal/internal/web"
)

const version = "0.1.0"

func main() {
	// .env is optional; it usually only carries PLANCAL_TOKEN.
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "plancal",
		Usage:   "Month planner backed by a remote event store.",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "./config.yaml",
				Usage:   "path to config file (created with defaults if missing)",
				EnvVars: []string{"PLANCAL_CONFIG"},
			},
			&cli.StringFlag{Name: "log-level", Usage: "override log_level from config"},
		},
		Commands: []*cli.Command{
			serveCommand(),
			gridCommand(),
			agendaCommand(),
			exportCommand(),
			importCommand(),
			todoCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		appLog.Error("plancal failed", err)
		os.Exit(1)
	}
}

// deps is everything a command needs, built from the config file.
type deps struct {
	cfg     *config.Config
	tz      *tz.Normalizer
	client  *remote.Client
	planner *planner.Planner
	todos   *todo.List
}

func setup(c *cli.Context) (*deps, error) {
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.ApplyEnv()

	level := cfg.LogLevel
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	appLog.SetLevel(appLog.ParseLevel(level))

	n, err := tz.New(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	store, err := icons.OpenFileStore(cfg.IconStorePath)
	if err != nil {
		return nil, fmt.Errorf("open icon store %s: %w", cfg.IconStorePath, err)
	}

	client := remote.NewClient(c.Context, remote.Options{
		BaseURL: cfg.APIURL,
		Token:   cfg.Token,
		Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
	})

	p := planner.New(planner.Options{
		Remote:          client,
		IconStore:       store,
		Normalizer:      n,
		IconPersistence: cfg.IconPersistence,
		IconAdvance:     cfg.IconAdvance,
	})

	appLog.Info("effective config",
		"config_path", path,
		"listen", cfg.Listen,
		"api_url", cfg.APIURL,
		"token_set", cfg.Token != "",
		"timezone", cfg.Timezone,
		"refresh", cfg.RefreshCron,
		"icon_persistence", cfg.IconPersistence,
		"icon_advance", cfg.IconAdvance,
		"icon_store_path", cfg.IconStorePath,
	)
	return &deps{cfg: cfg, tz: n, client: client, planner: p, todos: todo.New(client)}, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the planner HTTP API.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "HTTP listen address (overrides config if set)"},
		},
		Action: func(c *cli.Context) error {
			appLog.Info("plancal starting", "version", version)

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d, err := setup(c)
			if err != nil {
				return err
			}
			if l := c.String("listen"); l != "" {
				d.cfg.Listen = l
			}

			// 첫 로딩 실패는 치명적이지 않다. 에러 플래그만 세우고 계속 서빙한다.
			if err := d.planner.Refresh(ctx); err != nil {
				appLog.Warn("initial fetch failed", "error", err.Error())
			}
			if err := d.todos.Refresh(ctx); err != nil {
				appLog.Warn("initial todo fetch failed", "error", err.Error())
			}

			if refresh.Enabled(d.cfg.RefreshCron) {
				sched, err := refresh.New(d.cfg.RefreshCron, refresh.All{d.planner, d.todos}, time.Duration(d.cfg.RequestTimeoutSeconds)*time.Second)
				if err != nil {
					return err
				}
				sched.Start(ctx)
			}

			err = web.NewServer(d.cfg, d.planner, d.todos).ListenAndServe(ctx)
			appLog.Info("plancal exiting")
			return err
		},
	}
}

func gridCommand() *cli.Command {
	return &cli.Command{
		Name:  "grid",
		Usage: "Print one month.",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "year", Usage: "year (default: current)"},
			&cli.IntFlag{Name: "month", Usage: "month 1-12 (default: current)"},
			&cli.BoolFlag{Name: "json", Usage: "print JSON instead of text"},
		},
		Action: func(c *cli.Context) error {
			d, err := setup(c)
			if err != nil {
				return err
			}
			y, m := d.planner.Month()
			if c.IsSet("year") {
				y = c.Int("year")
			}
			if c.IsSet("month") {
				if c.Int("month") < 1 || c.Int("month") > 12 {
					return fmt.Errorf("month must be 1-12, got %d", c.Int("month"))
				}
				m = c.Int("month") - 1
			}
			if err := d.planner.Navigate(c.Context, y, m); err != nil {
				return err
			}

			g := d.planner.Grid()
			if c.Bool("json") {
				return writeJSON(c.App.Writer, g)
			}
			_, err = io.WriteString(c.App.Writer, grid.Text(g))
			return err
		},
	}
}

func agendaCommand() *cli.Command {
	return &cli.Command{
		Name:  "agenda",
		Usage: "List every event in chronological order.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print JSON instead of text"},
		},
		Action: func(c *cli.Context) error {
			d, err := setup(c)
			if err != nil {
				return err
			}
			if err := d.planner.Refresh(c.Context); err != nil {
				return err
			}
			items := d.planner.Agenda()
			if c.Bool("json") {
				return writeJSON(c.App.Writer, items)
			}
			for _, it := range items {
				fmt.Fprintf(c.App.Writer, "%s\t%s\n", it.Label, it.Event.Title)
			}
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write every event as iCalendar.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file (default: stdout)"},
		},
		Action: func(c *cli.Context) error {
			d, err := setup(c)
			if err != nil {
				return err
			}
			if err := d.planner.Refresh(c.Context); err != nil {
				return err
			}
			body := ics.Export(d.planner.Events(), d.tz, time.Now())
			if out := c.String("out"); out != "" {
				return config.WriteFileAtomic(out, []byte(body), ".plancal-export-*.tmp")
			}
			_, err = io.WriteString(c.App.Writer, body)
			return err
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Create events in the remote store from an .ics file.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "ICS file to read"},
			&cli.BoolFlag{Name: "dry-run", Usage: "parse and print without creating anything"},
		},
		Action: func(c *cli.Context) error {
			d, err := setup(c)
			if err != nil {
				return err
			}
			body, err := os.ReadFile(c.String("file"))
			if err != nil {
				return err
			}
			items, err := ics.Parse(body, d.tz)
			if err != nil {
				return err
			}

			created := 0
			for _, it := range items {
				if c.Bool("dry-run") {
					fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\n", it.Key, it.Event.Time, it.Event.Title)
					continue
				}
				id, err := d.client.Create(c.Context, it.Event)
				if err != nil {
					// 자동 재시도는 하지 않는다. 이미 생성된 항목은 그대로 둔다.
					return fmt.Errorf("import %s after %d created: %w", it.UID, created, err)
				}
				created++
				appLog.Info("imported event", "uid", it.UID, "event_id", id, "date_key", it.Key)
			}
			appLog.Info("import completed", "parsed", len(items), "created", created)
			return nil
		},
	}
}

func todoCommand() *cli.Command {
	// withList loads the list before running fn.
	withList := func(fn func(c *cli.Context, l *todo.List) error) cli.ActionFunc {
		return func(c *cli.Context) error {
			d, err := setup(c)
			if err != nil {
				return err
			}
			if err := d.todos.Refresh(c.Context); err != nil {
				return err
			}
			return fn(c, d.todos)
		}
	}

	return &cli.Command{
		Name:  "todo",
		Usage: "Show and edit the todo checklist.",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Print every entry.",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "print JSON instead of text"},
				},
				Action: withList(func(c *cli.Context, l *todo.List) error {
					if c.Bool("json") {
						return writeJSON(c.App.Writer, l.Items())
					}
					printTodos(c.App.Writer, l)
					return nil
				}),
			},
			{
				Name:      "add",
				Usage:     "Add an entry.",
				ArgsUsage: "<content>",
				Action: withList(func(c *cli.Context, l *todo.List) error {
					td, err := l.Add(c.Context, strings.Join(c.Args().Slice(), " "))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "added %d\n", td.ID)
					return nil
				}),
			},
			{
				Name:      "toggle",
				Usage:     "Flip an entry between open and done.",
				ArgsUsage: "<id>",
				Action: withList(func(c *cli.Context, l *todo.List) error {
					id, err := todoID(c)
					if err != nil {
						return err
					}
					if _, err := l.Toggle(c.Context, id); err != nil {
						return err
					}
					printTodos(c.App.Writer, l)
					return nil
				}),
			},
			{
				Name:      "rm",
				Usage:     "Delete an entry.",
				ArgsUsage: "<id>",
				Action: withList(func(c *cli.Context, l *todo.List) error {
					id, err := todoID(c)
					if err != nil {
						return err
					}
					if err := l.Delete(c.Context, id); err != nil {
						return err
					}
					printTodos(c.App.Writer, l)
					return nil
				}),
			},
		},
	}
}

func todoID(c *cli.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("todo id must be a positive integer, got %q", c.Args().First())
	}
	return id, nil
}

func printTodos(w io.Writer, l *todo.List) {
	for _, td := range l.Items() {
		mark := " "
		if td.Completed {
			mark = "x"
		}
		fmt.Fprintf(w, "[%s] %d\t%s\n", mark, td.ID, td.Content)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
