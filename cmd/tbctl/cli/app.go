package cli

import (
	"io"
	"log/slog"
	"time"

	urfave "github.com/urfave/cli/v2"
)

// NewApp builds the tbctl command tree writing to stdout and stderr.
func NewApp(stdout, stderr io.Writer) *urfave.App {
	return &urfave.App{
		Name:      "tbctl",
		Usage:     "inspect the trial balance served by the accounting API",
		Writer:    stdout,
		ErrWriter: stderr,
		Commands: []*urfave.Command{
			{
				Name:  "show",
				Usage: "fetch the trial balance once and print it",
				Flags: []urfave.Flag{
					&urfave.StringFlag{Name: "base-url", Usage: "accounting API base URL", EnvVars: []string{"TB_API_BASE_URL"}, Value: "http://127.0.0.1:5000"},
					&urfave.StringFlag{Name: "token", Usage: "bearer credential", EnvVars: []string{"TB_API_TOKEN"}},
					&urfave.DurationFlag{Name: "timeout", Usage: "request timeout", EnvVars: []string{"TB_FETCH_TIMEOUT"}, Value: 30 * time.Second},
					&urfave.BoolFlag{Name: "json", Usage: "print the view-state as JSON"},
					&urfave.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log fetch details to stderr"},
				},
				Action: func(c *urfave.Context) error {
					level := slog.LevelWarn
					if c.Bool("verbose") {
						level = slog.LevelDebug
					}
					code := ShowCommand(c.Context, ShowOptions{
						BaseURL:    c.String("base-url"),
						Token:      c.String("token"),
						Timeout:    c.Duration("timeout"),
						JSONOutput: c.Bool("json"),
						Stdout:     stdout,
						Stderr:     stderr,
						Logger:     slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
					})
					if code != ExitOK {
						return urfave.Exit("", code)
					}
					return nil
				},
			},
		},
	}
}
