package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
)

const usage = `usage: countctl [flags] <command> [args]

commands:
  token <secret>                          issue a token for -operator
  new <location>                          start a count at a location
  list [status]                           list sessions
  show <session>                          show a session and its lines
  scan <session> <code>                   match a scanned batch code
  count <session> <line> <quantity>       record a counted quantity
  breakdown <session> <line> <cases> <boxes> <pieces>
                                          record a count by packaging
  notfound <session> <line>               mark a line not found (asks first)
  skip <session> <line>                   skip a line for now
  finalize <session>                      close the count
  cancel <session> <reason...>            cancel the count
  lookup <code>                           look up a batch outside a session
  export <session> <file.xlsx>            download the count sheet
`

func main() {
	var (
		baseURL  = flag.String("url", envOr("STOCKCOUNT_URL", "http://localhost:8080"), "stockcount server URL")
		token    = flag.String("token", os.Getenv("STOCKCOUNT_TOKEN"), "bearer token")
		operator = flag.String("operator", os.Getenv("STOCKCOUNT_OPERATOR"), "operator name for the token command")
		verbose  = flag.Bool("verbose", false, "log requests to stderr")
	)
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cli := &CLI{
		BaseURL:  *baseURL,
		Token:    *token,
		Operator: *operator,
		In:       os.Stdin,
		Out:      os.Stdout,
		Logger:   logger,
	}
	if err := cli.Run(context.Background(), flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			flag.Usage()
		}
		os.Exit(1)
	}
}

func envOr(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}
