package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	goflags "github.com/jessevdk/go-flags"

	"xpdash/internal/backend"
	"xpdash/internal/core"
	"xpdash/internal/log"
	"xpdash/internal/pipeline"
	"xpdash/internal/source"
	"xpdash/internal/xp"
)

var ErrMissingCredentials = errors.New("login and password are required (--login/--password or XPDASH_LOGIN/XPDASH_PASSWORD)")

// runEnv is shared by every subcommand of one parser.
type runEnv struct {
	ctx     context.Context
	globals *GlobalFlags
	version string
	out     io.Writer
	now     func() time.Time
}

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Summary  *SummaryCommand
	Projects *ProjectsCommand
	Timeline *TimelineCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(ctx context.Context, version string, out io.Writer) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "xpdash"
	parser.LongDescription = "Sign in to the learning platform and print your XP totals, projects and progression."

	env := &runEnv{ctx: ctx, globals: &globals, version: version, out: out, now: time.Now}
	cmds := &commands{
		Summary:  &SummaryCommand{env: env},
		Projects: &ProjectsCommand{env: env},
		Timeline: &TimelineCommand{env: env},
	}

	parser.AddCommand("summary", "Show XP totals and audit ratio", "Show all-time and six-month XP totals with their breakdown, the audit ratio and pass/fail counts.", cmds.Summary)
	parser.AddCommand("projects", "Show XP per project", "Show the all-time XP earned per project, largest first.", cmds.Projects)
	parser.AddCommand("timeline", "Show cumulative XP", "Show the cumulative XP of the last six months, one line per day.", cmds.Timeline)

	return parser, &globals, cmds
}

// Run is the main entry point for the CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil, os.Stdout)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the
// matched subcommand, writing its output to out.
func RunWithArgs(version string, args []string, out io.Writer) error {
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Fprintf(out, "xpdash %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	parser, _, _ := buildParser(ctx, version, out)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		var flagsErr *goflags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == goflags.ErrHelp {
			return nil
		}
		return err
	}

	return nil
}

// loadProfile signs in with the global credentials and runs the pipeline.
func (e *runEnv) loadProfile() (*core.Profile, error) {
	ctx := e.ctx
	g := e.globals
	if strings.TrimSpace(g.Login) == "" || g.Password == "" {
		return nil, ErrMissingCredentials
	}

	now := e.now()
	if g.AsOf != "" {
		at, err := time.Parse(time.RFC3339, g.AsOf)
		if err != nil {
			return nil, fmt.Errorf("invalid --as-of %q: %w", g.AsOf, err)
		}
		now = at
	}

	logCfg := log.DefaultConfig()
	logCfg.Level = log.ParseLevel(g.LogLevel)
	logCfg.Output = os.Stderr
	logger := log.New(logCfg).WithComponent(log.ComponentCLI)

	heuristics, err := xp.LoadHeuristics(g.Heuristics)
	if err != nil {
		return nil, err
	}

	result, err := backend.NewFactory(logger).CreateBackend(ctx, backend.Config{
		Type:         backend.BackendType(g.Backend),
		GraphQLURL:   g.GraphQLURL,
		SigninURL:    g.SigninURL,
		FixturesPath: g.Fixtures,
	})
	if err != nil {
		return nil, err
	}
	if result.Cleanup != nil {
		defer func() { _ = result.Cleanup() }()
	}

	token, err := result.Backend.SignIn(ctx, strings.TrimSpace(g.Login), g.Password)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	loader := pipeline.New(heuristics,
		source.PageOptions{PageSize: g.PageSize, MaxPages: g.MaxPages},
		pipeline.WithLogger(logger))
	profile, err := loader.Load(ctx, result.Backend.WithToken(token), now)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return profile, nil
}
