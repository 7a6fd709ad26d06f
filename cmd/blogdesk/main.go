// Command blogdesk is the blog client: it serves the navigation shell and
// runs single store actions from the command line.
//
// Usage:
//
//	blogdesk [global flags] <command> [command flags]
//
// Commands: serve, login, register, logout, whoami, posts, notifications,
// theme.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags override configuration values when set.
type globalFlags struct {
	apiBaseURL string
	storage    string
	locale     string
	logLevel   string
}

func (g *globalFlags) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&g.apiBaseURL, "api", "", "blog API base URL (overrides API_BASE_URL)")
	fs.StringVar(&g.storage, "storage", "", "storage driver: file, redis, sqlite or memory (overrides STORAGE_DRIVER)")
	fs.StringVar(&g.locale, "locale", "", "message locale, en or zh-CN (overrides LOCALE)")
	fs.StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"serve", "serve the navigation shell", cmdServe},
	{"login", "sign in and persist the session", cmdLogin},
	{"register", "create an account and sign in", cmdRegister},
	{"logout", "end the session", cmdLogout},
	{"whoami", "verify and print the current session", cmdWhoami},
	{"posts", "list posts", cmdPosts},
	{"notifications", "list or mark notifications", cmdNotifications},
	{"theme", "print, set or toggle the theme", cmdTheme},
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	var global globalFlags
	fs := pflag.NewFlagSet("blogdesk", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(io.Discard)
	global.addFlags(fs)
	help := fs.BoolP("help", "h", false, "show help")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stdout, fs)
			return nil
		}
		return err
	}
	if *help || fs.NArg() == 0 {
		printHelp(stdout, fs)
		return nil
	}

	name := fs.Arg(0)
	var cmd *command
	for i := range commands {
		if commands[i].name == name {
			cmd = &commands[i]
			break
		}
	}
	if cmd == nil {
		return fmt.Errorf("unknown command %q (run with --help)", name)
	}

	a, err := bootstrap(ctx, global, stdout)
	if err != nil {
		return err
	}
	defer a.close()

	return cmd.run(ctx, a, fs.Args()[1:])
}

func printHelp(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintln(w, "Usage: blogdesk [global flags] <command> [command flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-14s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global flags:")
	fmt.Fprint(w, fs.FlagUsages())
}
