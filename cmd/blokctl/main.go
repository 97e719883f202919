// Command blokctl drives the blok REST API from a terminal: sign in, browse
// and react to posts, manage comments and run the admin screens.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/damoang/blok-client/internal/common"
	"github.com/damoang/blok-client/internal/config"
	pkglogger "github.com/damoang/blok-client/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "error:", userMessage(err))
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("blokctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", "", "config file path (default configs/config.<APP_ENV>.yaml)")
	verbose := global.Bool("v", false, "debug logging")
	global.Usage = func() { usage(global) }
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return flag.ErrHelp
	}
	name, rest := global.Arg(0), global.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		global.Usage()
		return fmt.Errorf("unknown command %q", name)
	}

	dotenvFiles := config.LoadDotEnv(os.Getenv("APP_ENV"))
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	pkglogger.InitStructuredTo(env, stderr)
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log := pkglogger.WithComponent("blokctl")
	log.Debug().Strs("dotenv", dotenvFiles).Msg("env loaded")

	path := *configPath
	if path == "" {
		path = config.Path(env)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	config.LogResolved(cfg, log)

	a, err := newApp(ctx, cfg, stdout, stderr, log)
	if err != nil {
		return err
	}
	defer a.close()

	if !cmd.offline {
		a.restore(ctx)
	}
	if err := cmd.run(ctx, a, rest); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			a.report(name, err)
		}
		return err
	}
	return nil
}

// userMessage AppError 는 사용자 메시지만 출력
func userMessage(err error) string {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func usage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintln(out, "usage: blokctl [-config path] [-v] <command> [args]")
	fmt.Fprintln(out, "\ncommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-12s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(out, "\nflags:")
	fs.PrintDefaults()
}
