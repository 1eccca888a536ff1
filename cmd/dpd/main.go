package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/samiuddin-code/datportal-sub005/internal/daemon"
	"github.com/samiuddin-code/datportal-sub005/internal/profile"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	consoleFlag := flag.String("config", "", "console.toml path (default: the profile's)")
	levelFlag := flag.String("log-level", "info", "log level: debug, info, warn, error")
	foreground := flag.Bool("foreground", false, "also log to stderr")
	flag.Parse()

	name := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(name); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{
			Profile:     name,
			ConsolePath: *consoleFlag,
			LogLevel:    *levelFlag,
			Foreground:  *foreground,
		}),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			l := &fxevent.ZapLogger{Logger: logger.Named("fx")}
			l.UseLogLevel(zap.DebugLevel)
			return l
		}),
	)
	if err := app.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app.Run()
}
