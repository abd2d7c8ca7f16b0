package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/jackc/signup/backend"
	"github.com/urfave/cli"
	"github.com/vaughan0/go-ini"
	log "gopkg.in/inconshreveable/log15.v2"
)

const version = "0.1.0"

func main() {
	app := cli.NewApp()
	app.Name = "signup"
	app.Usage = "Signup form with submit-time validation"
	app.Version = version

	app.Commands = []cli.Command{
		{
			Name:        "server",
			ShortName:   "s",
			Usage:       "run the server",
			Description: "run the signup form server",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "address, a", Value: "127.0.0.1", Usage: "address to listen on"},
				cli.StringFlag{Name: "port, p", Value: "8080", Usage: "port to listen on"},
				cli.StringFlag{Name: "config, c", Value: "signup.conf", Usage: "path to config file"},
			},
			Action: Serve,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the ini file at path. A missing file yields an empty
// config so the server can run on flags and defaults alone.
func loadConfig(path string) (ini.File, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("Invalid config path: %w", err)
	}

	file, err := ini.LoadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ini.File{}, nil
		}
		return nil, fmt.Errorf("Failed to load config file: %w", err)
	}

	return file, nil
}

func newLogger(conf ini.File) (log.Logger, error) {
	level, _ := conf.Get("log", "level")
	if level == "" {
		level = "warn"
	}

	logger := log.New()
	if err := setFilterHandler(level, logger, log.StdoutHandler); err != nil {
		return nil, err
	}

	return logger, nil
}

func setFilterHandler(level string, logger log.Logger, handler log.Handler) error {
	if level == "none" {
		logger.SetHandler(log.DiscardHandler())
		return nil
	}

	lvl, err := log.LvlFromString(level)
	if err != nil {
		return fmt.Errorf("Bad log level: %w", err)
	}
	logger.SetHandler(log.LvlFilterHandler(lvl, handler))

	return nil
}

type flagSource interface {
	String(name string) string
	IsSet(name string) bool
}

// loadHTTPConfig merges flags with the [server] section. Flags given on the
// command line win over the file; the file wins over flag defaults.
func loadHTTPConfig(c flagSource, conf ini.File) backend.HTTPConfig {
	config := backend.HTTPConfig{
		ListenAddress: c.String("address"),
		ListenPort:    c.String("port"),
	}

	if !c.IsSet("address") {
		if address, ok := conf.Get("server", "address"); ok {
			config.ListenAddress = address
		}
	}

	if !c.IsSet("port") {
		if port, ok := conf.Get("server", "port"); ok {
			config.ListenPort = port
		}
	}

	return config
}

func Serve(c *cli.Context) error {
	conf, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}

	logger, err := newLogger(conf)
	if err != nil {
		return err
	}

	httpConfig := loadHTTPConfig(c, conf)

	handler, err := backend.NewAppServer(httpConfig, logger.New("module", "http"))
	if err != nil {
		return err
	}

	listenAt := fmt.Sprintf("%s:%s", httpConfig.ListenAddress, httpConfig.ListenPort)
	fmt.Printf("Starting to listen on: %s\n", listenAt)

	if err := http.ListenAndServe(listenAt, handler); err != nil {
		logger.Crit("Could not start web server", "error", err)
		return err
	}

	return nil
}
