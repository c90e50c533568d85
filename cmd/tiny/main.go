// Command tiny is an iterative HTTP/1.0 web server. It serves static files
// from a document root and runs programs under cgi-bin, one connection at a
// time.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/nczempin/tinyhttpd/protocol"
	"github.com/nczempin/tinyhttpd/server"
	"github.com/nczempin/tinyhttpd/transport"
)

// Config holds all server settings that come from the command line
type Config struct {
	Port     int              // TCP port to listen on, the positional argument
	Root     string           // document root all request paths are relative to
	Engine   transport.Engine // how connections read and write
	UnixPath string           // listen on this Unix socket instead; no port is given
	Echo     bool             // print discarded request headers to stdout
	Verbose  bool             // log request outcomes and connection failures
}

func usage(fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprintf(fs.Output(), "usage: %s [flags] <port>\n       %s [flags] -unix <path>\n", fs.Name(), fs.Name())
		fs.PrintDefaults()
	}
}

func parseConfig(args []string, stderr io.Writer) (Config, error) {
	fs := flag.NewFlagSet("tiny", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = usage(fs)

	var cfg Config
	var engine string
	fs.StringVar(&cfg.Root, "root", protocol.DefaultRoot, "document root")
	fs.StringVar(&engine, "engine", string(transport.EngineStd), "I/O engine: std, iouring or uring")
	fs.StringVar(&cfg.UnixPath, "unix", "", "listen on a Unix domain socket at this path")
	fs.BoolVar(&cfg.Echo, "echo", false, "echo request headers to stdout")
	fs.BoolVar(&cfg.Verbose, "v", false, "log every request")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	var err error
	if cfg.Engine, err = transport.ParseEngine(engine); err != nil {
		return cfg, err
	}

	if cfg.UnixPath != "" {
		if fs.NArg() != 0 {
			fs.Usage()
			return cfg, fmt.Errorf("-unix takes no port argument, got %q", fs.Args())
		}
		return cfg, nil
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return cfg, fmt.Errorf("expected exactly one port argument, got %d", fs.NArg())
	}

	if cfg.Port, err = strconv.Atoi(fs.Arg(0)); err != nil {
		fs.Usage()
		return cfg, fmt.Errorf("invalid port %q: %w", fs.Arg(0), err)
	}
	return cfg, nil
}

func listen(cfg Config) (*transport.Listener, error) {
	if cfg.UnixPath != "" {
		return transport.ListenUnix(cfg.UnixPath, cfg.Engine)
	}
	return transport.ListenTCP(cfg.Port, cfg.Engine)
}

// serve runs srv until accepting fails and closes the listener on the way
// out, which also removes a Unix socket file.
func serve(srv *server.Server) error {
	defer srv.Close()
	return srv.Run()
}

func main() {
	cfg, err := parseConfig(os.Args[1:], os.Stderr)
	if err != nil {
		if err != flag.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}

	l, err := listen(cfg)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}

	h := &server.Handler{Root: cfg.Root}
	if cfg.Echo {
		h.HeaderEcho = os.Stdout
	}

	var logger *log.Logger
	if cfg.Verbose {
		logger = log.New(os.Stderr, "tiny: ", log.LstdFlags)
		h.Logger = logger
	}

	if cfg.UnixPath != "" {
		log.Printf("serving %s on unix:%s (engine %s)", cfg.Root, cfg.UnixPath, l.Engine())
	} else {
		log.Printf("serving %s on port %d (engine %s)", cfg.Root, l.Port(), l.Engine())
	}

	srv := server.New(l, h, logger)
	if err := serve(srv); err != nil {
		log.Fatalf("accept: %v", err)
	}
}
