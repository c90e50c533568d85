// Command tinyget fetches one URI from an HTTP/1.0 server and copies the
// raw response to stdout.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"

	"github.com/nczempin/tinyhttpd/client"
	"github.com/nczempin/tinyhttpd/rio"
)

func main() {
	method := flag.String("X", "GET", "request method")
	unixPath := flag.String("unix", "", "connect to a Unix domain socket instead of host:port")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <host> <port> <uri>\n       %s -unix <path> <uri>\n", os.Args[0], os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	var c *client.HttpClient
	var uri string
	switch {
	case *unixPath != "" && flag.NArg() == 1:
		c = client.NewHttpClient("unix", *unixPath)
		uri = flag.Arg(0)
	case *unixPath == "" && flag.NArg() == 3:
		c = client.NewHttpClient("tcp", net.JoinHostPort(flag.Arg(0), flag.Arg(1)))
		uri = flag.Arg(2)
	default:
		flag.Usage()
		os.Exit(1)
	}

	raw, err := c.DoRaw(*method, uri)
	if err != nil {
		log.Fatalf("tinyget: %v", err)
	}
	if _, err := rio.WriteFull(os.Stdout, raw); err != nil {
		log.Fatalf("tinyget: %v", err)
	}
}
