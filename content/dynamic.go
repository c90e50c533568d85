package content

import (
	"io"
	"os"
	"os/exec"

	"github.com/nczempin/tinyhttpd/errors"
	"github.com/nczempin/tinyhttpd/protocol"
	"github.com/nczempin/tinyhttpd/rio"
)

// QueryEnv is the environment variable a CGI program reads its arguments from
const QueryEnv = "QUERY_STRING"

// filer is implemented by connections that can be handed to a child
// process as its standard output.
type filer interface {
	File() *os.File
}

// ServeDynamic writes the status line and Server header, then runs the
// program at path with query in QUERY_STRING and its standard output wired
// to w. It returns once the program has exited.
//
// The status line is already sent when the program is started, so a launch
// failure can only be reported to the caller, not to the client.
func ServeDynamic(w io.Writer, path, query string) error {
	if _, err := rio.WriteFull(w, protocol.DynamicHeader()); err != nil {
		return err
	}

	cmd := &exec.Cmd{
		Path:   path,
		Args:   []string{path},
		Env:    ChildEnv(os.Environ(), query),
		Stderr: os.Stderr,
	}
	if f, ok := w.(filer); ok && f.File() != nil {
		cmd.Stdout = f.File()
	} else {
		cmd.Stdout = w
	}

	if err := cmd.Start(); err != nil {
		return errors.NewServeError(errors.ServeErrorExecFailure, path, err)
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return errors.NewServeError(errors.ServeErrorChildFailure, path, err)
		}
		return errors.NewTransportError(errors.TransportErrorSocketWriteFailure, "copying CGI output", err)
	}
	return nil
}

// ChildEnv returns base with QUERY_STRING set to query. Any inherited
// QUERY_STRING is dropped so the child sees exactly one.
func ChildEnv(base []string, query string) []string {
	prefix := QueryEnv + "="
	env := make([]string, 0, len(base)+1)
	for _, kv := range base {
		if len(kv) >= len(prefix) && kv[:len(prefix)] == prefix {
			continue
		}
		env = append(env, kv)
	}
	return append(env, prefix+query)
}
