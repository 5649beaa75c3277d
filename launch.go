package glyph

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

// bootstrap is fed to the launched interpreter on stdin. It loads the
// Glyph package, binds the server to the port we picked, announces the
// version on stdout, and enters the message loop.
const bootstrap = "package require PWI_Glyph\n" +
	"pw::Script setServerPort %d\n" +
	"puts \"Server: [pw::Application getVersion]\"\n" +
	"pw::Script processServerMessages -timeout 10\n"

// Launcher owns a Glyph Server subprocess started for a private session.
type Launcher struct {
	cmd   *exec.Cmd
	stdin *os.File
	port  int

	// lines carries the merged stdout/stderr of the server, one line at
	// a time, closed when the output streams drain.
	lines chan string
	// done is closed once the process has been reaped.
	done    chan struct{}
	waitErr error
}

// StartServer launches a Glyph Server on a free port and waits for its
// first line of output, which signals that startup and licensing
// succeeded. The context bounds that wait.
func StartServer(ctx context.Context, opts Options) (*Launcher, error) {
	prog := opts.LaunchProgram
	args := opts.LaunchArgs
	if prog == "" {
		if runtime.GOOS == "windows" {
			prog = "tclsh"
		} else {
			prog = "pointwise"
			if args == nil {
				args = []string{"-b"}
			}
		}
	}
	path, err := exec.LookPath(prog)
	if err != nil {
		return nil, fmt.Errorf("server program %q not found in path: %w", prog, err)
	}

	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("finding a free server port: %w", err)
	}

	cmd := exec.Command(path, args...)

	inR, inW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		inR.Close()
		inW.Close()
		return nil, err
	}
	cmd.Stdin = inR
	cmd.Stdout = outW
	cmd.Stderr = outW

	if err := cmd.Start(); err != nil {
		inR.Close()
		inW.Close()
		outR.Close()
		outW.Close()
		return nil, fmt.Errorf("starting server %q: %w", path, err)
	}
	// The child holds its own copies of the pipe ends.
	inR.Close()
	outW.Close()

	l := &Launcher{
		cmd:   cmd,
		stdin: inW,
		port:  port,
		lines: make(chan string, 64),
		done:  make(chan struct{}),
	}

	firstLine := make(chan struct{})
	go l.scanOutput(outR, firstLine)
	go func() {
		l.waitErr = cmd.Wait()
		close(l.done)
	}()

	if _, err := fmt.Fprintf(inW, bootstrap, port); err != nil {
		l.kill()
		return nil, fmt.Errorf("writing server bootstrap: %w", err)
	}

	// Startup is only done once the server says something: license
	// acquisition can take a while and can fail silently otherwise.
	select {
	case <-firstLine:
		log.WithFields(logrus.Fields{"program": path, "port": port}).Info("glyph server launched")
	case <-l.done:
		l.kill()
		return nil, fmt.Errorf("server exited during startup: %v", l.waitErr)
	case <-ctx.Done():
		l.kill()
		return nil, fmt.Errorf("waiting for server startup: %w", ctx.Err())
	}
	return l, nil
}

// scanOutput forwards the server's merged output line by line.
func (l *Launcher) scanOutput(r *os.File, firstLine chan<- struct{}) {
	defer close(l.lines)
	defer r.Close()
	scanner := bufio.NewScanner(r)
	seen := false
	for scanner.Scan() {
		if !seen {
			seen = true
			close(firstLine)
		}
		l.lines <- scanner.Text()
	}
}

// Lines returns the server's output stream. The channel closes when the
// server's output streams drain.
func (l *Launcher) Lines() <-chan string {
	return l.lines
}

// Port returns the port the server was told to listen on.
func (l *Launcher) Port() int {
	return l.port
}

// Stop closes the server's stdin, which ends its message loop, and
// waits up to grace for a clean exit before killing it.
func (l *Launcher) Stop(grace time.Duration) error {
	l.stdin.Close()
	select {
	case <-l.done:
		log.Info("glyph server exited")
		return l.waitErr
	case <-time.After(grace):
	}
	log.WithField("grace", grace).Info("glyph server still running, killing")
	l.kill()
	return l.waitErr
}

func (l *Launcher) kill() {
	l.stdin.Close()
	if l.cmd.Process != nil {
		l.cmd.Process.Kill()
	}
	// Nothing may be reading the line channel by now, and a chatty server
	// can have filled it and wedged the output scanner mid-send. Discard
	// what remains so the scanner exits and releases its pipe end.
	go func() {
		for range l.lines {
		}
	}()
	<-l.done
}

// freePort asks the kernel for an unused TCP port.
func freePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}
