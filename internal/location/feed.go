package location

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os/exec"
	"strings"
	"sync"

	"storeloc/internal/geo"
)

// Feed reads user locations, one "lat,lon" line at a time, from a TCP
// connection or a local command such as gpspipe.
type Feed struct {
	conn      io.ReadCloser
	cmd       *exec.Cmd
	source    string
	parser    *LineParser
	updates   chan geo.LatLon
	errs      chan error
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// LineParser parses location lines. Blank lines and lines starting with
// '#' carry no location.
type LineParser struct{}

// NewLineParser creates a new line parser
func NewLineParser() *LineParser {
	return &LineParser{}
}

// Parse returns the location on line, or ok=false when the line has none
func (p *LineParser) Parse(line string) (loc geo.LatLon, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return geo.LatLon{}, false, nil
	}

	// Accept "lat,lon" and "lat lon"
	if !strings.Contains(line, ",") {
		line = strings.Join(strings.Fields(line), ",")
	}

	loc, err = geo.ParseLatLon(line)
	if err != nil {
		return geo.LatLon{}, false, err
	}
	return loc, true, nil
}

// NewNetworkFeed connects to a location server
// addr should be in format "host:port", e.g., "192.168.1.100:2947"
func NewNetworkFeed(addr string) (*Feed, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return newFeed(conn, nil, addr), nil
}

// NewCommandFeed runs a command and reads locations from its stdout
func NewCommandFeed(command string) (*Feed, error) {
	args := strings.Fields(command)
	if len(args) == 0 {
		return nil, fmt.Errorf("empty location command")
	}

	cmd := exec.Command(args[0], args[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", args[0], err)
	}

	return newFeed(stdout, cmd, args[0]), nil
}

// NewReaderFeed reads locations from r
func NewReaderFeed(r io.ReadCloser, source string) *Feed {
	return newFeed(r, nil, source)
}

func newFeed(conn io.ReadCloser, cmd *exec.Cmd, source string) *Feed {
	return &Feed{
		conn:    conn,
		cmd:     cmd,
		source:  source,
		parser:  NewLineParser(),
		updates: make(chan geo.LatLon, 16),
		errs:    make(chan error, 10),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start begins reading locations
func (f *Feed) Start() {
	go f.readLoop()
}

// Updates returns a channel of parsed locations
func (f *Feed) Updates() <-chan geo.LatLon {
	return f.updates
}

// Errors returns a channel of read and parse errors
func (f *Feed) Errors() <-chan error {
	return f.errs
}

// Close stops reading and kills the command if one was started
func (f *Feed) Close() error {
	f.closeOnce.Do(func() {
		close(f.quit)

		// Closing the reader stops readLoop
		if f.conn != nil {
			f.conn.Close()
		}

		if f.cmd != nil && f.cmd.Process != nil {
			f.cmd.Process.Kill()
			f.cmd.Wait()
		}

		<-f.done

		close(f.updates)
		close(f.errs)
	})
	return nil
}

func (f *Feed) readLoop() {
	defer close(f.done)

	scanner := bufio.NewScanner(f.conn)
	for scanner.Scan() {
		loc, ok, err := f.parser.Parse(scanner.Text())
		if err != nil {
			f.report(fmt.Errorf("%s: %w", f.source, err))
			continue
		}
		if !ok {
			continue
		}
		select {
		case f.updates <- loc:
		case <-f.quit:
			return
		}
	}

	if err := scanner.Err(); err != nil {
		f.report(fmt.Errorf("error reading from %s: %w", f.source, err))
	}
}

// report drops errors when nobody is reading them
func (f *Feed) report(err error) {
	select {
	case f.errs <- err:
	default:
	}
}
