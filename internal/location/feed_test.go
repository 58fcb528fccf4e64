package location

import (
	"io"
	"net"
	"testing"
	"time"

	"storeloc/internal/geo"
)

func TestLineParser(t *testing.T) {
	tests := []struct {
		line    string
		want    geo.LatLon
		ok      bool
		wantErr bool
	}{
		{line: "38.9,-77.03", want: geo.LatLon{Lat: 38.9, Lon: -77.03}, ok: true},
		{line: "  38.9  -77.03 ", want: geo.LatLon{Lat: 38.9, Lon: -77.03}, ok: true},
		{line: "", ok: false},
		{line: "# comment", ok: false},
		{line: "not,a location", wantErr: true},
		{line: "200,0", wantErr: true},
	}

	p := NewLineParser()
	for _, tt := range tests {
		got, ok, err := p.Parse(tt.line)
		if (err != nil) != tt.wantErr {
			t.Fatalf("Parse(%q) error = %v", tt.line, err)
		}
		if ok != tt.ok || got != tt.want {
			t.Errorf("Parse(%q) = %v, %v; want %v, %v", tt.line, got, ok, tt.want, tt.ok)
		}
	}
}

func TestReaderFeed(t *testing.T) {
	server, client := net.Pipe()
	feed := NewReaderFeed(client, "pipe")
	feed.Start()

	go func() {
		io.WriteString(server, "38.9,-77.03\ngarbage\n38.91,-77.02\n")
	}()

	want := []geo.LatLon{{Lat: 38.9, Lon: -77.03}, {Lat: 38.91, Lon: -77.02}}
	for _, w := range want {
		select {
		case got := <-feed.Updates():
			if got != w {
				t.Fatalf("update = %v, want %v", got, w)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for update")
		}
	}

	select {
	case err := <-feed.Errors():
		if err == nil {
			t.Fatal("expected parse error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for parse error")
	}

	server.Close()
	feed.Close()

	if _, ok := <-feed.Updates(); ok {
		t.Fatal("updates should be closed")
	}
}

func TestCloseWhileBlocked(t *testing.T) {
	server, client := net.Pipe()
	feed := NewReaderFeed(client, "pipe")
	feed.Start()

	// Fill the updates buffer so readLoop blocks on send
	go func() {
		for i := 0; i < 40; i++ {
			if _, err := io.WriteString(server, "1,1\n"); err != nil {
				return
			}
		}
	}()
	time.Sleep(50 * time.Millisecond)

	closed := make(chan struct{})
	go func() {
		feed.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close blocked")
	}
	server.Close()
}

func TestNewCommandFeedRejectsEmpty(t *testing.T) {
	if _, err := NewCommandFeed("  "); err == nil {
		t.Fatal("expected error for empty command")
	}
}
