package connectors

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/site-overview/internal/query"
)

// fakeLivestatus отвечает один раз на каждое соединение и возвращает полученный запрос в канал.
func fakeLivestatus(t *testing.T, code int, body string) (string, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	got := make(chan string, 4)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			r := bufio.NewReader(conn)
			var req strings.Builder
			for {
				line, err := r.ReadString('\n')
				if err != nil || line == "\n" {
					break
				}
				req.WriteString(line)
			}
			got <- req.String()
			fmt.Fprintf(conn, "%03d %11d\n%s", code, len(body), body)
			conn.Close()
		}
	}()
	return "tcp:" + ln.Addr().String(), got
}

func TestLivestatusClient_Query(t *testing.T) {
	addr, got := fakeLivestatus(t, 200, `[["web01",0,0,12,0,0,1],["db01",1,1,4,1,0,0]]`)
	c, err := NewLivestatusClient("muc", addr, time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	rows, err := c.Query(ctx, query.Request{Table: "hosts", Columns: query.HostStatusColumns, PrependSite: true})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "muc", rows[0][0])
	assert.Equal(t, "web01", rows[0][1])
	assert.Len(t, rows[1], 8)

	req := <-got
	assert.True(t, strings.HasPrefix(req, "GET hosts\nColumns: name scheduled_downtime_depth state"), req)
	assert.Contains(t, req, "OutputFormat: json\n")
	assert.Contains(t, req, "ResponseHeader: fixed16\n")
}

func TestLivestatusClient_OnlySitesSkipsForeignSite(t *testing.T) {
	c, err := NewLivestatusClient("muc", "tcp:127.0.0.1:1", time.Second)
	require.NoError(t, err)

	rows, err := c.Query(context.Background(), query.Request{Table: "hosts", OnlySites: []string{"ham"}})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLivestatusClient_ErrorStatus(t *testing.T) {
	addr, _ := fakeLivestatus(t, 400, "Invalid GET request, no such table 'hostz'")
	c, err := NewLivestatusClient("muc", addr, time.Second)
	require.NoError(t, err)

	_, err = c.Query(context.Background(), query.Request{Table: "hostz"})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 400, se.Code)
	assert.Contains(t, se.Message, "no such table")
}

func TestLivestatusClient_Ping(t *testing.T) {
	addr, got := fakeLivestatus(t, 200, `[["2.4.0"]]`)
	c, err := NewLivestatusClient("muc", addr, time.Second)
	require.NoError(t, err)

	require.NoError(t, c.Ping(context.Background()))
	assert.Contains(t, <-got, "GET status")
}

func TestNewLivestatusClient_InvalidAddress(t *testing.T) {
	for _, addr := range []string{"", "localhost", "udp:1.2.3.4:6557", "tcp:"} {
		_, err := NewLivestatusClient("muc", addr, time.Second)
		assert.Error(t, err, addr)
	}
}

func TestParseFixed16(t *testing.T) {
	code, length, err := parseFixed16([]byte("200          123\n"))
	require.NoError(t, err)
	assert.Equal(t, 200, code)
	assert.Equal(t, 123, length)

	_, _, err = parseFixed16([]byte("garbage garbage!"))
	assert.Error(t, err)
}
