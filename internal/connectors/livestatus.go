package connectors

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/xela07ax/site-overview/internal/query"
)

// Заголовок fixed16: "200          1234\n" — код и длина тела.
const fixed16Len = 16

// LivestatusClient ходит в Livestatus одного сайта по tcp или unix-сокету.
// Соединение на каждый запрос (KeepAlive: off), состояние между вызовами не хранится.
type LivestatusClient struct {
	siteID  string
	network string
	address string
	dialer  net.Dialer
}

// NewLivestatusClient принимает адрес вида "tcp:host:6557" или "unix:/omd/sites/x/tmp/run/live".
func NewLivestatusClient(siteID, address string, dialTimeout time.Duration) (*LivestatusClient, error) {
	network, addr, ok := strings.Cut(address, ":")
	if !ok || addr == "" {
		return nil, fmt.Errorf("livestatus: invalid address %q for site %s", address, siteID)
	}
	if network != "tcp" && network != "unix" {
		return nil, fmt.Errorf("livestatus: unsupported network %q for site %s", network, siteID)
	}
	return &LivestatusClient{
		siteID:  siteID,
		network: network,
		address: addr,
		dialer:  net.Dialer{Timeout: dialTimeout},
	}, nil
}

// SupportsStats — Livestatus умеет Stats/StatsAnd/StatsOr на своей стороне
func (c *LivestatusClient) SupportsStats() bool { return true }

func (c *LivestatusClient) Query(ctx context.Context, req query.Request) ([]query.Row, error) {
	if len(req.OnlySites) > 0 && !slices.Contains(req.OnlySites, c.siteID) {
		return nil, nil
	}

	body, err := c.roundTrip(ctx, req.LQL())
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw [][]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("livestatus: failed to decode response from %s: %w", c.siteID, err)
	}

	rows := make([]query.Row, 0, len(raw))
	for _, r := range raw {
		if req.PrependSite {
			r = append([]any{c.siteID}, r...)
		}
		rows = append(rows, query.Row(r))
	}
	return rows, nil
}

// Ping — самый дешевый запрос к таблице status
func (c *LivestatusClient) Ping(ctx context.Context) error {
	_, err := c.roundTrip(ctx, "GET status\nColumns: program_version\n")
	return err
}

func (c *LivestatusClient) roundTrip(ctx context.Context, lql string) ([]byte, error) {
	conn, err := c.dialer.DialContext(ctx, c.network, c.address)
	if err != nil {
		return nil, fmt.Errorf("livestatus: dial %s: %w", c.siteID, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	// 1. Запрос + служебные заголовки, пустая строка завершает запрос
	request := lql + "OutputFormat: json\nResponseHeader: fixed16\nKeepAlive: off\n\n"
	if _, err := io.WriteString(conn, request); err != nil {
		return nil, fmt.Errorf("livestatus: write to %s: %w", c.siteID, err)
	}

	// 2. Заголовок ответа
	r := bufio.NewReader(conn)
	header := make([]byte, fixed16Len)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("livestatus: read header from %s: %w", c.siteID, err)
	}
	code, length, err := parseFixed16(header)
	if err != nil {
		return nil, fmt.Errorf("livestatus: %s: %w", c.siteID, err)
	}

	// 3. Тело ровно указанной длины
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("livestatus: read body from %s: %w", c.siteID, err)
	}
	if code != 200 {
		return nil, &StatusError{Code: code, Message: strings.TrimSpace(string(body))}
	}
	return body, nil
}

func parseFixed16(header []byte) (int, int, error) {
	if len(header) != fixed16Len || header[fixed16Len-1] != '\n' {
		return 0, 0, fmt.Errorf("invalid response header %q", header)
	}
	code, err := strconv.Atoi(string(header[:3]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid status code in header %q", header)
	}
	length, err := strconv.Atoi(strings.TrimSpace(string(header[3 : fixed16Len-1])))
	if err != nil || length < 0 {
		return 0, 0, fmt.Errorf("invalid content length in header %q", header)
	}
	return code, length, nil
}
