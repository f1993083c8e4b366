package lichessfast

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/cheese-board-stream/internal/streamsup"
)

const maxLineBytes = 1 << 20

// NDJSONTransport opens Board API streams as long-lived HTTP responses
// carrying one JSON document per line.
type NDJSONTransport struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func NewNDJSONTransport(baseURL string, httpClient *http.Client, logger *zap.Logger) *NDJSONTransport {
	if httpClient == nil {
		// no client timeout: the body stays open for the life of the stream
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NDJSONTransport{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient, logger: logger}
}

// Open returns once the remote has answered 200. ctx bounds the whole stream.
func (t *NDJSONTransport) Open(ctx context.Context, target streamsup.Target, credential string) (streamsup.Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+target.Path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/x-ndjson")
	for k, v := range BearerHeaders(credential) {
		req.Header.Set(k, v)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return nil, &StatusError{Path: target.Path, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	t.logger.Debug("ndjson_stream_open", zap.String("path", target.Path))

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &ndjsonStream{body: resp.Body, scanner: sc}, nil
}

type ndjsonStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

// ReadLine returns the next line, blank keep-alives included.
func (s *ndjsonStream) ReadLine(ctx context.Context) (string, error) {
	stop := context.AfterFunc(ctx, func() { _ = s.body.Close() })
	defer stop()

	if s.scanner.Scan() {
		return s.scanner.Text(), nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *ndjsonStream) Close() error { return s.body.Close() }
