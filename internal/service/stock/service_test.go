package stock

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newQuoteServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		q := r.URL.Query()
		if q.Get("f") != "sd2t2ohlcv" || q.Get("e") != "csv" {
			t.Errorf("unexpected quote query %q", r.URL.RawQuery)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestReplyWithQuote(t *testing.T) {
	var symbol string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		symbol = r.URL.Query().Get("s")
		_, _ = w.Write([]byte("Symbol,Date,Time,Open,High,Low,Close,Volume\n" +
			"AAPL.US,2025-01-22,16:15:22,219.79,223.3528,219.79,222.4683,8385754\n"))
	}))
	defer server.Close()

	svc := New(server.Client(), server.URL)
	got := svc.Reply(context.Background(), "aapl.us")
	if got != "AAPL.US quote is $219.79 per share" {
		t.Fatalf("unexpected reply %q", got)
	}
	if symbol != "AAPL.US" {
		t.Fatalf("expected upper-cased symbol in request, got %q", symbol)
	}
}

func TestReplyWithoutData(t *testing.T) {
	server, _ := newQuoteServer(t, http.StatusOK,
		"Symbol,Date,Time,Open,High,Low,Close,Volume\nBAD.US,N/D,N/D,N/D,N/D,N/D,N/D,N/D\n")
	svc := New(server.Client(), server.URL)

	if got := svc.Reply(context.Background(), "BAD.US"); got != "No data available for stock code BAD.US" {
		t.Fatalf("unexpected reply %q", got)
	}

	_, err := svc.Quote(context.Background(), "BAD.US")
	var stockErr *Error
	if !errors.As(err, &stockErr) || stockErr.Code != ErrorCodeNoData {
		t.Fatalf("expected no_data error, got %v", err)
	}
}

func TestReplyHeaderOnly(t *testing.T) {
	server, _ := newQuoteServer(t, http.StatusOK, "Symbol,Date,Time,Open,High,Low,Close,Volume\n")
	svc := New(server.Client(), server.URL)

	if got := svc.Reply(context.Background(), "MSFT.US"); got != "No data available for stock code MSFT.US" {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestReplyInvalidCodeSkipsFetch(t *testing.T) {
	server, hits := newQuoteServer(t, http.StatusOK, "")
	svc := New(server.Client(), server.URL)

	for code, want := range map[string]string{
		"a$":                "Invalid stock code: A$",
		"":                  "Invalid stock code: ",
		"X":                 "Invalid stock code: X",
		"WAYTOOLONGCODE.US": "Invalid stock code: WAYTOOLONGCODE.US",
	} {
		if got := svc.Reply(context.Background(), code); got != want {
			t.Fatalf("code %q: expected %q, got %q", code, want, got)
		}
	}
	if hits.Load() != 0 {
		t.Fatalf("invalid codes must not reach stooq, got %d requests", hits.Load())
	}
}

func TestReplyUpstreamFailure(t *testing.T) {
	server, _ := newQuoteServer(t, http.StatusBadGateway, "oops")
	svc := New(server.Client(), server.URL)

	if got := svc.Reply(context.Background(), "AAPL.US"); got != "Error fetching stock data for AAPL.US" {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		content string
		code    string
		ok      bool
	}{
		{content: "/stock=aapl.us", code: "AAPL.US", ok: true},
		{content: "  /stock= msft.us ", code: "MSFT.US", ok: true},
		{content: "/stock=", code: "", ok: true},
		{content: "hello /stock=aapl.us", ok: false},
		{content: "/stocks", ok: false},
	}

	for _, tc := range cases {
		code, ok := ParseCommand(tc.content)
		if ok != tc.ok || code != tc.code {
			t.Fatalf("%q: got (%q, %v), want (%q, %v)", tc.content, code, ok, tc.code, tc.ok)
		}
	}
}
