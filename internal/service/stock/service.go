// Package stock answers "/stock=CODE" chat commands with quotes from stooq.
package stock

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL = "https://stooq.com/q/l/"
	BotUsername    = "StockBot"
	CommandPrefix  = "/stock="

	noData = "N/D"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9.-]{2,12}$`)

type Service struct {
	client  *http.Client
	baseURL string
}

func New(client *http.Client, baseURL string) *Service {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Service{client: client, baseURL: baseURL}
}

// ParseCommand reports whether content is a quote request and returns the
// upper-cased code it names.
func ParseCommand(content string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(content), CommandPrefix)
	if !ok {
		return "", false
	}
	return strings.ToUpper(strings.TrimSpace(rest)), true
}

func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// Quote fetches the latest quote for code. The CSV looks like:
//
//	Symbol,Date,Time,Open,High,Low,Close,Volume
//	AAPL.US,2025-01-22,16:15:22,219.79,223.3528,219.79,222.4683,8385754
func (s *Service) Quote(ctx context.Context, code string) (Quote, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !ValidCode(code) {
		return Quote{}, newError(ErrorCodeInvalidCode, fmt.Sprintf("Invalid stock code: %s", code), nil)
	}

	endpoint, err := s.quoteURL(code)
	if err != nil {
		return Quote{}, newError(ErrorCodeUpstream, fetchFailed(code), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, newError(ErrorCodeUpstream, fetchFailed(code), err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Quote{}, newError(ErrorCodeUpstream, fetchFailed(code), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Quote{}, newError(ErrorCodeUpstream, fetchFailed(code), fmt.Errorf("stooq status %d", resp.StatusCode))
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return Quote{}, newError(ErrorCodeUpstream, fmt.Sprintf("Error reading stock data for %s", code), err)
	}

	if len(records) < 2 || len(records[1]) < 6 || records[1][3] == noData {
		return Quote{}, newError(ErrorCodeNoData, fmt.Sprintf("No data available for stock code %s", code), nil)
	}

	return Quote{Symbol: code, Open: strings.TrimSpace(records[1][3])}, nil
}

// Reply renders the chat answer to a quote request. Failures become the text
// posted back to the room.
func (s *Service) Reply(ctx context.Context, code string) string {
	quote, err := s.Quote(ctx, code)
	if err == nil {
		return fmt.Sprintf("%s quote is $%s per share", quote.Symbol, quote.Open)
	}

	var stockErr *Error
	if errors.As(err, &stockErr) {
		if stockErr.Code == ErrorCodeUpstream {
			log.Warn().Err(stockErr.Err).Str("code", code).Msg("stock quote fetch failed")
		}
		return stockErr.Message
	}
	return fetchFailed(code)
}

func (s *Service) quoteURL(code string) (string, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("s", code)
	q.Set("f", "sd2t2ohlcv")
	q.Set("h", "")
	q.Set("e", "csv")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func fetchFailed(code string) string {
	return fmt.Sprintf("Error fetching stock data for %s", code)
}
