// Package lichess is a minimal client for the lichess bot API.
package lichess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var apiHost = "https://lichess.org/"

var rateLimitCooloff = time.Minute
var rateLimitRetries = 4
var ErrRateLimited = errors.New("api: request was rate limited on each attempt")

type LichessClient struct {
	apiKey string
	host   string
	client *http.Client

	rateLimitMu   sync.Mutex
	rateLimitTime time.Time
}

func NewLichessClient(apiKey string) *LichessClient {
	return &LichessClient{
		apiKey: apiKey,
		host:   apiHost,
		client: &http.Client{
			CheckRedirect: redirectPolicyFunc(apiKey),
		},
	}
}

// WithHost points the client at another server, e.g. a test server.
func (lc *LichessClient) WithHost(host string) *LichessClient {
	lc.host = strings.TrimRight(host, "/") + "/"
	return lc
}

// Redirects remove the authorization header and by default redirect using a
// GET request. Lichess has privately moved its API so we need to handle these
// two cases directly.
func redirectPolicyFunc(apiKey string) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		req.Header.Add("Authorization", "Bearer "+apiKey)
		req.Method = via[0].Method
		return nil
	}
}

func (lc *LichessClient) newRequest(ctx context.Context, method, apiUrl string, params url.Values) (*http.Request, error) {
	url := lc.host + strings.Trim(apiUrl, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+lc.apiKey)
	if params != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return req, nil
}

type requestError struct {
	Error string `json:"error"`
}

// doRequest retries rate limited requests after a cool-off. The request body
// is re-read on each attempt, which is fine for the form bodies we send.
func (lc *LichessClient) doRequest(req *http.Request) (*http.Response, error) {
	for attempts := 0; attempts < rateLimitRetries; attempts++ {
		if cooloff := lc.getRateLimitCooloff(); cooloff != 0 {
			log.Warn().Dur("cooloff", cooloff).Str("url", req.URL.Path).Msg("api: rate limited, sleeping")
			select {
			case <-time.After(cooloff):
			case <-req.Context().Done():
				return nil, req.Context().Err()
			}
		}

		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			req.Body = body
		}

		res, err := lc.client.Do(req)
		if err != nil {
			return nil, err
		}

		// We were rate limited.
		if res.StatusCode == http.StatusTooManyRequests {
			res.Body.Close()
			lc.setRateLimitTime(time.Now())
			continue
		}

		// An error occurred.
		if res.StatusCode != http.StatusOK {
			defer res.Body.Close()
			bytes, err := io.ReadAll(res.Body)
			if err != nil {
				return nil, err
			}

			lichessError := requestError{}
			json.Unmarshal(bytes, &lichessError)
			if lichessError.Error == "" {
				lichessError.Error = strings.TrimSpace(string(bytes))
			}
			return nil, fmt.Errorf("api: %s %s: %d %s", req.Method, req.URL.Path, res.StatusCode, lichessError.Error)
		}

		return res, nil
	}

	return nil, ErrRateLimited
}

func (lc *LichessClient) doJSONRequest(req *http.Request, buffer interface{}) error {
	res, err := lc.doRequest(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	return json.NewDecoder(res.Body).Decode(buffer)
}

// doRequestNoBody is for the calls whose answer is just {"ok": true}.
func (lc *LichessClient) doRequestNoBody(req *http.Request) error {
	res, err := lc.doRequest(req)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, res.Body)
	return res.Body.Close()
}

func (lc *LichessClient) getRateLimitTime() time.Time {
	lc.rateLimitMu.Lock()
	defer lc.rateLimitMu.Unlock()

	return lc.rateLimitTime
}

func (lc *LichessClient) setRateLimitTime(rateLimitTime time.Time) {
	lc.rateLimitMu.Lock()
	defer lc.rateLimitMu.Unlock()

	lc.rateLimitTime = rateLimitTime
}

// getRateLimitCooloff is how much longer we have to wait after the last 429.
func (lc *LichessClient) getRateLimitCooloff() time.Duration {
	rateLimitTime := lc.getRateLimitTime()
	if rateLimitTime.IsZero() {
		return 0
	}

	if diff := time.Since(rateLimitTime); diff < rateLimitCooloff {
		return rateLimitCooloff - diff
	}

	return 0
}
