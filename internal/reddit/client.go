// Package reddit — клиент Reddit API: OAuth, ограничитель запросов,
// автоматический выключатель, пользователи, плашки, комментарии и лента.
package reddit

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

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

const (
	DefaultAuthURL = "https://www.reddit.com/api/v1/access_token"
	DefaultAPIURL  = "https://oauth.reddit.com"
)

// ErrNotFound — ресурс не найден (404).
var ErrNotFound = errors.New("reddit: not found")

// StatusError — неожиданный HTTP-статус.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("reddit: status %d: %s", e.Code, e.Body)
}

// Limiter пропускает один исходящий запрос.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// Options — учётные данные и адреса API.
type Options struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string
	Subreddit    string

	AuthURL string // по умолчанию DefaultAuthURL
	APIURL  string // по умолчанию DefaultAPIURL

	// BreakerFailures — сколько сбоев подряд размыкают выключатель (по умолчанию 5).
	BreakerFailures uint32
	// BreakerTimeout — сколько выключатель остаётся разомкнутым (по умолчанию 30s).
	BreakerTimeout time.Duration
}

// Client — клиент Reddit API. Безопасен для параллельного использования.
// Каждый HTTP-запрос, включая получение токена, проходит через Limiter.
type Client struct {
	opts    Options
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	clock   clockwork.Clock

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewClient создаёт клиент. transport может быть nil (http.DefaultTransport).
func NewClient(opts Options, limiter Limiter, transport http.RoundTripper, clock clockwork.Clock) *Client {
	if opts.AuthURL == "" {
		opts.AuthURL = DefaultAuthURL
	}
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	opts.APIURL = strings.TrimRight(opts.APIURL, "/")
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 30 * time.Second
	}
	if transport == nil {
		transport = http.DefaultTransport
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	st := gobreaker.Settings{Name: "reddit"}
	st.Timeout = opts.BreakerTimeout
	failures := opts.BreakerFailures
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= failures
	}
	st.IsSuccessful = func(err error) bool {
		var se *StatusError
		if errors.As(err, &se) {
			return se.Code < 500
		}
		return err == nil || errors.Is(err, ErrNotFound)
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		log.WithFields(log.Fields{
			"component": "reddit",
			"breaker":   name,
			"from":      from.String(),
			"to":        to.String(),
		}).Warn("circuit breaker state changed")
	}

	return &Client{
		opts: opts,
		http: &http.Client{
			Transport: &gatedTransport{base: transport, limiter: limiter},
			Timeout:   30 * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker(st),
		clock:   clock,
	}
}

// Subreddit возвращает сообщество, с которым работает клиент.
func (c *Client) Subreddit() string { return c.opts.Subreddit }

// gatedTransport ждёт разрешения ограничителя перед каждым запросом.
type gatedTransport struct {
	base    http.RoundTripper
	limiter Limiter
}

func (t *gatedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Acquire(req.Context()); err != nil {
			return nil, err
		}
	}
	return t.base.RoundTrip(req)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
}

// accessToken возвращает токен из кэша или получает новый (password grant).
// Токен обновляется за минуту до истечения.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.clock.Now().Before(c.expires) {
		return c.token, nil
	}

	form := url.Values{
		"grant_type": {"password"},
		"username":   {c.opts.Username},
		"password":   {c.opts.Password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.opts.ClientID, c.opts.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.opts.UserAgent)

	var tr tokenResponse
	if err := c.execute(req, &tr); err != nil {
		return "", fmt.Errorf("reddit: token: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("reddit: token: %s", tr.Error)
	}

	c.token = tr.AccessToken
	c.expires = c.clock.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - time.Minute)
	log.WithField("component", "reddit").Debug("access token refreshed")
	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// get выполняет GET к API и декодирует JSON в out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.opts.APIURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return c.call(ctx, http.MethodGet, u, nil, out)
}

// post выполняет POST формы к API и декодирует JSON в out.
func (c *Client) post(ctx context.Context, path string, form url.Values, out any) error {
	return c.call(ctx, http.MethodPost, c.opts.APIURL+path, form, out)
}

// call добавляет токен. На 401 токен сбрасывается и запрос повторяется один раз.
func (c *Client) call(ctx context.Context, method, u string, form url.Values, out any) error {
	for attempt := 0; ; attempt++ {
		token, err := c.accessToken(ctx)
		if err != nil {
			return err
		}

		var body io.Reader
		if form != nil {
			body = strings.NewReader(form.Encode())
		}
		req, err := http.NewRequestWithContext(ctx, method, u, body)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "bearer "+token)
		req.Header.Set("User-Agent", c.opts.UserAgent)
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}

		err = c.execute(req, out)
		var se *StatusError
		if attempt == 0 && errors.As(err, &se) && se.Code == http.StatusUnauthorized {
			c.invalidateToken()
			continue
		}
		return err
	}
}

// execute отправляет запрос через выключатель.
func (c *Client) execute(req *http.Request, out any) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			io.Copy(io.Discard, resp.Body)
			return nil, ErrNotFound
		case resp.StatusCode >= 300:
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
		}

		if out == nil {
			io.Copy(io.Discard, resp.Body)
			return nil, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("reddit: decode %s: %w", req.URL.Path, err)
		}
		return nil, nil
	})
	return err
}

// apiErrors — ответ на POST с api_type=json.
type apiErrors struct {
	JSON struct {
		Errors [][]any `json:"errors"`
	} `json:"json"`
}

func (a apiErrors) err() error {
	if len(a.JSON.Errors) == 0 {
		return nil
	}
	parts := make([]string, 0, len(a.JSON.Errors))
	for _, e := range a.JSON.Errors {
		parts = append(parts, fmt.Sprint(e...))
	}
	return fmt.Errorf("reddit: api: %s", strings.Join(parts, "; "))
}
