// Package analysis talks to the interview analysis backend over HTTP.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/rbright/rehearse/internal/config"
	"github.com/rbright/rehearse/internal/version"
	"golang.org/x/net/http2"
)

const maxErrorBody = 4096

// Clip is a finished recording ready for upload.
type Clip struct {
	Data     []byte
	MimeType string
}

// Extension maps the clip's container to a file extension.
func (c Clip) Extension() string {
	return ExtensionFor(c.MimeType)
}

// ExtensionFor returns "mp4" for MP4 containers and "webm" otherwise.
func ExtensionFor(mime string) string {
	base, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(mime)), ";")
	if strings.TrimSpace(base) == "video/mp4" {
		return "mp4"
	}
	return "webm"
}

// Client is a cookie-preserving backend client.
type Client struct {
	cfg  config.BackendConfig
	base *url.URL
	http *http.Client
	now  func() time.Time
}

// New builds a client for the configured backend.
func New(cfg config.BackendConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.URL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if cfg.HTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			return nil, fmt.Errorf("configure http2 transport: %w", err)
		}
	}

	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &Client{
		cfg:  cfg,
		base: base,
		http: &http.Client{Transport: transport, Jar: jar, Timeout: timeout},
		now:  time.Now,
	}, nil
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

func (c *Client) newRequest(ctx context.Context, method string, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", version.UserAgent())
	return req, nil
}

// NewQuestion asks the backend for the next interview question.
func (c *Client) NewQuestion(ctx context.Context) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.cfg.QuestionPath, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &NetworkError{Op: "new question", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", serverError(resp)
	}

	var payload struct {
		Question string `json:"question"`
		Error    string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode question: %w", err)
	}
	if payload.Error != "" {
		return "", &AnalysisError{Message: payload.Error}
	}
	if strings.TrimSpace(payload.Question) == "" {
		return "", errors.New("backend returned an empty question")
	}
	return payload.Question, nil
}

// Analyze uploads clip as multipart field "video" and decodes the analysis.
func (c *Client) Analyze(ctx context.Context, clip Clip) (Result, error) {
	mimeType := strings.TrimSpace(clip.MimeType)
	if mimeType == "" {
		mimeType = "video/webm"
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	filename := fmt.Sprintf("interview-%d.%s", c.now().UnixMilli(), ExtensionFor(mimeType))

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="video"; filename=%q`, filename))
	header.Set("Content-Type", mimeType)
	part, err := w.CreatePart(header)
	if err != nil {
		return Result{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(clip.Data); err != nil {
		return Result{}, fmt.Errorf("copy clip: %w", err)
	}
	if err := w.Close(); err != nil {
		return Result{}, fmt.Errorf("close multipart: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.cfg.AnalyzePath, &body)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, &NetworkError{Op: "analyze", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, serverError(resp)
	}

	var out envelope
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("decode analysis: %w", err)
	}
	if out.Error != "" {
		details := out.Details
		if details == "" {
			details = out.RawOutput
		}
		return Result{}, &AnalysisError{Message: out.Error, Details: details}
	}
	return out.Result, nil
}

// Login posts credentials; the session cookie is kept for later calls.
func (c *Client) Login(ctx context.Context, email string, password string) error {
	form := url.Values{"email": {email}, "password": {password}}
	location, err := c.postForm(ctx, "login", c.cfg.LoginPath, form)
	if err != nil {
		return err
	}
	if location == "" {
		return errors.New("login rejected: invalid credentials")
	}
	return nil
}

// Setup selects the question track for the logged-in session.
func (c *Client) Setup(ctx context.Context, branch string, level string) error {
	form := url.Values{"branch": {branch}, "level": {level}}
	location, err := c.postForm(ctx, "setup", c.cfg.SetupPath, form)
	if err != nil {
		return err
	}
	if strings.HasSuffix(location, c.cfg.LoginPath) {
		return ErrNotLoggedIn
	}
	return nil
}

// postForm submits form without following redirects and returns the
// redirect target, or "" when the backend answered in place.
func (c *Client) postForm(ctx context.Context, op string, path string, form url.Values) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, path, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	noRedirect := *c.http
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := noRedirect.Do(req)
	if err != nil {
		return "", &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		return resp.Header.Get("Location"), nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return "", nil
	default:
		return "", &ServerError{Status: resp.StatusCode}
	}
}

// Ready probes the configured health path; any reply below 500 counts as up.
func (c *Client) Ready(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, c.cfg.HealthPath, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: "ready", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return serverError(resp)
	}
	return nil
}

func serverError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &ServerError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
