package moodle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"course-dashboard/internal/httpx"
	"course-dashboard/internal/monitoring"
	"course-dashboard/internal/tracing"

	"go.opentelemetry.io/otel/attribute"
)

const restPath = "/webservice/rest/server.php"

// ErrMalformed marks a 2xx body that is not the JSON shape the call expects.
var ErrMalformed = errors.New("moodle: malformed response")

// RemoteError is a Moodle exception body. The web service layer reports
// these with HTTP 200.
type RemoteError struct {
	Function  string
	Exception string
	ErrorCode string
	Message   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("moodle: %s: %s (%s): %s", e.Function, e.ErrorCode, e.Exception, e.Message)
}

// Client talks to a Moodle site through the REST web service endpoint.
type Client struct {
	BaseURL string
	Token   string
	Doer    *httpx.Doer
}

// New returns a client with a single-attempt, rate-limited transport.
func New(baseURL, token string, timeout time.Duration, rps float64, burst int) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Doer:    httpx.NewDoer(timeout, rps, burst),
	}
}

// Origin is the site root used to build learner-facing links.
func (c *Client) Origin() string {
	return strings.TrimRight(c.BaseURL, "/")
}

// Call invokes one web service function and decodes its JSON into out.
func (c *Client) Call(ctx context.Context, function string, params url.Values, out any) (err error) {
	if c.Token == "" {
		return errors.New("moodle: missing web service token")
	}
	ctx, span := tracing.Start(ctx, "moodle."+function)
	span.SetAttributes(attribute.String("moodle.function", function))
	start := time.Now()
	defer func() {
		monitoring.ObserveLMSCall(function, outcome(err), time.Since(start))
		tracing.End(span, err)
	}()

	form := url.Values{}
	for k, vs := range params {
		form[k] = vs
	}
	form.Set("wstoken", c.Token)
	form.Set("wsfunction", function)
	form.Set("moodlewsrestformat", "json")
	body := form.Encode()

	endpoint := c.Origin() + restPath
	doer := c.Doer
	if doer == nil {
		doer = httpx.NewDoer(20*time.Second, 0, 0)
	}

	_, raw, err := doer.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		r.Header.Set("Accept", "application/json")
		return r, nil
	})
	if err != nil {
		return fmt.Errorf("moodle: %s: %w", function, err)
	}
	return decode(function, raw, out)
}

func decode(function string, raw []byte, out any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var ex exception
		if json.Unmarshal(trimmed, &ex) == nil && ex.Exception != "" {
			return &RemoteError{
				Function:  function,
				Exception: ex.Exception,
				ErrorCode: ex.ErrorCode,
				Message:   ex.Message,
			}
		}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, function, err)
	}
	return nil
}

func outcome(err error) string {
	var rerr *RemoteError
	switch {
	case err == nil:
		return "ok"
	case httpx.IsOffline(err):
		return "offline"
	case errors.As(err, &rerr):
		return "remote_error"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	default:
		return "error"
	}
}

func itoa(n int) string { return strconv.Itoa(n) }

// indexed encodes list parameters the way the REST protocol expects:
// name[0]=a&name[1]=b.
func indexed(params url.Values, name string, ids ...int) {
	for i, id := range ids {
		params.Set(fmt.Sprintf("%s[%d]", name, i), itoa(id))
	}
}
