// Package recaptcha verifies bot protection tokens sent by the web client.
package recaptcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/common"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/metrics"
)

const (
	DefaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"
	DefaultTimeout   = 5 * time.Second
	DefaultMinScore  = 0.5

	formParamSecret   = "secret"
	formParamResponse = "response"
	formParamRemoteIP = "remoteip"
)

var (
	ErrMissingToken = common.Kind(common.ErrValidation, "recaptcha_token is required")
	ErrRejected     = common.Kind(common.ErrValidation, "reCAPTCHA verification failed")
	ErrUnavailable  = common.Kind(common.ErrExternalService, "reCAPTCHA service is unavailable, try again later")
)

type verifyResponse struct {
	Success    bool     `json:"success"`
	Score      *float64 `json:"score"`
	ErrorCodes []string `json:"error-codes"`
}

type Client struct {
	verifyURL string
	secret    string
	minScore  float64
	client    *http.Client
	logger    *log.Entry
}

// New builds a client with a fixed timeout. Calls are never retried.
func New(verifyURL, secret string, minScore float64, timeout time.Duration, logger *log.Entry) *Client {
	if verifyURL == "" {
		verifyURL = DefaultVerifyURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		verifyURL: verifyURL,
		secret:    secret,
		minScore:  minScore,
		client:    &http.Client{Timeout: timeout},
		logger:    logger.WithField("component", "recaptcha"),
	}
}

// unavailable logs why the check could not run. The client only sees
// ErrUnavailable.
func (c *Client) unavailable(err error) error {
	c.logger.WithError(err).Warn("reCAPTCHA verification is unavailable")
	return ErrUnavailable
}

func (c *Client) Verify(ctx context.Context, token, remoteIP string) (err error) {
	defer func() {
		metrics.RecordRecaptcha(err)
	}()
	if strings.TrimSpace(token) == "" {
		return ErrMissingToken
	}
	vals := url.Values{}
	vals.Add(formParamSecret, c.secret)
	vals.Add(formParamResponse, token)
	if remoteIP != "" {
		vals.Add(formParamRemoteIP, remoteIP)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, strings.NewReader(vals.Encode()))
	if err != nil {
		return c.unavailable(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.client.Do(req)
	if err != nil {
		return c.unavailable(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return c.unavailable(fmt.Errorf("returned status code: %d", res.StatusCode))
	}

	vr := &verifyResponse{}
	if err := json.NewDecoder(res.Body).Decode(vr); err != nil {
		return c.unavailable(err)
	}
	if !vr.Success {
		return fmt.Errorf("%w: %s", ErrRejected, strings.Join(vr.ErrorCodes, ", "))
	}
	// v2 answers carry no score
	if vr.Score != nil && *vr.Score < c.minScore {
		return fmt.Errorf("%w: score %.2f", ErrRejected, *vr.Score)
	}
	return nil
}
