package client

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/loadscope/loadscope/internal/common/scopeerrors"
)

const defaultTimeout = 10 * time.Second

// ApiConnectionDetails describes how to reach the results and workload service.
type ApiConnectionDetails struct {
	// Base URL of the service, e.g. http://localhost:8080. Paths such as /api/getResults are appended to it.
	Url string
	// Timeout applied to every request that has no earlier deadline of its own.
	Timeout time.Duration
}

type ConnectionDetails func() *ApiConnectionDetails

// CreateApiConnection validates config and returns a client for it.
func CreateApiConnection(config *ApiConnectionDetails) (*Client, error) {
	if config == nil || strings.TrimSpace(config.Url) == "" {
		return nil, errors.WithStack(&scopeerrors.ErrInvalidArgument{
			Name:    "resultsService.url",
			Value:   "",
			Message: "no service url provided",
		})
	}
	baseUrl, err := url.Parse(strings.TrimRight(config.Url, "/"))
	if err != nil {
		return nil, errors.WithStack(&scopeerrors.ErrInvalidArgument{
			Name:    "resultsService.url",
			Value:   config.Url,
			Message: err.Error(),
		})
	}
	if baseUrl.Scheme != "http" && baseUrl.Scheme != "https" {
		return nil, errors.WithStack(&scopeerrors.ErrInvalidArgument{
			Name:    "resultsService.url",
			Value:   config.Url,
			Message: "scheme must be http or https",
		})
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseUrl:    baseUrl,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// WithConnection creates a client from apiConnectionDetails and hands it to action.
func WithConnection(apiConnectionDetails *ApiConnectionDetails, action func(*Client) error) error {
	c, err := CreateApiConnection(apiConnectionDetails)
	if err != nil {
		return err
	}
	defer c.Close()
	return action(c)
}
