package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bibliotech/pkg/circuitbreaker"
	"bibliotech/pkg/errs"
	"bibliotech/pkg/ledger"
)

// HTTP implementations of the consistency checker's collaborator interfaces.
// Calls go through a circuit breaker; an open breaker or any transport
// failure surfaces as errs.ErrUnavailable. A 404 is a business answer, not
// a collaborator failure, so it does not trip the breaker.

const (
	breakerMaxFailures = 5
	breakerTimeout     = 30 * time.Second
)

type UserClient struct {
	baseURL string
	client  *http.Client
	breaker *circuitbreaker.CircuitBreaker
}

func NewUserClient(baseURL string, timeout time.Duration) *UserClient {
	return &UserClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		breaker: circuitbreaker.New(breakerMaxFailures, breakerTimeout),
	}
}

func (c *UserClient) GetUser(ctx context.Context, userUid string) (*ledger.UserInfo, error) {
	var user ledger.UserInfo
	url := fmt.Sprintf("%s/api/v1/users/%s", c.baseURL, userUid)
	if err := fetchJSON(ctx, c.client, c.breaker, url, &user); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s", errs.ErrNotFound, userUid)
		}
		return nil, err
	}
	return &user, nil
}

type DocumentClient struct {
	baseURL string
	client  *http.Client
	breaker *circuitbreaker.CircuitBreaker
}

func NewDocumentClient(baseURL string, timeout time.Duration) *DocumentClient {
	return &DocumentClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		breaker: circuitbreaker.New(breakerMaxFailures, breakerTimeout),
	}
}

func (c *DocumentClient) GetDocument(ctx context.Context, documentUid string) (*ledger.DocumentInfo, error) {
	var doc ledger.DocumentInfo
	url := fmt.Sprintf("%s/api/v1/documents/%s", c.baseURL, documentUid)
	if err := fetchJSON(ctx, c.client, c.breaker, url, &doc); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("%w: document %s", errs.ErrNotFound, documentUid)
		}
		return nil, err
	}
	return &doc, nil
}

func fetchJSON(ctx context.Context, client *http.Client, breaker *circuitbreaker.CircuitBreaker, url string, out interface{}) error {
	notFound := false
	err := breaker.Execute(func() error {
		request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
		}
		response, err := client.Do(request)
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
		}
		defer response.Body.Close()

		if response.StatusCode == http.StatusNotFound {
			notFound = true
			return nil
		}
		if response.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: %s returned status %d", errs.ErrUnavailable, url, response.StatusCode)
		}
		if err := json.NewDecoder(response.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", errs.ErrUnavailable, err)
		}
		return nil
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	if err != nil {
		return err
	}
	if notFound {
		return errs.ErrNotFound
	}
	return nil
}
