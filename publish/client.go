package publish

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/curately/postops/httpx"
	"github.com/curately/postops/resilience"
)

// ContainerAPI is the narrow wire surface the state machine needs.
type ContainerAPI interface {
	// CreateContainer stages media on the provider and returns the
	// container id.
	CreateContainer(ctx context.Context, imageURL, caption, locationID string) (string, error)

	// ContainerStatus reads the container's processing status.
	ContainerStatus(ctx context.Context, containerID string) (Status, error)

	// PublishContainer publishes a finished container and returns the
	// media id.
	PublishContainer(ctx context.Context, containerID string) (string, error)
}

// ClientConfig configures the wire client.
type ClientConfig struct {
	// HTTP is the retry-wrapped client for the provider's API. Required.
	HTTP *httpx.Client

	// AccountID is the business account publishing media. Required.
	AccountID string

	// AccessToken is sent with every call. Required.
	AccessToken string
}

// Client implements ContainerAPI over the provider's HTTP protocol.
type Client struct {
	http      *httpx.Client
	accountID string
	token     string
}

// NewClient creates a wire client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.HTTP == nil {
		return nil, errors.New("publish: HTTP client is required")
	}
	if config.AccountID == "" {
		return nil, errors.New("publish: AccountID is required")
	}
	if config.AccessToken == "" {
		return nil, errors.New("publish: AccessToken is required")
	}

	return &Client{
		http:      config.HTTP,
		accountID: config.AccountID,
		token:     config.AccessToken,
	}, nil
}

// CreateContainer stages media via a form POST to /{account}/media.
func (c *Client) CreateContainer(ctx context.Context, imageURL, caption, locationID string) (string, error) {
	form := url.Values{
		"image_url":    {imageURL},
		"caption":      {caption},
		"access_token": {c.token},
	}
	if locationID != "" {
		form.Set("location_id", locationID)
	}

	env, err := c.call(c.http.Post(ctx, "/"+c.accountID+"/media", httpx.FormBody(form)))
	if err != nil {
		return "", err
	}
	if env.ID == "" {
		return "", ErrNoContainerID
	}
	return env.ID, nil
}

// ContainerStatus reads the container's status_code field.
func (c *Client) ContainerStatus(ctx context.Context, containerID string) (Status, error) {
	query := url.Values{
		"fields":       {"status_code"},
		"access_token": {c.token},
	}

	env, err := c.call(c.http.Get(ctx, "/"+containerID, query))
	if err != nil {
		return "", err
	}
	return Status(env.StatusCode), nil
}

// PublishContainer publishes a finished container via a form POST to
// /{account}/media_publish.
func (c *Client) PublishContainer(ctx context.Context, containerID string) (string, error) {
	form := url.Values{
		"creation_id":  {containerID},
		"access_token": {c.token},
	}

	env, err := c.call(c.http.Post(ctx, "/"+c.accountID+"/media_publish", httpx.FormBody(form)))
	if err != nil {
		return "", err
	}
	if env.ID == "" {
		return "", ErrNoMediaID
	}
	return env.ID, nil
}

// call decodes the provider envelope from a completed exchange. Provider
// error objects win over bare HTTP status errors, and a success response
// carrying an error object is still an error.
func (c *Client) call(res resilience.Result) (*apiEnvelope, error) {
	if res.Err != nil {
		return nil, translateError(res.Err)
	}

	resp, ok := res.Payload.(*httpx.Response)
	if !ok {
		return nil, fmt.Errorf("publish: unexpected payload type %T", res.Payload)
	}

	var env apiEnvelope
	if err := resp.JSON(&env); err != nil {
		return nil, fmt.Errorf("publish: decode response: %w", err)
	}
	if apiErr := env.apiError(); apiErr != nil {
		return nil, apiErr
	}
	return &env, nil
}
