package directory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spigell/talent-agent/internal/logger"
	"go.uber.org/zap"
)

const (
	DefaultUserAPI    = "https://dashboard-ofrecetutalento.com:3100/api"
	DefaultResultsAPI = "https://dashboard-ofrecetutalento.com:4900/api"
	defaultTimeout    = 5 * time.Second

	usersPath   = "/user/get-users"
	offersPath  = "/offer/get-offers"
	resultsPath = "/results/get-results"
	statusOK    = "success"
)

// Upstream is the candidate data backend.
type Upstream interface {
	Users(ctx context.Context, token string) ([]map[string]any, error)
	Offers(ctx context.Context, token, userID string) ([]map[string]any, error)
	Results(ctx context.Context, req ResultsRequest) ([]map[string]any, error)
}

// ResultsRequest is the body of the evaluation results call.
type ResultsRequest struct {
	Users []ResultsUser  `json:"users"`
	Offer []ResultsOffer `json:"offer"`
}

type ResultsUser struct {
	Name       string `json:"name"`
	Experience string `json:"experience"`
	Talents    string `json:"talents"`
	Languajes  string `json:"languajes"`
}

type ResultsOffer struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Area        string `json:"area"`
	Experience  string `json:"experience"`
	Languajes   string `json:"languajes"`
}

type envelope struct {
	Status  string           `json:"status"`
	Users   []map[string]any `json:"users"`
	Offers  []map[string]any `json:"offers"`
	Results []map[string]any `json:"results"`
}

// Client talks to the user registry and evaluation results APIs.
type Client struct {
	users   *resty.Client
	results *resty.Client
	logger  *zap.Logger
}

var _ Upstream = (*Client)(nil)

// NewClient creates a client. Empty URLs fall back to the production endpoints.
func NewClient(userAPI, resultsAPI string, timeout time.Duration, log *zap.Logger) *Client {
	if strings.TrimSpace(userAPI) == "" {
		userAPI = DefaultUserAPI
	}
	if strings.TrimSpace(resultsAPI) == "" {
		resultsAPI = DefaultResultsAPI
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	newResty := func(base string) *resty.Client {
		return resty.New().
			SetBaseURL(strings.TrimRight(base, "/")).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json")
	}

	return &Client{
		users:   newResty(userAPI),
		results: newResty(resultsAPI),
		logger:  logger.OrNop(log),
	}
}

func (c *Client) Users(ctx context.Context, token string) ([]map[string]any, error) {
	var out envelope
	if err := c.get(ctx, c.users.R().SetHeader("Authorization", token), usersPath, &out); err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	return out.Users, nil
}

func (c *Client) Offers(ctx context.Context, token, userID string) ([]map[string]any, error) {
	scope := strings.TrimSpace(userID)
	if scope == "" {
		scope = "all"
	}

	var out envelope
	if err := c.get(ctx, c.users.R().SetHeader("Authorization", token), offersPath+"/"+scope, &out); err != nil {
		return nil, fmt.Errorf("get offers: %w", err)
	}
	return out.Offers, nil
}

func (c *Client) Results(ctx context.Context, req ResultsRequest) ([]map[string]any, error) {
	var out envelope
	resp, err := c.results.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post(resultsPath)
	if err != nil {
		return nil, fmt.Errorf("get results: %w", err)
	}
	if err := checkResponse(resp, out.Status); err != nil {
		return nil, fmt.Errorf("get results: %w", err)
	}
	return out.Results, nil
}

func (c *Client) get(ctx context.Context, req *resty.Request, path string, out *envelope) error {
	c.logger.Debug("make request", zap.String("path", path))

	resp, err := req.SetContext(ctx).SetResult(out).Get(path)
	if err != nil {
		return err
	}
	return checkResponse(resp, out.Status)
}

func checkResponse(resp *resty.Response, status string) error {
	if resp.IsError() {
		return fmt.Errorf("bad status: %s", resp.Status())
	}
	if status != statusOK {
		return fmt.Errorf("unexpected response status %q", status)
	}
	return nil
}
