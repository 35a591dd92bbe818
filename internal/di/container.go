package di

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/prohmpiriya/nejat-client/internal/detail"
	"github.com/prohmpiriya/nejat-client/internal/filter"
	"github.com/prohmpiriya/nejat-client/internal/gateway"
	"github.com/prohmpiriya/nejat-client/internal/metrics"
	"github.com/prohmpiriya/nejat-client/internal/mutation"
	"github.com/prohmpiriya/nejat-client/internal/pager"
	"github.com/prohmpiriya/nejat-client/internal/shelf"
	"github.com/prohmpiriya/nejat-client/pkg/config"
	"github.com/prohmpiriya/nejat-client/pkg/logger"
	"github.com/prohmpiriya/nejat-client/pkg/retry"
)

// Container holds the application state of one client session
type Container struct {
	Config  *config.Config
	Log     *logger.Logger
	Metrics *metrics.Recorder

	// Remote API
	Gateway *gateway.Gateway

	// Client state
	Filter  *filter.Store
	Events  *pager.Query
	Details *detail.Loader
	Panel   *mutation.Panel
	Shelf   *shelf.Shelf

	notifier mutation.Notifier
	unbind   func()
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	Config *config.Config
	Logger *logger.Logger
	// Registerer receives the client metrics; nil disables them
	Registerer prometheus.Registerer
	// Notifier shows mutation notices; nil drops them
	Notifier   mutation.Notifier
	Presenter  shelf.Presenter
	HTTPClient *http.Client
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) (*Container, error) {
	if cfg.Config == nil {
		return nil, fmt.Errorf("container: config is required")
	}

	c := &Container{
		Config:   cfg.Config,
		Log:      cfg.Logger,
		notifier: cfg.Notifier,
	}
	if c.Log == nil {
		c.Log = logger.Get()
	}
	if cfg.Registerer != nil {
		c.Metrics = metrics.New(cfg.Registerer)
	}

	api := cfg.Config.API

	// Initialize gateway
	gwOpts := []gateway.Option{gateway.WithLogger(c.Log), gateway.WithMetrics(c.Metrics)}
	if cfg.HTTPClient != nil {
		gwOpts = append(gwOpts, gateway.WithHTTPClient(cfg.HTTPClient))
	}
	gw, err := gateway.New(gateway.Config{
		BaseURL: api.BaseURL,
		Timeout: api.Timeout,
		LookupRetry: &retry.Config{
			MaxRetries:      api.LookupRetries,
			InitialInterval: api.RetryInterval,
		},
	}, gwOpts...)
	if err != nil {
		return nil, fmt.Errorf("container: %w", err)
	}
	c.Gateway = gw

	// Initialize client state
	c.Filter = filter.NewStore()
	c.Events = pager.New(gw,
		pager.WithPageSize(api.PageSize),
		pager.WithLogger(c.Log),
		pager.WithMetrics(c.Metrics),
	)
	c.unbind = c.Events.Bind(c.Filter)
	c.Details = detail.NewLoader(gw,
		detail.WithStaleTime(api.DetailStaleTime),
		detail.WithLogger(c.Log),
	)
	c.Panel = mutation.NewPanel(
		mutation.NewTicketForm(gw, c.notifier),
		mutation.NewVoteDialog(gw, c.notifier),
	)
	c.Shelf = shelf.New(cfg.Presenter)

	return c, nil
}

// Subscription returns a fresh subscription form for a venue
func (c *Container) Subscription(venueID string) *mutation.SubscriptionForm {
	return mutation.NewSubscriptionForm(c.Gateway, venueID, c.notifier)
}

// Close detaches the list from the filter and cancels in-flight list requests
func (c *Container) Close() {
	if c.unbind != nil {
		c.unbind()
		c.unbind = nil
	}
	c.Events.Close()
}
