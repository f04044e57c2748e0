package configuration

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/loadscope/loadscope/internal/common/slices"
	"github.com/loadscope/loadscope/internal/loadscope/aggregator"
	"github.com/loadscope/loadscope/internal/loadscope/zoom"
	"github.com/loadscope/loadscope/pkg/client"
)

type LoadscopeConfig struct {
	ResultsService ResultsServiceConfig
	Poll           PollConfig
	// Series to poll. The first one is canonical: responses without it are treated as not ready.
	Series    []string `validate:"required,min=1,dive,required"`
	Retention RetentionConfig
	Zoom      ZoomConfig
	Window    WindowConfig
	Catalog   CatalogConfig
	Http      HttpConfig
	Metrics   MetricsConfig
	Watch     WatchConfig
}

type ResultsServiceConfig struct {
	// Base url of the results and workload service, e.g. http://localhost:8080
	Url     string        `validate:"required,url"`
	Timeout time.Duration `validate:"required,gt=0"`
}

type PollConfig struct {
	// How often the results service is polled. The next poll only starts once the previous one finished.
	Interval time.Duration `validate:"required,gt=0"`
	// Responses arriving later than this are discarded. Defaults to three intervals.
	Timeout time.Duration `validate:"gte=0"`
}

type RetentionConfig struct {
	// Points kept per series. Also bounds the widest window at one second per point.
	MaxReadings int `validate:"required,min=1"`
}

type ZoomConfig struct {
	InitialWindow time.Duration `validate:"required,gt=0"`
}

type WindowConfig struct {
	Anchor aggregator.WindowAnchor `validate:"required,oneof=latest wallclock"`
}

type CatalogConfig struct {
	CacheTtl time.Duration `validate:"required,gt=0"`
}

type HttpConfig struct {
	Port uint16 `validate:"required"`
}

type MetricsConfig struct {
	Port uint16 `validate:"required"`
}

type WatchConfig struct {
	Refresh time.Duration `validate:"required,gt=0"`
}

// PollTimeout returns the configured poll timeout, or three poll intervals if none is set.
func (c LoadscopeConfig) PollTimeout() time.Duration {
	if c.Poll.Timeout > 0 {
		return c.Poll.Timeout
	}
	return 3 * c.Poll.Interval
}

// HealthWindow is how long the poll loop may go without an answer from the results service before it is
// reported unhealthy.
func (c LoadscopeConfig) HealthWindow() time.Duration {
	return 10 * c.Poll.Interval
}

func (c LoadscopeConfig) ApiConnectionDetails() *client.ApiConnectionDetails {
	return &client.ApiConnectionDetails{
		Url:     c.ResultsService.Url,
		Timeout: c.ResultsService.Timeout,
	}
}

func (c LoadscopeConfig) Validate() error {
	validate := validator.New()
	validate.RegisterStructValidation(loadscopeConfigValidation, LoadscopeConfig{})
	return validate.Struct(c)
}

func loadscopeConfigValidation(sl validator.StructLevel) {
	c := sl.Current().Interface().(LoadscopeConfig)

	if len(slices.Unique(c.Series)) != len(c.Series) {
		sl.ReportError(c.Series, "Series", "Series", "unique", "")
	}
	if c.Retention.MaxReadings > 0 && zoom.MaxWindowMs(c.Retention.MaxReadings) < zoom.MinWindowMs {
		sl.ReportError(c.Retention.MaxReadings, "MaxReadings", "MaxReadings", "minWindow", "")
	}
	initialMs := c.Zoom.InitialWindow.Milliseconds()
	if initialMs > 0 && (initialMs < zoom.MinWindowMs || initialMs > zoom.MaxWindowMs(c.Retention.MaxReadings)) {
		sl.ReportError(c.Zoom.InitialWindow, "InitialWindow", "InitialWindow", "zoomBounds", "")
	}
}
