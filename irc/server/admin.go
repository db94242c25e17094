package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/presbrey/ircserv/irc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Admin is the HTTP API for operators and tooling. Every state read or
// change goes through the event loop.
type Admin struct {
	server *Server
	echo   *echo.Echo
	addr   string
	tokens []string
}

// requestValidator plugs go-playground/validator into echo, reporting
// fields by their JSON names.
type requestValidator struct {
	validator *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidator{validator: v}
}

func (rv *requestValidator) Validate(i interface{}) error {
	if err := rv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func newAdmin(s *Server) *Admin {
	a := &Admin{
		server: s,
		echo:   echo.New(),
		addr:   s.config.Admin.Addr,
		tokens: s.config.Admin.BearerTokens,
	}
	a.echo.HideBanner = true
	a.echo.HidePort = true
	a.echo.Validator = newRequestValidator()
	a.echo.Use(s.metrics.middleware())

	a.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))

	api := a.echo.Group("/api", a.authenticate)
	api.GET("/status", a.handleStatus)
	api.GET("/channels", a.handleChannels)
	api.GET("/channels/:name", a.handleChannel)
	api.POST("/channels/:name/notice", a.handleNotice)
	api.POST("/poweroff", a.handlePoweroff)

	if len(a.tokens) == 0 {
		log.Printf("[%s] admin API has no bearer tokens configured, requests are not authenticated", s.name)
	}
	return a
}

// Handler exposes the API for embedding and tests.
func (a *Admin) Handler() http.Handler {
	return a.echo
}

func (a *Admin) start() {
	log.Printf("[%s] admin API listening on %s", a.server.name, a.addr)
	if err := a.echo.Start(a.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("[%s] admin API stopped: %v", a.server.name, err)
	}
}

func (a *Admin) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := a.echo.Shutdown(ctx); err != nil {
		log.Printf("[%s] admin API shutdown: %v", a.server.name, err)
	}
}

// authenticate accepts "Authorization: Bearer <token>" for any configured
// token. Without configured tokens every request is let through.
func (a *Admin) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if len(a.tokens) == 0 {
			return next(c)
		}

		token, ok := strings.CutPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
		if ok {
			for _, valid := range a.tokens {
				if subtle.ConstantTimeCompare([]byte(token), []byte(valid)) == 1 {
					return next(c)
				}
			}
		}
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
}

// channelParam decodes the :name path parameter. The sigil may be omitted,
// in which case '#' is assumed.
func channelParam(c echo.Context) string {
	name, err := url.PathUnescape(c.Param("name"))
	if err != nil {
		name = c.Param("name")
	}
	if !irc.IsChannelName(name) {
		name = "#" + name
	}
	return name
}

func (a *Admin) handleStatus(c echo.Context) error {
	snap, err := a.server.Snapshot(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	snap.Channels = nil
	return c.JSON(http.StatusOK, snap)
}

func (a *Admin) handleChannels(c echo.Context) error {
	snap, err := a.server.Snapshot(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusOK, snap.Channels)
}

func (a *Admin) handleChannel(c echo.Context) error {
	name := channelParam(c)
	snap, err := a.server.Snapshot(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	for _, info := range snap.Channels {
		if info.Name == name {
			return c.JSON(http.StatusOK, info)
		}
	}
	return echo.NewHTTPError(http.StatusNotFound, "No such channel")
}

// NoticeRequest is the body of POST /api/channels/:name/notice.
type NoticeRequest struct {
	Text string `json:"text" validate:"required,max=400"`
}

func (a *Admin) handleNotice(c echo.Context) error {
	var req NoticeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if strings.ContainsAny(req.Text, "\r\n") {
		return echo.NewHTTPError(http.StatusBadRequest, "text must be a single line")
	}

	err := a.server.Notice(c.Request().Context(), channelParam(c), req.Text)
	switch {
	case errors.Is(err, ErrNoSuchChannel):
		return echo.NewHTTPError(http.StatusNotFound, "No such channel")
	case err != nil:
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *Admin) handlePoweroff(c echo.Context) error {
	log.Printf("[%s] POWEROFF requested through the admin API", a.server.name)
	a.server.Shutdown()
	return c.NoContent(http.StatusAccepted)
}
