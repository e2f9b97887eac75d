package echoapi

import (
	"context"
	"net/http"
	"os"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/dusabe/tathmini/core"
	"github.com/dusabe/tathmini/core/announcement"
	"github.com/dusabe/tathmini/core/course"
	"github.com/dusabe/tathmini/core/evaluation"
	"github.com/dusabe/tathmini/core/identity"
)

type (
	Options struct {
		Addr            string
		DisableReqLogs  bool
		Logger          core.Logger
		Shutdown        chan os.Signal
		IdentitySvc     *identity.Service
		CourseSvc       *course.Service
		EvaluationSvc   *evaluation.Service
		AnnouncementSvc *announcement.Service
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.signalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)

	api := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerIdentityAPI(api, jwt, s.opts.IdentitySvc, s.opts.CourseSvc, s.opts.EvaluationSvc)
	registerCourseAPI(api, jwt, s.opts.IdentitySvc, s.opts.CourseSvc, s.opts.EvaluationSvc)
	registerEvaluationAPI(api, jwt, s.opts.IdentitySvc, s.opts.EvaluationSvc)
	registerAnnouncementAPI(api, jwt, s.opts.AnnouncementSvc)
}

// signalShutdown sends a SIGTERM to the main goroutine for a graceful shutdown
// when an unrecoverable error is caught by the HTTPErrorHandler.
func (s *server) signalShutdown() {
	if s.opts.Shutdown != nil {
		s.opts.Shutdown <- syscall.SIGTERM
	}
}

func (s *server) Start() {
	if err := s.app.Start(s.opts.Addr); err != nil && err != http.ErrServerClosed {
		s.app.Logger.Fatal(err)
	}
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Tathmini API!")
}
