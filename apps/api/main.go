package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	echoapi "github.com/dusabe/tathmini/apps/api/echo"
	"github.com/dusabe/tathmini/core"
	"github.com/dusabe/tathmini/core/announcement"
	"github.com/dusabe/tathmini/core/course"
	"github.com/dusabe/tathmini/core/evaluation"
	"github.com/dusabe/tathmini/core/identity"
	emailsvc "github.com/dusabe/tathmini/services/email"
	logsvc "github.com/dusabe/tathmini/services/logger"
	"github.com/dusabe/tathmini/storage/database"
	inmemdb "github.com/dusabe/tathmini/storage/database/inmem"
)

func main() {
	std := log.New(os.Stdout, core.Conf.AppName+" : ", log.LstdFlags|log.Lshortfile)

	var logger core.Logger
	if core.Conf.Debug || core.Conf.RollbarToken == "" {
		logger = logsvc.NewStdLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, core.Conf)
	}

	if err := run(logger); err != nil {
		logger.Error("api :", err)
		os.Exit(1)
	}
}

func run(logger core.Logger) error {
	var (
		idtRepo  identity.Repository
		crsRepo  course.Repository
		evalRepo evaluation.Repository
		annRepo  announcement.Repository
	)

	// set up storage. an empty engine runs the ledger purely in memory.
	if core.Conf.Database.Engine == "" {
		db := inmemdb.New()
		idtRepo = inmemdb.NewIdentityRepository(db)
		crsRepo = inmemdb.NewCourseRepository(db)
		evalRepo = inmemdb.NewEvaluationRepository(db)
		annRepo = inmemdb.NewAnnouncementRepository(db)
		logger.Info("storage : in-memory ledger")
	} else {
		db, err := database.Open(core.Conf)
		if err != nil {
			return err
		}
		defer db.Close()

		idtRepo = database.NewIdentityRepository(db)
		crsRepo = database.NewCourseRepository(db)
		evalRepo = database.NewEvaluationRepository(db)
		annRepo = database.NewAnnouncementRepository(db)
		logger.Info("storage : " + core.Conf.Database.Engine)
	}

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	idtSvc := identity.NewService(idtRepo, mailSvc)
	crsSvc := course.NewService(crsRepo)
	evalSvc := evaluation.NewService(evalRepo)
	annSvc := announcement.NewService(annRepo)

	// start API server
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := echoapi.NewServer(
		&echoapi.Options{
			Addr:            core.Conf.Server.Addr,
			Logger:          logger,
			Shutdown:        shutdown,
			IdentitySvc:     idtSvc,
			CourseSvc:       crsSvc,
			EvaluationSvc:   evalSvc,
			AnnouncementSvc: annSvc,
		},
	)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("api : listening on " + core.Conf.Server.Addr)
		app.Start()
		serverErrors <- nil
	}()

	select {
	case err := <-serverErrors:
		return err
	case sig := <-shutdown:
		logger.Info("api : shutting down", sig)

		ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Server.ShutdownTimeout)
		defer cancel()

		if err := app.Stop(ctx); err != nil {
			logger.Error("api : graceful shutdown failed", err)
			return app.Stop(context.Background())
		}
	}
	return nil
}
