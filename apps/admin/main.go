package main

import (
	"context"
	"log"
	"os"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/dig"

	dig_container "github.com/darulhuda/madrasa/apps/api/di/dig"
	"github.com/darulhuda/madrasa/core"
	"github.com/darulhuda/madrasa/core/auth"
)

var logger *log.Logger

type cliParams struct {
	dig.In

	Conf     *core.Config
	Cleanup  *dig_container.Cleanup
	AdminSvc *auth.AdminService
	LoginSvc *auth.LoginService
	MongoDB  *mongo.Database `optional:"true"`
}

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags)

	c := dig_container.New()
	var code int
	errAndDie(c.Invoke(func(p cliParams) {
		defer func() { _ = p.Cleanup.Run(context.Background()) }()

		if p.Conf.Mongo.URI == "" {
			logger.Println("warning: no mongo URI configured, changes will not be kept")
		}
		cli := commandLine{adminSvc: p.AdminSvc, loginSvc: p.LoginSvc, db: p.MongoDB}
		if err := cli.run(os.Args); err != nil {
			if err != errHelp {
				logger.Printf("\nerror: %s\n", err)
			}
			code = 1
		}
	}))
	os.Exit(code)
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
