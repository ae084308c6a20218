package main

import (
	"context"
	"log"
	"os"

	"github.com/Shilpa0612/school-app-backend-sub003/core"
	"github.com/Shilpa0612/school-app-backend-sub003/core/directory"
	"github.com/Shilpa0612/school-app-backend-sub003/core/notification"
	"github.com/Shilpa0612/school-app-backend-sub003/core/user"
	logsvc "github.com/Shilpa0612/school-app-backend-sub003/services/logger"
	"github.com/Shilpa0612/school-app-backend-sub003/storage/database"
	boiledrepos "github.com/Shilpa0612/school-app-backend-sub003/storage/database/sqlboiler"
	sqlxrepos "github.com/Shilpa0612/school-app-backend-sub003/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DB
	db, err := database.Open(context.Background(), conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer func() { _ = db.Close() }()

	xdb := sqlxrepos.NewDB(db)
	dirRepo := sqlxrepos.NewDirectoryRepository(xdb)
	notifs := boiledrepos.NewNotificationRepository(db)

	// start CLI
	cli := commandLine{
		db:          db,
		usrSvc:      user.NewService(sqlxrepos.NewUserRepository(xdb)),
		directory:   dirRepo,
		resolver:    directory.NewResolver(dirRepo, logger),
		notifSvc:    notification.NewService(notifs, notifs, logger),
		stdin:       os.Stdin,
		stdout:      os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}
