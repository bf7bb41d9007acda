// Command useradd creates an account directly in the database, bypassing
// registration and email verification when -verified is given.
package main

import (
	"bufio"
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/admin"
	"github.com/dmitrijs2005/contactbook/internal/dbx"
	"github.com/dmitrijs2005/contactbook/internal/flagx"
	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/server/config"
	"github.com/dmitrijs2005/contactbook/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/contactbook/internal/server/services"
)

func main() {

	var opts admin.UserAddOptions

	fs := flag.NewFlagSet("useradd", flag.ExitOnError)
	fs.StringVar(&opts.Email, "email", "", "account email")
	fs.StringVar(&opts.Username, "username", "", "display name")
	fs.BoolVar(&opts.Verified, "verified", false, "mark the email as verified")
	_ = fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-email", "-username", "-verified"}))

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewJSONLogger(os.Stderr, cfg.LogLevel)

	db, err := dbx.Open(ctx, cfg.DatabaseDSN, 10*time.Second)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager(logger)
	if err := rm.RunMigrations(ctx, db); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	us, err := services.NewUserService(db, rm, cfg, nil, nil, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if _, err := admin.AddUser(ctx, bufio.NewReader(os.Stdin), os.Stdout, us, opts); err != nil {
		log.Fatalf("useradd: %v", err)
	}

}
