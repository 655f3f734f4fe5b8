package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/localnerve/lxnotes/internal/testutil"
)

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	flag.Parse()

	usage := `
Run the lxnotes testcontainers (Postgres, and the authorizer when AUTHZ_IMAGE is set)
with the environment variables from the .env file.

Usage:

testcontainers [-h] [-f ENV_FILE_PATH]

ENV_FILE_PATH: path to the .env file

Variables: DB_IMAGE, DB_DATABASE, DB_USER, DB_PASSWORD, AUTHZ_IMAGE, AUTHZ_CLIENT_ID, AUTHZ_ADMIN_SECRET

example
  testcontainers -f /path/to/something/.env
`
	// if -h flag print usage and return
	if showHelp {
		fmt.Println(usage)
		return
	}

	if envFilename != "" {
		log.Printf("Loading environment variables from %s\n", envFilename)
		if err := godotenv.Load(envFilename); err != nil {
			log.Fatalf("Failed to load environment variables: %v\n", err)
		}
	} else {
		log.Printf("No environment file specified, using current environment variables\n")
	}

	ctx := context.Background()
	stack, err := testutil.StartStack(ctx, testutil.StackOptions{
		PostgresImage:   os.Getenv("DB_IMAGE"),
		Database:        os.Getenv("DB_DATABASE"),
		User:            os.Getenv("DB_USER"),
		Password:        os.Getenv("DB_PASSWORD"),
		AuthorizerImage: os.Getenv("AUTHZ_IMAGE"),
		AuthzClientID:   os.Getenv("AUTHZ_CLIENT_ID"),
		AuthzAdminKey:   os.Getenv("AUTHZ_ADMIN_SECRET"),
	})
	if err != nil {
		log.Fatalf("Failed to create test containers: %v\n", err)
	}

	cfg := stack.Config
	fmt.Printf("DB_TYPE=%s\nDB_HOST=%s\nDB_PORT=%s\nDB_DATABASE=%s\nDB_USER=%s\nDB_PASSWORD=%s\n",
		cfg.DBType, cfg.DBHost, cfg.DBPort, cfg.DBDatabase, cfg.DBUser, cfg.DBPassword)
	if cfg.AuthzURL != "" {
		fmt.Printf("AUTHZ_URL=%s\nAUTHZ_CLIENT_ID=%s\n", cfg.AuthzURL, cfg.AuthzClientID)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	sig := <-sigs
	log.Printf("\nReceived signal: %v, terminating test containers...\n", sig)
	if err := stack.Terminate(ctx); err != nil {
		log.Printf("Failed to terminate test containers: %v\n", err)
	}
}
