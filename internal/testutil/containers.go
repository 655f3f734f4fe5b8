package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/localnerve/lxnotes/internal/config"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

const dbAlias = "db"

// StackOptions selects the containers of a test stack
type StackOptions struct {
	PostgresImage   string
	Database        string
	User            string
	Password        string
	AuthorizerImage string // empty skips the authorizer
	AuthzClientID   string
	AuthzAdminKey   string
}

// Stack is a running set of test containers
type Stack struct {
	Network    *testcontainers.DockerNetwork
	Postgres   *postgres.PostgresContainer
	Authorizer testcontainers.Container
	Config     *config.Config
}

// Terminate stops every container of the stack, collecting the first error
func (s *Stack) Terminate(ctx context.Context) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.Authorizer != nil {
		keep(s.Authorizer.Terminate(ctx))
	}
	if s.Postgres != nil {
		keep(s.Postgres.Terminate(ctx))
	}
	if s.Network != nil {
		keep(s.Network.Remove(ctx))
	}
	return firstErr
}

// StartStack runs Postgres, and the authorizer when an image is given, on a private network.
// The returned stack carries a Config pointing at the mapped ports.
func StartStack(ctx context.Context, opts StackOptions) (*Stack, error) {
	if opts.PostgresImage == "" {
		opts.PostgresImage = "postgres:16-alpine"
	}
	if opts.Database == "" {
		opts.Database = "lxnotes"
	}
	if opts.User == "" {
		opts.User = "lx"
	}
	if opts.Password == "" {
		opts.Password = "lxpass"
	}

	stack := &Stack{}
	nw, err := network.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("create network: %w", err)
	}
	stack.Network = nw

	pg, err := postgres.Run(ctx, opts.PostgresImage,
		postgres.WithDatabase(opts.Database),
		postgres.WithUsername(opts.User),
		postgres.WithPassword(opts.Password),
		network.WithNetwork([]string{dbAlias}, nw),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		_ = stack.Terminate(ctx)
		return nil, fmt.Errorf("start postgres: %w", err)
	}
	stack.Postgres = pg

	host, err := pg.Host(ctx)
	if err != nil {
		_ = stack.Terminate(ctx)
		return nil, err
	}
	port, err := pg.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = stack.Terminate(ctx)
		return nil, err
	}
	stack.Config = &config.Config{
		Port:              "3000",
		LogLevel:          "info",
		LogFormat:         "console",
		DBLogLevel:        "warn",
		DBType:            "postgres",
		DBHost:            host,
		DBPort:            port.Port(),
		DBDatabase:        opts.Database,
		DBUser:            opts.User,
		DBPassword:        opts.Password,
		DBConnectionLimit: 5,
		MaxUploadBytes:    10 * 1024 * 1024,
		MaxRowErrors:      100,
		PDFTimeout:        30 * time.Second,
	}

	if opts.AuthorizerImage != "" {
		authz, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        opts.AuthorizerImage,
				ExposedPorts: []string{"8080/tcp"},
				Env: map[string]string{
					"ENV":           "production",
					"PORT":          "8080",
					"CLIENT_ID":     opts.AuthzClientID,
					"ADMIN_SECRET":  opts.AuthzAdminKey,
					"DATABASE_TYPE": "postgres",
					"DATABASE_URL": fmt.Sprintf("postgres://%s:%s@%s:5432/%s?sslmode=disable",
						opts.User, opts.Password, dbAlias, opts.Database),
					"ROLES":         "admin,user",
					"DEFAULT_ROLES": "user",
				},
				WaitingFor: wait.ForLog("Authorizer running at PORT:").WithStartupTimeout(30 * time.Second),
				Networks:   []string{nw.Name},
			},
			Started: true,
		})
		if err != nil {
			_ = stack.Terminate(ctx)
			return nil, fmt.Errorf("start authorizer: %w", err)
		}
		stack.Authorizer = authz

		authzHost, err := authz.Host(ctx)
		if err != nil {
			_ = stack.Terminate(ctx)
			return nil, err
		}
		authzPort, err := authz.MappedPort(ctx, "8080/tcp")
		if err != nil {
			_ = stack.Terminate(ctx)
			return nil, err
		}
		stack.Config.AuthzURL = fmt.Sprintf("http://%s:%s", authzHost, authzPort.Port())
		stack.Config.AuthzClientID = opts.AuthzClientID
	}

	return stack, nil
}
