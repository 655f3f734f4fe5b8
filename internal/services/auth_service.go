package services

import (
	"fmt"
	"sync"

	"github.com/authorizerdev/authorizer-go"
	"github.com/localnerve/lxnotes/internal/config"
	"github.com/localnerve/lxnotes/internal/utils"
	"go.uber.org/zap"
)

var (
	authClient *authorizer.AuthorizerClient
	authMu     sync.RWMutex
)

// IsAuthorizerInitialized returns true if the Authorizer client is initialized
func IsAuthorizerInitialized() bool {
	authMu.RLock()
	defer authMu.RUnlock()
	return authClient != nil
}

// InitAuthorizer initializes the Authorizer client. A failed attempt is retried on the
// next call. The redirect URL is the configured BASE_URL, or the request's origin when unset.
func InitAuthorizer(cfg *config.Config, requestProtocol, requestHost string) error {
	authMu.Lock()
	defer authMu.Unlock()
	if authClient != nil {
		return nil
	}

	if err := utils.PingAuthorizer(cfg.AuthzURL); err != nil {
		return fmt.Errorf("authorizer ping failed: %w", err)
	}

	redirectURL := cfg.BaseURL
	if redirectURL == "" {
		redirectURL = fmt.Sprintf("%s://%s", requestProtocol, requestHost)
	}
	zap.L().Info("Initializing Authorizer",
		zap.String("authorizer_url", cfg.AuthzURL),
		zap.String("client_id", cfg.AuthzClientID),
		zap.String("redirect_url", redirectURL))

	client, err := authorizer.NewAuthorizerClient(cfg.AuthzClientID, cfg.AuthzURL, redirectURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create authorizer client: %w", err)
	}
	authClient = client
	return nil
}

// SessionUser is the authenticated user of a request
type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// ValidateSession validates a session cookie for the given roles
func ValidateSession(cookie string, roles []string) (*SessionUser, error) {
	authMu.RLock()
	client := authClient
	authMu.RUnlock()
	if client == nil {
		return nil, fmt.Errorf("authorizer client not initialized")
	}

	rolesPtrs := make([]*string, len(roles))
	for i := range roles {
		rolesPtrs[i] = &roles[i]
	}

	res, err := client.ValidateSession(&authorizer.ValidateSessionInput{
		Cookie: cookie,
		Roles:  rolesPtrs,
	})
	if err != nil {
		return nil, fmt.Errorf("session validation failed: %w", err)
	}
	if res == nil || !res.IsValid {
		return nil, fmt.Errorf("session is not valid")
	}

	user := &SessionUser{}
	if res.User != nil {
		user.ID = res.User.ID
		user.Email = res.User.Email
		if res.User.GivenName != nil {
			user.Name = *res.User.GivenName
		}
	}
	return user, nil
}
