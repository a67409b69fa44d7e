package vcs

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"github.com/hashicorp/go-hclog"

	crssh "golang.org/x/crypto/ssh"

	"github.com/bd-migrate/bdmigrate/internal/config"
)

// Authenticator defines an interface for the push authentication methods.
type Authenticator interface {
	SetupAuth(g *config.Git, logger hclog.Logger) (transport.AuthMethod, error)
}

// HTTPAuthenticator provides token-based HTTP authentication.
type HTTPAuthenticator struct{}

// SSHKeyAuthenticator provides SSH key-based authentication.
type SSHKeyAuthenticator struct{}

// SSHAgentAuthenticator provides SSH agent-based authentication.
type SSHAgentAuthenticator struct{}

// SetupAuth configures HTTP basic authentication from the token.
func (h *HTTPAuthenticator) SetupAuth(g *config.Git, logger hclog.Logger) (transport.AuthMethod, error) {
	logger.Debug("setting up HTTP token authentication")
	username := g.Username
	if username == "" {
		// Token-authenticated remotes accept any non-empty username.
		username = "bdmigrate"
	}
	return &http.BasicAuth{Username: username, Password: g.Token}, nil
}

// SetupAuth configures SSH key authentication.
func (s *SSHKeyAuthenticator) SetupAuth(g *config.Git, logger hclog.Logger) (transport.AuthMethod, error) {
	logger.Debug("setting up SSH key authentication", "path", g.SSHKey)

	auth, err := ssh.NewPublicKeysFromFile("git", g.SSHKey, "")
	if err != nil {
		logger.Error("failed to set up SSH key authentication", "error", err.Error())
		return nil, err
	}
	auth.HostKeyCallbackHelper = ssh.HostKeyCallbackHelper{
		HostKeyCallback: crssh.InsecureIgnoreHostKey(), // TODO: known_hosts verification
	}
	return auth, nil
}

// SetupAuth configures SSH agent authentication.
func (s *SSHAgentAuthenticator) SetupAuth(g *config.Git, logger hclog.Logger) (transport.AuthMethod, error) {
	logger.Debug("setting up SSH agent authentication")

	auth, err := ssh.NewSSHAgentAuth("git")
	if err != nil {
		logger.Error("failed to set up SSH agent authentication", "error", err)
		return nil, err
	}
	auth.HostKeyCallbackHelper = ssh.HostKeyCallbackHelper{
		HostKeyCallback: crssh.InsecureIgnoreHostKey(), // TODO: known_hosts verification
	}
	return auth, nil
}

// getAuthenticator returns the appropriate Authenticator for the
// configured auth type.
func getAuthenticator(authType string) (Authenticator, error) {
	switch authType {
	case "", "http":
		return &HTTPAuthenticator{}, nil
	case "ssh-key":
		return &SSHKeyAuthenticator{}, nil
	case "ssh-agent":
		return &SSHAgentAuthenticator{}, nil
	default:
		return nil, fmt.Errorf("unknown auth type: %s", authType)
	}
}
