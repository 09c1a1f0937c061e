package db

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

const defaultSSHPort = 22

var (
	// ErrNoSSHHost is returned when a tunnel is requested without a host
	ErrNoSSHHost = errors.New("ssh host is required")
	// ErrNoSSHAuth is returned when no key, agent or password is usable
	ErrNoSSHAuth = errors.New("no valid ssh authentication methods found")
)

// SSHConfig holds SSH connection details
type SSHConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	KeyPath  string
	// KnownHostsPath enables host key verification when set
	KnownHostsPath string
	Timeout        time.Duration
}

// SSHTunnel is an established SSH client that database drivers dial through
type SSHTunnel struct {
	client *ssh.Client
	// agent is the SSH_AUTH_SOCK connection, nil when no agent was used
	agent net.Conn
}

// OpenTunnel dials the SSH server. Dial and handshake failures are
// returned as connection errors; configuration problems are returned as is.
func OpenTunnel(config *SSHConfig, logger *zap.Logger) (*SSHTunnel, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config == nil || config.Host == "" {
		return nil, ErrNoSSHHost
	}

	authMethods, agentConn := sshAuthMethods(config, logger)
	closeAgent := func() {
		if agentConn != nil {
			agentConn.Close()
		}
	}
	if len(authMethods) == 0 {
		closeAgent()
		return nil, ErrNoSSHAuth
	}

	hostKeyCallback, err := sshHostKeyCallback(config, logger)
	if err != nil {
		closeAgent()
		return nil, err
	}

	cliConfig := &ssh.ClientConfig{
		User:            config.User,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         config.Timeout,
		// Explicitly enable common/legacy algorithms to ensure compatibility
		HostKeyAlgorithms: []string{
			ssh.KeyAlgoED25519,
			ssh.KeyAlgoRSASHA512,
			ssh.KeyAlgoRSASHA256,
			ssh.KeyAlgoRSA,
			ssh.KeyAlgoECDSA256,
			ssh.KeyAlgoECDSA384,
			ssh.KeyAlgoECDSA521,
		},
	}

	port := config.Port
	if port == 0 {
		port = defaultSSHPort
	}
	address := net.JoinHostPort(config.Host, strconv.Itoa(port))

	logger.Debug("ssh dial", zap.String("address", address), zap.String("user", config.User))
	client, err := ssh.Dial("tcp", address, cliConfig)
	if err != nil {
		logger.Warn("ssh dial failed", zap.String("address", address), zap.Error(err))
		closeAgent()
		return nil, WrapConnectionError(errors.Wrap(err, "ssh tunnel"))
	}

	return &SSHTunnel{client: client, agent: agentConn}, nil
}

// sshAuthMethods collects the usable auth methods. The returned agent
// connection, if any, must stay open for as long as the client is.
func sshAuthMethods(config *SSHConfig, logger *zap.Logger) ([]ssh.AuthMethod, net.Conn) {
	var (
		methods   []ssh.AuthMethod
		agentConn net.Conn
	)

	// Explicit key first
	if config.KeyPath != "" {
		if signer, err := loadSigner(config.KeyPath, config.Password); err == nil {
			logger.Debug("ssh key loaded", zap.String("type", signer.PublicKey().Type()))
			methods = append(methods, ssh.PublicKeys(signer))
		} else {
			logger.Warn("ssh key unusable", zap.String("path", config.KeyPath), zap.Error(err))
		}
	}

	if socket := os.Getenv("SSH_AUTH_SOCK"); socket != "" {
		conn, err := net.Dial("unix", socket)
		if err == nil {
			agentConn = conn
			agentClient := agent.NewClient(conn)
			methods = append(methods, ssh.PublicKeysCallback(agentClient.Signers))
		} else {
			logger.Warn("ssh agent unreachable", zap.Error(err))
		}
	}

	if config.Password != "" {
		methods = append(methods, ssh.Password(config.Password))

		// Some servers only offer keyboard-interactive for passwords
		methods = append(methods, ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range answers {
				answers[i] = config.Password
			}
			return answers, nil
		}))
	}

	return methods, agentConn
}

func loadSigner(keyPath, passphrase string) (ssh.Signer, error) {
	key, err := os.ReadFile(expandHome(keyPath))
	if err != nil {
		return nil, errors.Wrap(err, "read private key")
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil && passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(passphrase))
	}
	if err != nil {
		return nil, errors.Wrap(err, "parse private key")
	}
	return signer, nil
}

func sshHostKeyCallback(config *SSHConfig, logger *zap.Logger) (ssh.HostKeyCallback, error) {
	if config.KnownHostsPath == "" {
		logger.Warn("ssh host key verification disabled", zap.String("host", config.Host))
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(expandHome(config.KnownHostsPath))
	if err != nil {
		return nil, errors.Wrap(err, "load known_hosts")
	}
	return cb, nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// Dial connects to a remote address through the tunnel
func (t *SSHTunnel) Dial(network, addr string) (net.Conn, error) {
	return t.client.Dial(network, addr)
}

// DialContext connects to a remote address through the tunnel with context support
func (t *SSHTunnel) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return t.client.DialContext(ctx, network, addr)
}

// Close closes the SSH connection and the agent socket
func (t *SSHTunnel) Close() error {
	err := t.client.Close()
	if t.agent != nil {
		t.agent.Close()
	}
	return err
}
