package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// pagingOff makes the CLI print long output without --More-- pauses
const pagingOff = "terminal datadump"

// SSHConfig holds connection settings for one device
type SSHConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// PrivateKey is a PEM-encoded key; Passphrase unlocks it when set
	PrivateKey     []byte
	Passphrase     string
	KnownHostsFile string
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	Prompt         *regexp.Regexp
}

// SSH is an interactive CLI session over SSH. Commands are serialized.
type SSH struct {
	*shell
	client  *ssh.Client
	session *ssh.Session
}

// DialSSH connects, opens a PTY shell, waits for the first prompt and
// disables paging
func DialSSH(ctx context.Context, cfg SSHConfig) (*SSH, error) {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = 60 * time.Second
	}

	clientConfig, err := buildClientConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build SSH config: %w", err)
	}

	client, err := connect(ctx, cfg, clientConfig)
	if err != nil {
		return nil, err
	}

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 38400,
		ssh.TTY_OP_OSPEED: 38400,
	}
	if err := session.RequestPty("vt100", 0, 511, modes); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("failed to request pty: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := session.Shell(); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("failed to start shell: %w", err)
	}

	log := logrus.WithFields(logrus.Fields{
		"component": "channel",
		"host":      cfg.Host,
	})
	c := &SSH{
		shell:   newShell(stdout, stdin, cfg.Prompt, cfg.CommandTimeout, log),
		client:  client,
		session: session,
	}

	if err := c.waitPrompt(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("waiting for prompt: %w", err)
	}
	if _, err := c.Execute(ctx, pagingOff); err != nil {
		c.Close()
		return nil, fmt.Errorf("disable paging: %w", err)
	}
	log.Debug("ssh session ready")
	return c, nil
}

// Close ends the shell and the SSH connection
func (c *SSH) Close() error {
	shellErr := c.shell.Close()
	sessErr := c.session.Close()
	if errors.Is(sessErr, io.EOF) {
		sessErr = nil
	}
	return errors.Join(shellErr, sessErr, c.client.Close())
}

// connect dials with the context and a connect timeout
func connect(ctx context.Context, cfg SSHConfig, clientConfig *ssh.ClientConfig) (*ssh.Client, error) {
	addr := net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port))

	dialer := &net.Dialer{
		Timeout: cfg.ConnectTimeout,
	}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to establish SSH connection: %w", err)
	}
	return ssh.NewClient(sshConn, chans, reqs), nil
}

// buildClientConfig prefers key auth and falls back to password. Eltex
// firmware often asks for the password through keyboard-interactive, so
// that method is offered too.
func buildClientConfig(cfg SSHConfig) (*ssh.ClientConfig, error) {
	if cfg.Username == "" {
		return nil, errors.New("username is required")
	}

	var auth []ssh.AuthMethod
	if len(cfg.PrivateKey) > 0 {
		var (
			signer ssh.Signer
			err    error
		)
		if cfg.Passphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(cfg.PrivateKey, []byte(cfg.Passphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(cfg.PrivateKey)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		password := cfg.Password
		auth = append(auth,
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		)
	}
	if len(auth) == 0 {
		return nil, errors.New("no password or private key configured")
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHostsFile != "" {
		cb, err := knownhosts.New(cfg.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("load known hosts: %w", err)
		}
		hostKeyCallback = cb
	}

	return &ssh.ClientConfig{
		User:            cfg.Username,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         cfg.ConnectTimeout,
	}, nil
}
