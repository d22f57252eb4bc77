package ssh

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kevinburke/ssh_config"
	"github.com/ruffel/cexec"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const (
	defaultPort    = 22
	defaultTimeout = 10 * time.Second
)

// Config describes a remote host whose container CLI is driven over SSH.
type Config struct {
	Host string
	Port int
	User string

	// KeyPaths are private key files, tried in order.
	KeyPaths []string
	Password string
	UseAgent bool

	Timeout time.Duration

	// HostKeyCheck wins over KnownHosts. With neither set the user's
	// ~/.ssh/known_hosts is used.
	HostKeyCheck       ssh.HostKeyCallback
	KnownHosts         []string
	InsecureSkipVerify bool

	// OS selects POSIX or PowerShell framing for the remote command line and
	// the engine's executable name (docker vs docker.exe).
	OS cexec.TargetOS
}

// NewConfig returns a Config for user@host with the default port and timeout.
func NewConfig(host, username string) Config {
	return Config{Host: host, User: username}.withDefaults()
}

// FromSSHConfig resolves alias from an OpenSSH config file, the way
// `ssh alias` would. An empty path means ~/.ssh/config, and a missing default
// file resolves alias as a plain host name.
func FromSSHConfig(alias, path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = filepath.Join(homeDir(), ".ssh", "config")
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return ParseSSHConfig(alias, strings.NewReader(""))
	}

	if err != nil {
		return Config{}, fmt.Errorf("failed to open ssh config: %w", err)
	}

	defer func() { _ = f.Close() }()

	return ParseSSHConfig(alias, f)
}

// ParseSSHConfig resolves alias against config data. It honours HostName,
// User, Port, IdentityFile (repeatable), ConnectTimeout, IdentityAgent,
// UserKnownHostsFile and StrictHostKeyChecking.
func ParseSSHConfig(alias string, r io.Reader) (Config, error) {
	file, err := ssh_config.Decode(r)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse ssh config: %w", err)
	}

	get := func(key string) string {
		v, _ := file.Get(alias, key)
		return strings.TrimSpace(v)
	}

	c := Config{Host: alias, User: get("User"), UseAgent: get("IdentityAgent") != "none"}

	if name := get("HostName"); name != "" {
		c.Host = name
	}

	if c.User == "" {
		if u, err := user.Current(); err == nil {
			c.User = u.Username
		}
	}

	if port := get("Port"); port != "" {
		if c.Port, err = strconv.Atoi(port); err != nil {
			return Config{}, fmt.Errorf("invalid Port %q for %s: %w", port, alias, err)
		}
	}

	if secs := get("ConnectTimeout"); secs != "" {
		n, err := strconv.Atoi(secs)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ConnectTimeout %q for %s: %w", secs, alias, err)
		}

		c.Timeout = time.Duration(n) * time.Second
	}

	identities, _ := file.GetAll(alias, "IdentityFile")
	for _, id := range identities {
		c.KeyPaths = append(c.KeyPaths, expandHome(strings.TrimSpace(id)))
	}

	for _, kh := range strings.Fields(get("UserKnownHostsFile")) {
		c.KnownHosts = append(c.KnownHosts, expandHome(kh))
	}

	c.InsecureSkipVerify = get("StrictHostKeyChecking") == "no"

	return c.withDefaults(), nil
}

// Address is the host:port dialled.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Target is user@host:port, used in logs and error messages.
func (c Config) Target() string {
	return c.User + "@" + c.Address()
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = defaultPort
	}

	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}

	if c.OS == cexec.OSUnknown {
		c.OS = cexec.OSLinux
	}

	return c
}

func (c Config) validate() error {
	switch {
	case c.Host == "":
		return errors.New("ssh config: host is required")
	case c.User == "":
		return errors.New("ssh config: user is required")
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("ssh config: port %d out of range", c.Port)
	}

	return nil
}

// hostKeyCallback picks the host key policy: an explicit callback, the
// insecure opt-in, or known_hosts files.
func (c Config) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if c.HostKeyCheck != nil {
		return c.HostKeyCheck, nil
	}

	if c.InsecureSkipVerify {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // explicit opt-in
	}

	files := c.KnownHosts
	if len(files) == 0 {
		files = []string{filepath.Join(homeDir(), ".ssh", "known_hosts")}
	}

	cb, err := knownhosts.New(files...)
	if err != nil {
		return nil, fmt.Errorf("failed to load known_hosts (set InsecureSkipVerify to skip host key checks): %w", err)
	}

	return cb, nil
}

// clientConfig builds the x/crypto/ssh client config. Auth methods are tried
// in the order password, key files, agent.
func (c Config) clientConfig() (*ssh.ClientConfig, error) {
	hostKey, err := c.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	cc := &ssh.ClientConfig{
		User:            c.User,
		HostKeyCallback: hostKey,
		Timeout:         c.Timeout,
	}

	if c.Password != "" {
		cc.Auth = append(cc.Auth, ssh.Password(c.Password))
	}

	for _, path := range c.KeyPaths {
		if path == "" {
			continue
		}

		auth, err := loadPrivateKeyAuth(path)
		if errors.Is(err, fs.ErrNotExist) {
			// ssh_config lists default identities that often do not exist.
			continue
		}

		if err != nil {
			return nil, err
		}

		cc.Auth = append(cc.Auth, auth)
	}

	if agentAuth := loadAgentAuth(c.UseAgent); agentAuth != nil {
		cc.Auth = append(cc.Auth, agentAuth)
	}

	if len(cc.Auth) == 0 {
		return nil, fmt.Errorf("no usable credentials for %s", c.Target())
	}

	return cc, nil
}

func expandHome(path string) string {
	if path == "~" {
		return homeDir()
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}

	return path
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}

	return os.Getenv("HOME")
}
