// FILE: src/internal/archive/sftp.go
package archive

import (
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"os"
	"path"
	"time"

	"rsslogfeed/src/internal/config"
	"rsslogfeed/src/internal/core"
	"rsslogfeed/src/internal/format"

	"github.com/lixenwraith/log"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Date code used for daily archive file names
const fileNameLayout = "20060102"

const defaultDialTimeout = 30 * time.Second

// SFTPSink appends evicted records to daily files on a remote SFTP
// target. Each Persist call opens and closes its own session.
//
// When connection parameters are incomplete the sink runs in degraded
// mode: records are logged locally instead of archived. That is a
// supported configuration, not an error.
type SFTPSink struct {
	addr       string
	remotePath string
	sshConfig  *ssh.ClientConfig
	degraded   bool
	logger     *log.Logger
}

// NewSFTPSink builds the sink from configuration. The private key is
// decoded once here so a bad key fails at startup, not mid-eviction.
func NewSFTPSink(cfg config.ArchiveConfig, logger *log.Logger) (*SFTPSink, error) {
	s := &SFTPSink{
		remotePath: cfg.RemotePath,
		logger:     logger,
	}

	if cfg.Hostname == "" || cfg.Username == "" || cfg.PrivateKeyB64 == "" {
		s.degraded = true
		logger.Warn("msg", "SFTP credentials not provided, archival disabled",
			"component", "sftp_sink")
		return s, nil
	}

	pem, err := base64.StdEncoding.DecodeString(cfg.PrivateKeyB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(pem)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	port := cfg.Port
	if port == 0 {
		port = 22
	}

	s.addr = fmt.Sprintf("%s:%d", cfg.Hostname, port)
	s.sshConfig = &ssh.ClientConfig{
		User:            cfg.Username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	logger.Info("msg", "SFTP sink initialized",
		"component", "sftp_sink",
		"addr", s.addr,
		"remote_path", s.remotePath)

	return s, nil
}

// Degraded reports whether the sink is skipping archival
func (s *SFTPSink) Degraded() bool {
	return s.degraded
}

// Persist appends the record's rendered line to the daily file keyed by
// the record's arrival date. The whole operation is bounded by the
// context deadline. Missing remote directories are created on first use.
func (s *SFTPSink) Persist(ctx context.Context, rec core.LogRecord) error {
	line := format.Line(rec)

	if s.degraded {
		s.logger.Warn("msg", "SFTP credentials not provided, skipping record archival",
			"component", "sftp_sink")
		s.logger.Debug("msg", "Unarchived record",
			"component", "sftp_sink",
			"record", line)
		return nil
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultDialTimeout)
	}

	conn, err := net.DialTimeout("tcp", s.addr, time.Until(deadline))
	if err != nil {
		return fmt.Errorf("sftp dial failed: %w", err)
	}
	defer conn.Close()

	// Covers handshake and every subsequent read/write on this session
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, s.addr, s.sshConfig)
	if err != nil {
		return fmt.Errorf("ssh handshake failed: %w", err)
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)
	defer sshClient.Close()

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		return fmt.Errorf("sftp session failed: %w", err)
	}
	defer client.Close()

	if err := client.MkdirAll(s.remotePath); err != nil {
		return fmt.Errorf("failed to create remote path %q: %w", s.remotePath, err)
	}

	name := path.Join(s.remotePath, rec.Time.Local().Format(fileNameLayout)+".log")
	f, err := client.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_APPEND)
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", name, err)
	}
	defer f.Close()

	if _, err := f.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("failed to write to %q: %w", name, err)
	}

	return nil
}
