package app

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"github.com/agrinet/becknmart/config"
)

const sftpDialTimeout = 10 * time.Second

func sftpHostKeyCallback(cfg config.SftpConfig) (ssh.HostKeyCallback, error) {
	if cfg.HostKey == "" {
		zap.L().Warn("backup sftp: host key not configured, skipping verification",
			zap.String("namespace", "backup"), zap.String("addr", cfg.Addr))
		return ssh.InsecureIgnoreHostKey(), nil
	}
	key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(cfg.HostKey))
	if err != nil {
		return nil, errors.Wrap(err, "backup sftp: parse host key")
	}
	return ssh.FixedHostKey(key), nil
}

// uploadBackupSftp copies a local backup file to the configured sftp server
func uploadBackupSftp(cfg config.SftpConfig, local string) (string, error) {
	hostKey, err := sftpHostKeyCallback(cfg)
	if err != nil {
		return "", err
	}
	conn, err := ssh.Dial("tcp", cfg.Addr, &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Password)},
		HostKeyCallback: hostKey,
		Timeout:         sftpDialTimeout,
	})
	if err != nil {
		return "", errors.Wrapf(err, "backup sftp: dial %s", cfg.Addr)
	}
	defer conn.Close()

	client, err := sftp.NewClient(conn)
	if err != nil {
		return "", errors.Wrap(err, "backup sftp: open session")
	}
	defer client.Close()
	return uploadBackup(client, local, cfg.Dir)
}

// uploadBackup writes local into dir on the remote side, returns the remote path
func uploadBackup(client *sftp.Client, local, dir string) (string, error) {
	src, err := os.Open(local)
	if err != nil {
		return "", errors.Wrap(err, "backup sftp: open local file")
	}
	defer src.Close()

	if dir == "" {
		dir = "."
	}
	if err := client.MkdirAll(dir); err != nil {
		return "", errors.Wrapf(err, "backup sftp: create %s", dir)
	}
	remote := path.Join(dir, filepath.Base(local))
	dst, err := client.Create(remote)
	if err != nil {
		return "", errors.Wrapf(err, "backup sftp: create %s", remote)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", errors.Wrapf(err, "backup sftp: write %s", remote)
	}
	if err := dst.Close(); err != nil {
		return "", errors.Wrapf(err, "backup sftp: close %s", remote)
	}
	return remote, nil
}
