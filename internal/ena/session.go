// Package ena implements the ENA assembly-report pipeline: it locates an
// assembly's sequence report on the archive's FTP service, downloads it with
// bounded retry, parses it into domain entities, and merges the archive's
// sequence names into an existing assembly.
package ena

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
)

// assemblyRootPath is the archive directory holding per-assembly report trees.
const assemblyRootPath = "/pub/databases/ena/assembly/"

// reportSuffix is appended to the assembly accession to form the report file name.
const reportSuffix = "_sequence_report.txt"

// FileInfo describes a remote report file resolved within an assembly directory.
type FileInfo struct {
	Name string
	Size int64
}

// Session is one connection to the remote archive. Implementations resolve an
// accession to its report directory and file and stream remote files to local
// storage. A Session is single-use: Connect once, Disconnect once.
type Session interface {
	Connect(ctx context.Context) error
	Disconnect() error
	AssemblyDirPath(accession string) (string, error)
	ReportFile(ctx context.Context, dirPath, accession string) (FileInfo, error)
	Download(ctx context.Context, remotePath, localPath string, expectedSize int64) (bool, error)
}

// SessionFactory builds a fresh Session per pipeline invocation so concurrent
// lookups never share a connection.
type SessionFactory interface {
	Build() Session
}

// SessionFactoryFunc adapts a function to the SessionFactory interface.
type SessionFactoryFunc func() Session

// Build calls f.
func (f SessionFactoryFunc) Build() Session { return f() }

// FTPSession is the production Session backed by the archive's FTP service.
type FTPSession struct {
	host    string
	timeout time.Duration
	conn    *ftp.ServerConn
}

// DefaultFTPHost is the public ENA archive endpoint.
const DefaultFTPHost = "ftp.ebi.ac.uk:21"

// NewFTPSession returns an unconnected FTP session for the given host:port.
func NewFTPSession(host string, timeout time.Duration) *FTPSession {
	if host == "" {
		host = DefaultFTPHost
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FTPSession{host: host, timeout: timeout}
}

// Connect dials the archive and logs in anonymously.
func (s *FTPSession) Connect(ctx context.Context) error {
	conn, err := ftp.Dial(s.host, ftp.DialWithContext(ctx), ftp.DialWithTimeout(s.timeout))
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.host, err)
	}
	if err := conn.Login("anonymous", "anonymous"); err != nil {
		_ = conn.Quit()
		return fmt.Errorf("login %s: %w", s.host, err)
	}
	s.conn = conn
	return nil
}

// Disconnect closes the control connection. Safe to call after a failed Connect.
func (s *FTPSession) Disconnect() error {
	if s.conn == nil {
		return nil
	}
	conn := s.conn
	s.conn = nil
	return conn.Quit()
}

// AssemblyDirPath derives the remote directory for an assembly accession.
// The archive shards assemblies by accession prefix, e.g. GCA_000001405.28
// lives under GCA_000/GCA_000001/.
func (s *FTPSession) AssemblyDirPath(accession string) (string, error) {
	if len(accession) < 15 {
		return "", fmt.Errorf("accession %q too short: want at least 15 characters", accession)
	}
	return assemblyRootPath + accession[0:7] + "/" + accession[0:10] + "/", nil
}

// ReportFile lists the assembly directory and resolves the sequence report's
// name and size. A missing directory or report is an error for the caller to
// interpret as absence.
func (s *FTPSession) ReportFile(ctx context.Context, dirPath, accession string) (FileInfo, error) {
	if s.conn == nil {
		return FileInfo{}, fmt.Errorf("session not connected")
	}
	entries, err := s.conn.List(dirPath)
	if err != nil {
		return FileInfo{}, fmt.Errorf("list %s: %w", dirPath, err)
	}
	want := accession + reportSuffix
	for _, entry := range entries {
		if entry.Type == ftp.EntryTypeFile && entry.Name == want {
			return FileInfo{Name: entry.Name, Size: int64(entry.Size)}, nil
		}
	}
	return FileInfo{}, fmt.Errorf("report %s not found in %s", want, dirPath)
}

// Download streams the remote file to localPath and verifies the byte count
// against expectedSize. A size mismatch returns false without an error so the
// caller's retry policy can decide.
func (s *FTPSession) Download(ctx context.Context, remotePath, localPath string, expectedSize int64) (bool, error) {
	if s.conn == nil {
		return false, fmt.Errorf("session not connected")
	}
	resp, err := s.conn.Retr(remotePath)
	if err != nil {
		return false, fmt.Errorf("retrieve %s: %w", remotePath, err)
	}
	defer func() { _ = resp.Close() }()

	out, err := os.Create(localPath)
	if err != nil {
		return false, fmt.Errorf("create %s: %w", localPath, err)
	}
	written, copyErr := io.Copy(out, resp)
	closeErr := out.Close()
	if copyErr != nil {
		return false, fmt.Errorf("download %s: %w", remotePath, copyErr)
	}
	if closeErr != nil {
		return false, fmt.Errorf("close %s: %w", localPath, closeErr)
	}
	return written == expectedSize, nil
}

// reportKey maps an accession to its cache key.
func reportKey(accession string) string {
	return "reports/" + strings.TrimSpace(accession) + reportSuffix
}
