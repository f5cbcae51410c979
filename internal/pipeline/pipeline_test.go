package pipeline

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/binary"
	"io"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lbloecher/chatload/internal/config"
	"github.com/lbloecher/chatload/internal/protocol"
	"github.com/lbloecher/chatload/internal/regex"
	"github.com/lbloecher/chatload/internal/tlswriter"
)

func selfSignedServerConfig(t *testing.T) *tls.Config {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}

	return &tls.Config{Certificates: []tls.Certificate{{
		Certificate: [][]byte{der},
		PrivateKey:  priv,
	}}}
}

// runAcceptingCollector accepts TLS connections forever (until stop),
// replies VersionOK to every handshake, and discards everything it
// receives afterwards, mirroring a live collector's tolerance.
func runAcceptingCollector(t *testing.T) (addr string, stop func()) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	tlsLn := tls.NewListener(ln, selfSignedServerConfig(t))

	go func() {
		for {
			conn, err := tlsLn.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				var clientVersion [4]byte
				if _, err := io.ReadFull(conn, clientVersion[:]); err != nil {
					return
				}
				var out [4]byte
				binary.LittleEndian.PutUint32(out[:], uint32(protocol.VersionOK))
				if _, err := conn.Write(out[:]); err != nil {
					return
				}
				io.Copy(io.Discard, conn)
			}(conn)
		}
	}()

	return ln.Addr().String(), func() { tlsLn.Close() }
}

func writeUTF16LELogFile(t *testing.T, path, channel string, lines []string) {
	t.Helper()

	text := "Channel Name: " + channel + "\n"
	for _, l := range lines {
		text += l + "\n"
	}

	buf := make([]byte, 0, 2+2*len(text))
	buf = append(buf, 0xFF, 0xFE)
	for i := 0; i < len(text); i++ {
		var tmp [2]byte
		binary.LittleEndian.PutUint16(tmp[:], uint16(text[i]))
		buf = append(buf, tmp[:]...)
	}

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func splitHostPort(t *testing.T, addr string) (string, string) {
	t.Helper()
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("SplitHostPort: %v", err)
	}
	return host, port
}

func TestPipelineRunEndToEnd(t *testing.T) {
	addr, stop := runAcceptingCollector(t)
	defer stop()
	host, port := splitHostPort(t, addr)

	logDir := t.TempDir()
	writeUTF16LELogFile(t, filepath.Join(logDir, "chat_1.txt"), "General", []string{
		"[ 2024.01.01 12:00:00 ] Jane Doe > hello",
		"[ 2024.01.01 12:05:00 ] Jane Doe > again",
		"[ 2024.01.01 12:10:00 ] EVE System > ignored",
	})

	pattern, err := regex.New(".*", regex.Default)
	if err != nil {
		t.Fatalf("regex.New: %v", err)
	}
	opts := config.Options{
		LogDir:        logDir,
		CachePath:     filepath.Join(logDir, "cache.tsv"),
		UseCache:      true,
		FilenameRegex: pattern,
		Hosts:         []tlswriter.Host{{Name: host, Port: port, Insecure: true}},
		Timeout:       2 * time.Second,
	}

	p := New(opts)
	stats, err := p.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Reader.FilesRead != 1 {
		t.Fatalf("FilesRead = %d, want 1", stats.Reader.FilesRead)
	}
	if stats.Reports != 1 {
		t.Fatalf("Reports = %d, want 1 (Jane Doe only, EVE System filtered)", stats.Reports)
	}
	if len(stats.Hosts) != 1 {
		t.Fatalf("expected 1 host result, got %d", len(stats.Hosts))
	}
	if stats.Hosts[0].Err != nil {
		t.Fatalf("unexpected writer error: %v", stats.Hosts[0].Err)
	}
}

func TestPipelineRunDedupsIdenticalEntryAcrossFiles(t *testing.T) {
	addr, stop := runAcceptingCollector(t)
	defer stop()
	host, port := splitHostPort(t, addr)

	logDir := t.TempDir()
	line := []string{"[ 2024.01.01 12:00:00 ] Jane Doe > hello"}
	writeUTF16LELogFile(t, filepath.Join(logDir, "chat_1.txt"), "General", line)
	writeUTF16LELogFile(t, filepath.Join(logDir, "chat_2.txt"), "General", line)

	pattern, err := regex.New(".*", regex.Default)
	if err != nil {
		t.Fatalf("regex.New: %v", err)
	}
	opts := config.Options{
		LogDir:        logDir,
		CachePath:     filepath.Join(logDir, "cache.tsv"),
		UseCache:      false,
		FilenameRegex: pattern,
		Hosts:         []tlswriter.Host{{Name: host, Port: port, Insecure: true}},
		Timeout:       2 * time.Second,
	}

	p := New(opts)
	stats, err := p.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Reader.FilesRead != 2 {
		t.Fatalf("FilesRead = %d, want 2", stats.Reader.FilesRead)
	}
	if stats.Reports != 1 {
		t.Fatalf("Reports = %d, want 1 (identical entry from both files deduped)", stats.Reports)
	}
}

func TestPipelineRunWithUnreachableHostStillCompletes(t *testing.T) {
	logDir := t.TempDir()
	writeUTF16LELogFile(t, filepath.Join(logDir, "chat_1.txt"), "General", []string{
		"[ 2024.01.01 12:00:00 ] Jane Doe > hello",
	})

	pattern, err := regex.New(".*", regex.Default)
	if err != nil {
		t.Fatalf("regex.New: %v", err)
	}
	opts := config.Options{
		LogDir:        logDir,
		CachePath:     filepath.Join(logDir, "cache.tsv"),
		UseCache:      true,
		FilenameRegex: pattern,
		Hosts:         []tlswriter.Host{{Name: "127.0.0.1", Port: "1", Insecure: true}},
		Timeout:       500 * time.Millisecond,
	}

	p := New(opts)
	stats, err := p.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(stats.Hosts) != 1 || stats.Hosts[0].Err == nil {
		t.Fatalf("expected the sole unreachable host to have a recorded error, got %+v", stats.Hosts)
	}
}
