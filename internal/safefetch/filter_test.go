package safefetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBlocked(t *testing.T) {
	blocked := []string{
		"http://localhost/file.png",
		"http://LOCALHOST:8080/x",
		"http://api.localhost/x",
		"http://[::1]/x",
		"http://[::ffff:127.0.0.1]/x",
		"http://[fd00::1]/x",
		"http://[fc00::1]/x",
		"http://[fe80::1]/x",
		"http://[fe80::1%25eth0]/x",
		"http://127.0.0.1/x",
		"http://127.4.5.6:9000/x",
		"http://0.0.0.0/x",
		"http://10.0.0.8/x",
		"http://172.16.0.1/x",
		"http://172.31.255.255/x",
		"http://192.168.1.20/x",
		"http://169.254.169.254/latest/meta-data",
		"http://metadata.google.internal/computeMetadata/v1/",
		"http://metadata.google.internal./computeMetadata/v1/",
		"http://2130706433/x",
		"http://0x7f.1/x",
		"ftp://example.com/file",
		"file:///etc/passwd",
		"/relative/path",
		"http://",
		"http://%zz/",
		"",
	}
	for _, raw := range blocked {
		assert.True(t, IsBlocked(raw), raw)
	}

	allowed := []string{
		"https://example.com/report.pdf",
		"http://files.example.org:8080/a/b.png?x=1",
		"http://172.32.0.1/x",
		"http://172.15.255.255/x",
		"http://8.8.8.8/x",
		"https://[2001:db8::1]/x",
		"http://192.169.0.1/x",
	}
	for _, raw := range allowed {
		assert.False(t, IsBlocked(raw), raw)
	}
}
