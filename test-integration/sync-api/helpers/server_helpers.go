package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/onsi/gomega"

	syncapp "github.com/coursesync/sisu-moodle-sync/internal/app"
	"github.com/coursesync/sisu-moodle-sync/internal/config"
	"github.com/coursesync/sisu-moodle-sync/internal/moodle/moodletest"
)

// ServerTestHelper manages the sync server lifecycle for testing
type ServerTestHelper struct {
	ctx        context.Context
	configPath string
	baseURL    string
	httpClient *http.Client
	app        *syncapp.SyncApp
	moodle     *moodletest.Fake
	port       int
}

// NewServerTestHelper creates a new server test helper listening on a free port
func NewServerTestHelper(ctx context.Context, configPath string, moodle *moodletest.Fake) *ServerTestHelper {
	port := FreePort()
	return &ServerTestHelper{
		ctx:        ctx,
		configPath: configPath,
		baseURL:    fmt.Sprintf("http://127.0.0.1:%d", port),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		moodle: moodle,
		port:   port,
	}
}

// FreePort returns a TCP port that was free a moment ago
func FreePort() int {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	defer func() {
		_ = l.Close()
	}()
	return l.Addr().(*net.TCPAddr).Port
}

// StartServer starts the sync server programmatically
func (s *ServerTestHelper) StartServer() error {
	cfg, err := config.LoadConfig(config.WithConfigPath(s.configPath))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	app, err := syncapp.NewSyncApp(s.ctx,
		syncapp.WithConfig(cfg),
		syncapp.WithAddress(fmt.Sprintf("127.0.0.1:%d", s.port)),
		syncapp.WithMoodleClient(s.moodle),
	)
	if err != nil {
		return fmt.Errorf("failed to build app: %w", err)
	}
	s.app = app

	go func() {
		if err := app.Start(); err != nil {
			// The test fails when it tries to connect
			fmt.Fprintf(os.Stderr, "Server start failed: %v\n", err)
		}
	}()
	return nil
}

// StopServer gracefully stops the sync server
func (s *ServerTestHelper) StopServer() error {
	if s.app != nil {
		return s.app.Stop(5 * time.Second)
	}
	return nil
}

// WaitForServerReady waits for the server to be ready to accept requests
func (s *ServerTestHelper) WaitForServerReady(timeout time.Duration) {
	gomega.Eventually(func() error {
		resp, err := s.httpClient.Get(s.baseURL + "/readiness")
		if err != nil {
			return err
		}
		defer func() {
			_ = resp.Body.Close()
		}()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server returned status %d", resp.StatusCode)
		}
		return nil
	}, timeout, 200*time.Millisecond).Should(gomega.Succeed(), "Server should be ready")
}

// Do sends a request with an optional JSON body and returns the status code and body
func (s *ServerTestHelper) Do(method, path string, body any) (int, []byte) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(s.ctx, method, s.baseURL+path, reader)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	defer func() {
		_ = resp.Body.Close()
	}()
	data, err := io.ReadAll(resp.Body)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return resp.StatusCode, data
}

// DoJSON sends a request, expects the given status code and decodes the response into out
func (s *ServerTestHelper) DoJSON(method, path string, body any, wantStatus int, out any) {
	status, data := s.Do(method, path, body)
	gomega.Expect(status).To(gomega.Equal(wantStatus), "unexpected status for %s %s: %s", method, path, data)
	if out != nil {
		gomega.Expect(json.Unmarshal(data, out)).To(gomega.Succeed())
	}
}

// WriteConfigYAML writes a memory-storage configuration pointing at the fake registry
func WriteConfigYAML(dir, registryURL string, groups bool) string {
	apiKeyFile := filepath.Join(dir, "api-key")
	gomega.Expect(os.WriteFile(apiKeyFile, []byte(APIKey), 0600)).To(gomega.Succeed())

	configContent := fmt.Sprintf(`sisu:
  baseURL: %s
  apiKeyFile: %s
  timeout: 5s
identity:
  baseURL: %s
  timeout: 5s
moodle:
  baseURL: http://moodle.invalid
  roles:
    student: %d
    teacher: %d
    synced: %d
  categoryID: 1
storage: memory
statusPath: %s
sync:
  workers: 2
  groups: %t
  languages: [en, fi]
`, registryURL, apiKeyFile, registryURL, StudentRoleID, TeacherRoleID, SyncedRoleID,
		filepath.Join(dir, "status"), groups)

	configPath := filepath.Join(dir, "config.yaml")
	gomega.Expect(os.WriteFile(configPath, []byte(configContent), 0600)).To(gomega.Succeed())
	return configPath
}
