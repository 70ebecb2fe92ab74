package doctor

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rbright/rehearse/internal/config"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestCheckEnv(t *testing.T) {
	t.Setenv("TEST_DOCTOR_ENV", "set")

	check := checkEnv(
		"TEST_DOCTOR_ENV",
		func(v string) bool { return v != "" },
		"looks good",
		"unexpected",
	)

	require.True(t, check.Pass)
	require.Equal(t, "looks good", check.Message)
}

func TestCheckCommandEmpty(t *testing.T) {
	check := checkCommand(nil, "clipboard_cmd")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")
}

func TestCheckBinaryMissing(t *testing.T) {
	check := checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckCommandUsesBinaryFromPath(t *testing.T) {
	dir := t.TempDir()
	installScript(t, dir, "fake-bin", "#!/usr/bin/env bash\nexit 0\n")
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	check := checkCommand([]string{"fake-bin", "--arg"}, "clipboard_cmd")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "clipboard_cmd command is available")
}

func TestCheckEncodingPicksSupportedType(t *testing.T) {
	dir := t.TempDir()
	ffmpeg := installScript(t, dir, "ffmpeg", fakeFFmpeg(" V..... libvpx-vp9 VP9\n A..... libopus Opus\n", "  E webm WebM\n"))

	capture := config.Default().Capture
	capture.FFmpeg = ffmpeg
	check := checkEncoding(context.Background(), capture)
	require.True(t, check.Pass, check.Message)
	require.Contains(t, check.Message, "video/webm;codecs=vp9,opus")
}

func TestCheckEncodingFailsWhenNothingSupported(t *testing.T) {
	dir := t.TempDir()
	ffmpeg := installScript(t, dir, "ffmpeg", fakeFFmpeg(" V..... mpeg4 MPEG-4\n", "  E avi AVI\n"))

	capture := config.Default().Capture
	capture.FFmpeg = ffmpeg
	check := checkEncoding(context.Background(), capture)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, `would fall back to "video/mp4"`)
}

func TestCheckVideoDevice(t *testing.T) {
	missing := checkVideoDevice(filepath.Join(t.TempDir(), "video9"))
	require.False(t, missing.Pass)
	require.Contains(t, missing.Message, "No camera/microphone found")

	path := filepath.Join(t.TempDir(), "video0")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	present := checkVideoDevice(path)
	require.True(t, present.Pass)
}

func TestCheckHyprland(t *testing.T) {
	dir := t.TempDir()
	installScript(t, dir, "hyprctl", "#!/usr/bin/env bash\necho 'Hyprland 0.45.2 built from branch main'\necho 'Date: today'\n")
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	check := checkHyprland(context.Background())
	require.True(t, check.Pass)
	require.Equal(t, "Hyprland 0.45.2 built from branch main", check.Message)
}

func TestCheckBackendReady(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/login", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default().Backend
	cfg.URL = server.URL

	check := checkBackendReady(context.Background(), cfg)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "reachable at")
}

func TestCheckBackendReadyFailureStatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default().Backend
	cfg.URL = server.URL

	check := checkBackendReady(context.Background(), cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "Server error: 503")
}

func TestCheckBackendReadyUnreachable(t *testing.T) {
	cfg := config.Default().Backend
	cfg.URL = "http://127.0.0.1:1"

	check := checkBackendReady(context.Background(), cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "network error")
}

func TestCheckGRPCHealth(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	server := grpc.NewServer()
	healthpb.RegisterHealthServer(server, health.NewServer())
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)

	check := checkGRPCHealth(context.Background(), listener.Addr().String())
	require.True(t, check.Pass, check.Message)
	require.True(t, strings.HasSuffix(check.Message, "is SERVING"))
}

func installScript(t *testing.T, dir string, name string, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

func fakeFFmpeg(encoders string, muxers string) string {
	return "#!/usr/bin/env bash\n" +
		"if [[ \"$2\" == \"-encoders\" ]]; then\n" +
		"  printf 'Encoders:\\n ------\\n%s' '" + encoders + "'\n" +
		"else\n" +
		"  printf 'Formats:\\n --\\n%s' '" + muxers + "'\n" +
		"fi\n"
}
