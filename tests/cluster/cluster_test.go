//go:build integration

package cacheserver_cluster_test

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/giantswarm/cacheserver/tests/internal/testutil"
)

const startTimeout = 30 * time.Second

func TestClusterServesFromWorkersOnly(t *testing.T) {
	t.Parallel()

	port := testutil.FreePort(t)
	p := testutil.StartServer(t, testutil.ServerSpec{
		Port:      port,
		Workers:   3,
		CachePath: t.TempDir(),
		Module:    "sqlite",
	})

	p.WaitForOutput(t, "ready on port", 3, startTimeout)
	out := p.Output.String()
	if strings.Contains(out, "Cache Server ready on port") {
		t.Errorf("master must not serve when workers are spawned:\n%s", out)
	}
	for id := 1; id <= 3; id++ {
		want := "Cache Server worker " + strconv.Itoa(id) + " ready on port"
		if !strings.Contains(out, want) {
			t.Errorf("missing %q", want)
		}
	}
	if strings.Count(out, "Cache Server version e2e") != 1 {
		t.Errorf("expected a single version banner from the master:\n%s", out)
	}

	if got := testutil.Exchange(t, port, "PUT artifact 42"); got != "OK" {
		t.Fatalf("PUT reply = %q, want OK", got)
	}
	// Connections are balanced across workers; all of them share the store.
	for i := range 6 {
		if got := testutil.Exchange(t, port, "GET artifact"); got != "VALUE 42" {
			t.Fatalf("GET #%d reply = %q, want VALUE 42", i, got)
		}
	}

	if err := p.Cmd.Process.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("signal master: %v", err)
	}
	if code := p.Wait(t, startTimeout); code != 0 {
		t.Fatalf("master exit status = %d, want 0\n%s", code, p.Output.String())
	}
	if !strings.Contains(p.Output.String(), "Shutting down ...") {
		t.Errorf("missing shutdown line:\n%s", p.Output.String())
	}
}

func TestClusterWorkerLogFiles(t *testing.T) {
	t.Parallel()

	logDir := filepath.Join(t.TempDir(), "logs")
	p := testutil.StartServer(t, testutil.ServerSpec{
		Port:         testutil.FreePort(t),
		Workers:      2,
		CachePath:    t.TempDir(),
		Module:       "sqlite",
		WorkerLogDir: logDir,
	})

	for _, id := range []string{"1", "2"} {
		path := filepath.Join(logDir, "worker-"+id+"-stderr.log")
		want := "Cache Server worker " + id + " ready on port"
		deadline := time.Now().Add(startTimeout)
		for {
			data, _ := os.ReadFile(path)
			if strings.Contains(string(data), want) {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("%s never contained %q\n%s", path, want, data)
			}
			time.Sleep(20 * time.Millisecond)
		}
		if _, err := os.Stat(filepath.Join(logDir, "worker-"+id+"-stdout.log")); err != nil {
			t.Errorf("stdout log of worker %s: %v", id, err)
		}
	}
	if strings.Contains(p.Output.String(), "ready on port") {
		t.Errorf("worker output leaked into the master's stdio:\n%s", p.Output.String())
	}

	if err := p.Cmd.Process.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("signal master: %v", err)
	}
	if code := p.Wait(t, startTimeout); code != 0 {
		t.Fatalf("master exit status = %d, want 0", code)
	}
}
