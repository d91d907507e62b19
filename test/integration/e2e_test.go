package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mlagent-labs/mlagent/internal/lifecycle"
	"github.com/mlagent-labs/mlagent/internal/pkginfo"
	"github.com/mlagent-labs/mlagent/internal/registry"
)

// env is one self-contained test deployment: a registry daemon on a unix
// socket, a pkginfo directory, and an installed package root.
type env struct {
	t       *testing.T
	dir     string
	client  *registry.Client
	runner  *lifecycle.Runner
	pkgRoot string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()

	store, err := registry.Open(filepath.Join(dir, "registry.json"))
	if err != nil {
		t.Fatal(err)
	}

	socket := filepath.Join(dir, "mlagent.sock")
	srv := registry.NewServer(store, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx, socket)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	client := registry.Dial(socket)
	deadline := time.Now().Add(5 * time.Second)
	for client.Health() != nil {
		if time.Now().After(deadline) {
			t.Fatal("daemon did not come up")
		}
		time.Sleep(10 * time.Millisecond)
	}

	pkginfoDir := filepath.Join(dir, "pkginfo")
	if err := os.MkdirAll(pkginfoDir, 0o755); err != nil {
		t.Fatal(err)
	}

	e := &env{
		t:       t,
		dir:     dir,
		client:  client,
		pkgRoot: filepath.Join(dir, "pkgs", "org.example.vision"),
	}
	e.runner = lifecycle.NewRunner(
		pkginfo.NewDirInspector(pkginfoDir),
		func() (lifecycle.RegistryHandle, error) {
			return registry.Dial(socket), nil
		},
		zerolog.Nop(),
	)
	return e
}

// installPackage writes the pkginfo record and the manifest for one
// installed package.
func (e *env) installPackage(pkgType, manifestJSON string) {
	e.t.Helper()

	info := "type: " + pkgType + "\n" +
		"root_path: " + e.pkgRoot + "\n" +
		"res_type: vision\n" +
		"res_version: 1.0.0\n"
	infoPath := filepath.Join(e.dir, "pkginfo", "org.example.vision.yaml")
	if err := os.WriteFile(infoPath, []byte(info), 0o644); err != nil {
		e.t.Fatal(err)
	}

	if manifestJSON == "" {
		return
	}
	manifestDir := filepath.Join(e.pkgRoot, "res", "global", "vision")
	if err := os.MkdirAll(manifestDir, 0o755); err != nil {
		e.t.Fatal(err)
	}
	manifestPath := filepath.Join(manifestDir, "rpk_config.json")
	if err := os.WriteFile(manifestPath, []byte(manifestJSON), 0o644); err != nil {
		e.t.Fatal(err)
	}
}

func TestInstall_RegistersManifestEntries(t *testing.T) {
	e := newEnv(t)
	e.installPackage("rpk", `{
		"models":[{"name":"mnist","model":"/res/mnist.tflite","activate":"true"}],
		"pipeline":{"name":"p1","pipeline":"videotestsrc ! fakesink"},
		"resources":[{"name":"labels","description":"d","path":["a","b","c"]}]
	}`)

	if err := e.runner.Install("org.example.vision", "app", nil); err != nil {
		t.Fatalf("Install error: %v", err)
	}

	m, err := e.client.GetActivatedModel("mnist")
	if err != nil {
		t.Fatalf("GetActivatedModel error: %v", err)
	}
	if m.Version != 1 || m.Path != "/res/mnist.tflite" {
		t.Errorf("model = %+v", m)
	}
	if m.Context.PkgID != "org.example.vision" || !m.Context.IsRPK {
		t.Errorf("package context = %+v", m.Context)
	}

	p, err := e.client.GetPipeline("p1")
	if err != nil {
		t.Fatalf("GetPipeline error: %v", err)
	}
	if p.Description != "videotestsrc ! fakesink" {
		t.Errorf("pipeline = %+v", p)
	}

	r, err := e.client.GetResource("labels")
	if err != nil {
		t.Fatalf("GetResource error: %v", err)
	}
	if len(r.Paths) != 3 || r.Paths[0] != "a" || r.Paths[2] != "c" {
		t.Errorf("resource paths = %v, want [a b c]", r.Paths)
	}
}

// Upgrading re-ingests the manifest; models get a fresh version since the
// registry is append-only and uninstall retracts nothing.
func TestUpgrade_AppendsModelVersion(t *testing.T) {
	e := newEnv(t)
	e.installPackage("rpk", `{"models":[{"name":"mnist","model":"/res/mnist.tflite","activate":"true"}]}`)

	if err := e.runner.Install("org.example.vision", "", nil); err != nil {
		t.Fatal(err)
	}
	if err := e.runner.Upgrade("org.example.vision", "", nil); err != nil {
		t.Fatal(err)
	}

	all, err := e.client.GetAllModels("mnist")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d versions, want 2", len(all))
	}
	active, err := e.client.GetActivatedModel("mnist")
	if err != nil {
		t.Fatal(err)
	}
	if active.Version != 2 {
		t.Errorf("active version = %d, want the re-registered one", active.Version)
	}
}

func TestInstall_NonRPKPackageSkipsManifest(t *testing.T) {
	e := newEnv(t)
	// Manifest exists on disk but the package type gates it off.
	e.installPackage("tpk", `{"models":[{"name":"mnist","model":"/m"}]}`)

	if err := e.runner.Install("org.example.vision", "", nil); err != nil {
		t.Fatalf("Install error: %v", err)
	}
	if _, err := e.client.GetAllModels("mnist"); !errors.Is(err, registry.ErrNoEntry) {
		t.Errorf("err = %v, want ErrNoEntry (no registration for non-rpk)", err)
	}
}

func TestInstall_MissingManifestFails(t *testing.T) {
	e := newEnv(t)
	e.installPackage("rpk", "")

	if err := e.runner.Install("org.example.vision", "", nil); err == nil {
		t.Fatal("expected failure when the manifest file is absent")
	}
}

func TestInstall_UnknownPackageFails(t *testing.T) {
	e := newEnv(t)
	if err := e.runner.Install("org.unknown", "", nil); err == nil {
		t.Fatal("expected failure when the inspector has no record")
	}
}
