package lifecycle

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mlagent-labs/mlagent/internal/registry"
)

// fakeInspector serves canned metadata and can fail selected queries.
type fakeInspector struct {
	pkgType    string
	rootPath   string
	resType    string
	resVersion string
	failType   bool
	failRoot   bool
}

func (f *fakeInspector) PackageType(string) (string, error) {
	if f.failType {
		return "", fmt.Errorf("pkginfo unavailable")
	}
	return f.pkgType, nil
}

func (f *fakeInspector) RootPath(string) (string, error) {
	if f.failRoot {
		return "", fmt.Errorf("pkginfo unavailable")
	}
	return f.rootPath, nil
}

func (f *fakeInspector) ResourceType(string) (string, error)    { return f.resType, nil }
func (f *fakeInspector) ResourceVersion(string) (string, error) { return f.resVersion, nil }

// fakeHandle records registry calls and its release.
type fakeHandle struct {
	registered []string
	pipelines  []string
	resources  []string
	failAll    bool
	closed     bool
	lastCtx    registry.PackageContext
}

func (f *fakeHandle) RegisterModel(name, path string, active bool, description string, ctx registry.PackageContext) (uint, error) {
	f.lastCtx = ctx
	if f.failAll {
		return 0, fmt.Errorf("registry down")
	}
	f.registered = append(f.registered, name)
	return uint(len(f.registered)), nil
}

func (f *fakeHandle) SetPipelineDescription(name, description string) error {
	if f.failAll {
		return fmt.Errorf("registry down")
	}
	f.pipelines = append(f.pipelines, name)
	return nil
}

func (f *fakeHandle) AddResource(name, path, description string, ctx registry.PackageContext) error {
	f.lastCtx = ctx
	if f.failAll {
		return fmt.Errorf("registry down")
	}
	f.resources = append(f.resources, path)
	return nil
}

func (f *fakeHandle) Close() error {
	f.closed = true
	return nil
}

// installFixture lays out an installed rpk package with the given
// manifest content and returns a Runner over it plus the handle.
func installFixture(t *testing.T, manifestJSON string) (*Runner, *fakeHandle, *fakeInspector) {
	t.Helper()

	root := t.TempDir()
	insp := &fakeInspector{
		pkgType:    "rpk",
		rootPath:   root,
		resType:    "vision",
		resVersion: "1.0.0",
	}

	if manifestJSON != "" {
		dir := filepath.Join(root, "res", "global", "vision")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "rpk_config.json"), []byte(manifestJSON), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	handle := &fakeHandle{}
	runner := NewRunner(insp, func() (RegistryHandle, error) { return handle, nil }, zerolog.Nop())
	return runner, handle, insp
}

func TestInstall_HappyPath(t *testing.T) {
	runner, handle, _ := installFixture(t, `{
		"models":[{"name":"mnist","model":"/res/mnist.tflite","activate":"true"}],
		"resources":[{"name":"labels","path":["a","b"]}]
	}`)

	if err := runner.Install("org.example.pkg", "app1", []string{"k=v"}); err != nil {
		t.Fatalf("Install error: %v", err)
	}

	if len(handle.registered) != 1 || handle.registered[0] != "mnist" {
		t.Errorf("registered = %v", handle.registered)
	}
	if len(handle.resources) != 2 {
		t.Errorf("resources = %v, want 2 expanded paths", handle.resources)
	}
	if !handle.closed {
		t.Error("registry handle was not released")
	}

	ctx := handle.lastCtx
	if !ctx.IsRPK || ctx.PkgID != "org.example.pkg" || ctx.AppID != "app1" ||
		ctx.ResType != "vision" || ctx.ResVersion != "1.0.0" {
		t.Errorf("package context = %+v", ctx)
	}
}

func TestInstall_NonRPKSkipped(t *testing.T) {
	runner, handle, insp := installFixture(t, `{"models":[{"name":"m","model":"/m"}]}`)
	insp.pkgType = "tpk"

	connectCalled := false
	runner.connect = func() (RegistryHandle, error) {
		connectCalled = true
		return handle, nil
	}

	if err := runner.Install("org.example.pkg", "", nil); err != nil {
		t.Fatalf("Install error: %v", err)
	}
	if connectCalled {
		t.Error("registry was contacted for a non-rpk package")
	}
	if len(handle.registered) != 0 {
		t.Errorf("registered = %v, want none", handle.registered)
	}
}

func TestInstall_ManifestMissing(t *testing.T) {
	runner, _, _ := installFixture(t, "")
	if err := runner.Install("org.example.pkg", "", nil); err == nil {
		t.Fatal("expected structural error for missing manifest")
	}
}

func TestInstall_InspectorFailureIsStructural(t *testing.T) {
	runner, _, insp := installFixture(t, `{}`)

	insp.failType = true
	if err := runner.Install("p", "", nil); err == nil {
		t.Fatal("expected error when package type query fails")
	}

	insp.failType = false
	insp.failRoot = true
	if err := runner.Install("p", "", nil); err == nil {
		t.Fatal("expected error when root path query fails")
	}
}

func TestInstall_PerItemFailuresStillSucceed(t *testing.T) {
	runner, handle, _ := installFixture(t, `{"models":[{"name":"m","model":"/m"}]}`)
	handle.failAll = true

	if err := runner.Install("org.example.pkg", "", nil); err != nil {
		t.Fatalf("Install returned %v, want success despite per-item failures", err)
	}
}

func TestInstall_UnknownSectionIsStructural(t *testing.T) {
	runner, handle, _ := installFixture(t, `{
		"models":[{"name":"m","model":"/m"}],
		"widgets":[{"name":"w"}]
	}`)

	if err := runner.Install("org.example.pkg", "", nil); err == nil {
		t.Fatal("expected structural error for unknown section")
	}
	if len(handle.registered) != 0 {
		t.Errorf("registered = %v, want zero calls before structural failure", handle.registered)
	}
}

func TestNoOpHooks(t *testing.T) {
	runner, handle, _ := installFixture(t, `{"models":[{"name":"m","model":"/m"}]}`)

	hooks := map[string]func(string, string, []string) error{
		"uninstall": runner.Uninstall,
		"clean":     runner.Clean,
		"undo":      runner.Undo,
	}
	for name, hook := range hooks {
		t.Run(name, func(t *testing.T) {
			if err := hook("org.example.pkg", "", nil); err != nil {
				t.Errorf("%s returned %v, want nil", name, err)
			}
		})
	}
	if len(handle.registered) != 0 {
		t.Errorf("no-op hooks made registry calls: %v", handle.registered)
	}
}

func TestUpgrade_RunsInstall(t *testing.T) {
	runner, handle, _ := installFixture(t, `{"models":[{"name":"m","model":"/m"}]}`)
	if err := runner.Upgrade("org.example.pkg", "", nil); err != nil {
		t.Fatalf("Upgrade error: %v", err)
	}
	if len(handle.registered) != 1 {
		t.Errorf("registered = %v, want the install step to have run", handle.registered)
	}
}

func TestRecoverHooks(t *testing.T) {
	runner, handle, _ := installFixture(t, `{"models":[{"name":"m","model":"/m"}]}`)

	if err := runner.RecoverInstall("p", "", nil); err != nil {
		t.Errorf("RecoverInstall = %v, want nil (uninstall semantics)", err)
	}
	if len(handle.registered) != 0 {
		t.Error("RecoverInstall must not register")
	}

	if err := runner.RecoverUninstall("p", "", nil); err != nil {
		t.Errorf("RecoverUninstall = %v, want nil (install semantics)", err)
	}
	if len(handle.registered) != 1 {
		t.Error("RecoverUninstall must run the install path")
	}

	if err := runner.RecoverUpgrade("p", "", nil); err != nil {
		t.Errorf("RecoverUpgrade = %v, want nil (upgrade semantics)", err)
	}
	if len(handle.registered) != 2 {
		t.Error("RecoverUpgrade must run the install path again")
	}
}

func TestManifestPath(t *testing.T) {
	got := ManifestPath("/opt/pkgs/p", "vision")
	want := filepath.Join("/opt/pkgs/p", "res", "global", "vision", "rpk_config.json")
	if got != want {
		t.Errorf("ManifestPath = %q, want %q", got, want)
	}
}
