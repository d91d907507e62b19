package ingest

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mlagent-labs/mlagent/internal/manifest"
	"github.com/mlagent-labs/mlagent/internal/registry"
)

// call records one registry invocation for assertion.
type call struct {
	op     string
	name   string
	path   string
	active bool
	desc   string
}

// fakeRegistry records calls and fails any name listed in failNames.
type fakeRegistry struct {
	calls     []call
	failNames map[string]bool
	version   uint
}

func (f *fakeRegistry) RegisterModel(name, path string, active bool, description string, _ registry.PackageContext) (uint, error) {
	f.calls = append(f.calls, call{op: "register_model", name: name, path: path, active: active, desc: description})
	if f.failNames[name] {
		return 0, fmt.Errorf("rejected")
	}
	f.version++
	return f.version, nil
}

func (f *fakeRegistry) SetPipelineDescription(name, description string) error {
	f.calls = append(f.calls, call{op: "set_pipeline_description", name: name, desc: description})
	if f.failNames[name] {
		return fmt.Errorf("rejected")
	}
	return nil
}

func (f *fakeRegistry) AddResource(name, path, description string, _ registry.PackageContext) error {
	f.calls = append(f.calls, call{op: "add_resource", name: name, path: path, desc: description})
	if f.failNames[name] {
		return fmt.Errorf("rejected")
	}
	return nil
}

func run(t *testing.T, reg *fakeRegistry, doc string) Report {
	t.Helper()
	m, err := manifest.Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	in := New(reg, registry.PackageContext{IsRPK: true, PkgID: "pkg"}, zerolog.Nop())
	return in.Run(m)
}

func TestRun_SingleModel(t *testing.T) {
	reg := &fakeRegistry{}
	report := run(t, reg, `{"models":[{"name":"mnist","model":"/res/mnist.tflite","activate":"true"}]}`)

	want := []call{{op: "register_model", name: "mnist", path: "/res/mnist.tflite", active: true}}
	if !reflect.DeepEqual(reg.calls, want) {
		t.Errorf("calls = %+v, want %+v", reg.calls, want)
	}
	if report.Succeeded != 1 || report.Failed != 0 {
		t.Errorf("report = %d ok / %d failed, want 1/0", report.Succeeded, report.Failed)
	}
	if report.Outcomes[0].Version != 1 {
		t.Errorf("assigned version = %d, want 1", report.Outcomes[0].Version)
	}
}

func TestRun_SingularScalarPipeline(t *testing.T) {
	reg := &fakeRegistry{}
	run(t, reg, `{"pipeline":{"name":"p1","pipeline":"videotestsrc ! fakesink"}}`)

	want := []call{{op: "set_pipeline_description", name: "p1", desc: "videotestsrc ! fakesink"}}
	if !reflect.DeepEqual(reg.calls, want) {
		t.Errorf("calls = %+v, want %+v", reg.calls, want)
	}
}

func TestRun_ResourceFanOut(t *testing.T) {
	reg := &fakeRegistry{}
	report := run(t, reg, `{"resources":[{"name":"labels","description":"d","path":["a","b","c"]}]}`)

	if len(reg.calls) != 3 {
		t.Fatalf("got %d calls, want 3", len(reg.calls))
	}
	for i, path := range []string{"a", "b", "c"} {
		c := reg.calls[i]
		if c.op != "add_resource" || c.name != "labels" || c.path != path || c.desc != "d" {
			t.Errorf("call %d = %+v, want add_resource labels %s d", i, c, path)
		}
	}
	if report.Succeeded != 3 {
		t.Errorf("Succeeded = %d, want 3", report.Succeeded)
	}
}

func TestRun_ResourceWithoutPath(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing path", `{"resource":{"name":"r"}}`},
		{"empty path array", `{"resource":{"name":"r","path":[]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &fakeRegistry{}
			report := run(t, reg, tt.doc)
			if len(reg.calls) != 0 {
				t.Errorf("got %d registry calls, want 0", len(reg.calls))
			}
			if report.Failed != 1 {
				t.Errorf("Failed = %d, want 1", report.Failed)
			}
		})
	}
}

func TestRun_MissingRequiredFieldSkipsCall(t *testing.T) {
	reg := &fakeRegistry{}
	report := run(t, reg, `{"models":[{"model":"/a"},{"name":"ok","model":"/b"}]}`)

	if len(reg.calls) != 1 || reg.calls[0].name != "ok" {
		t.Errorf("calls = %+v, want only the valid item", reg.calls)
	}
	if report.Failed != 1 || report.Succeeded != 1 {
		t.Errorf("report = %d ok / %d failed, want 1/1", report.Succeeded, report.Failed)
	}
}

func TestRun_RegistryFailureDoesNotAbort(t *testing.T) {
	reg := &fakeRegistry{failNames: map[string]bool{"bad": true}}
	report := run(t, reg, `{"models":[
		{"name":"a","model":"/a"},
		{"name":"bad","model":"/bad"},
		{"name":"b","model":"/b"}
	]}`)

	if len(reg.calls) != 3 {
		t.Fatalf("got %d calls, want all 3 attempted", len(reg.calls))
	}
	if report.Succeeded != 2 || report.Failed != 1 {
		t.Errorf("report = %d ok / %d failed, want 2/1", report.Succeeded, report.Failed)
	}

	var failed *Outcome
	for i := range report.Outcomes {
		if report.Outcomes[i].Err != nil {
			failed = &report.Outcomes[i]
		}
	}
	if failed == nil || failed.Name != "bad" {
		t.Errorf("failed outcome = %+v, want item identity preserved", failed)
	}
}

func TestRun_MixedSectionsInDocumentOrder(t *testing.T) {
	reg := &fakeRegistry{}
	run(t, reg, `{
		"pipeline":{"name":"p","pipeline":"x ! y"},
		"models":[{"name":"m","model":"/m"}],
		"resource":{"name":"r","path":"rp"}
	}`)

	ops := make([]string, len(reg.calls))
	for i, c := range reg.calls {
		ops[i] = c.op
	}
	want := []string{"set_pipeline_description", "register_model", "add_resource"}
	if !reflect.DeepEqual(ops, want) {
		t.Errorf("op order = %v, want %v", ops, want)
	}
}

// The engine performs no dedup: ingesting the same manifest twice issues
// the same call sequence twice.
func TestRun_Idempotence(t *testing.T) {
	doc := `{"resources":[{"name":"r","path":["a","b"]}]}`
	m, err := manifest.Decode([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}

	reg := &fakeRegistry{}
	in := New(reg, registry.PackageContext{}, zerolog.Nop())
	in.Run(m)
	firstRun := append([]call(nil), reg.calls...)
	reg.calls = nil
	in.Run(m)

	if !reflect.DeepEqual(firstRun, reg.calls) {
		t.Errorf("second run calls = %+v, want same as first %+v", reg.calls, firstRun)
	}
}

func TestRun_NormalizerIssueOutcomeCarriesReason(t *testing.T) {
	reg := &fakeRegistry{}
	report := run(t, reg, `{"resource":{"name":"r","path":[]}}`)

	if len(report.Outcomes) != 1 {
		t.Fatalf("got %d outcomes, want 1", len(report.Outcomes))
	}
	if report.Outcomes[0].Err == nil {
		t.Fatal("outcome error is nil, want the normalizer reason")
	}
	if report.Outcomes[0].Kind != manifest.KindResource || report.Outcomes[0].Name != "r" {
		t.Errorf("outcome identity = %+v", report.Outcomes[0])
	}
}
