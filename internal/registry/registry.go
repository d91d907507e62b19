package registry

import (
	"errors"
	"time"
)

var (
	// ErrNoEntry indicates the named entry (or version) does not exist.
	ErrNoEntry = errors.New("registry: no such entry")
	// ErrActive indicates a delete targeted an active model version
	// without force.
	ErrActive = errors.New("registry: model version is active")
	// ErrInvalid indicates a malformed request (empty name or path).
	ErrInvalid = errors.New("registry: invalid argument")
)

// PackageContext attributes a registration to the package whose manifest
// declared it. It is built once per lifecycle invocation and attached to
// every model and resource row written during that invocation.
type PackageContext struct {
	IsRPK      bool   `json:"is_rpk"`
	PkgID      string `json:"pkg_id"`
	AppID      string `json:"app_id"`
	ResType    string `json:"res_type"`
	ResVersion string `json:"res_version"`
}

// Model is one registered model version. Versions of a name are assigned
// sequentially starting at 1; at most one version per name is active.
type Model struct {
	Name         string         `json:"name"`
	Version      uint           `json:"version"`
	Path         string         `json:"path"`
	Active       bool           `json:"active"`
	Description  string         `json:"description"`
	Context      PackageContext `json:"context"`
	RegisteredAt time.Time      `json:"registered_at"`
}

// Pipeline is a named pipeline description. Set is an upsert keyed by
// name; there is no versioning.
type Pipeline struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Resource is a named set of paths. Each Add appends one path; the
// description is last-write-wins.
type Resource struct {
	Name        string         `json:"name"`
	Paths       []string       `json:"paths"`
	Description string         `json:"description"`
	Context     PackageContext `json:"context"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Registry is the full operation surface of the registry service,
// implemented by both the in-process Store and the remote Client.
type Registry interface {
	// RegisterModel adds a new version of the named model and returns
	// the assigned version number. Registering with active set
	// deactivates any previously active version of the name.
	RegisterModel(name, path string, active bool, description string, ctx PackageContext) (uint, error)
	UpdateModelDescription(name string, version uint, description string) error
	// ActivateModel marks the given version active and every other
	// version of the name inactive.
	ActivateModel(name string, version uint) error
	GetModel(name string, version uint) (Model, error)
	GetActivatedModel(name string) (Model, error)
	GetAllModels(name string) ([]Model, error)
	// DeleteModel removes one version, or every version of the name
	// when version is 0. Deleting an active version requires force.
	DeleteModel(name string, version uint, force bool) error

	SetPipelineDescription(name, description string) error
	GetPipeline(name string) (Pipeline, error)
	DeletePipeline(name string) error

	AddResource(name, path, description string, ctx PackageContext) error
	GetResource(name string) (Resource, error)
	DeleteResource(name string) error

	Close() error
}
