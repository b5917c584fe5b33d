package domain

// Language tags accepted at project creation.
const (
	LangPython      = "python"
	LangWebstack    = "webstack"
	LangNode        = "node"
	LangReact       = "react"
	LangReactNative = "react-native"
	LangHTML        = "html"
	LangCSS         = "css"
	LangJS          = "js"
)

// Runtime defaults for node projects.
const (
	DataStatusIdle  = "idle"
	DefaultNodePort = 3000
)

// File is a single path/content pair inside a project. FilePath is unique
// within its project and is the only identity a file has.
type File struct {
	FilePath string `json:"filePath" bson:"filePath"`
	Code     string `json:"code" bson:"code"`
}

// Project is the document persisted by every store backend.
// It is storage-agnostic and used across repository, service and HTTP layers.
type Project struct {
	ProjectID       string            `json:"projectId" bson:"projectId"`
	ProjectName     string            `json:"projectName" bson:"projectName"`
	Lang            string            `json:"lang" bson:"lang"`
	LastUpdatedDate string            `json:"lastUpdatedDate" bson:"lastUpdatedDate"`
	FileSets        []File            `json:"fileSets" bson:"fileSets"`
	Dependencies    map[string]string `json:"dependencies" bson:"dependencies"`

	// Node projects only.
	DataStatus *string   `json:"dataStatus,omitempty" bson:"dataStatus,omitempty"`
	Logs       *[]string `json:"logs,omitempty" bson:"logs,omitempty"`
	Port       *int      `json:"port,omitempty" bson:"port,omitempty"`
}

// AttachRuntime sets the node runtime fields to their initial values.
func (p *Project) AttachRuntime() {
	status := DataStatusIdle
	logs := []string{}
	port := DefaultNodePort
	p.DataStatus = &status
	p.Logs = &logs
	p.Port = &port
}

// ProjectSummary is the projection returned when listing projects.
type ProjectSummary struct {
	ProjectID       string `json:"projectId" bson:"projectId"`
	ProjectName     string `json:"projectName" bson:"projectName"`
	Lang            string `json:"lang" bson:"lang"`
	LastUpdatedDate string `json:"lastUpdatedDate" bson:"lastUpdatedDate"`
}

// HasRuntime reports whether the project carries the node runtime fields.
func (p *Project) HasRuntime() bool {
	return p.Lang == LangNode
}

// FindFile returns the index of the first file whose path equals filePath,
// or -1 when the project has no such file.
func (p *Project) FindFile(filePath string) int {
	for i, f := range p.FileSets {
		if f.FilePath == filePath {
			return i
		}
	}
	return -1
}

// CodeUpdate describes an in-place overwrite of one file's code.
// When ResetRuntime is set the store also sets dataStatus to DataStatus and
// clears logs in the same atomic update.
type CodeUpdate struct {
	FilePath        string
	Code            string
	LastUpdatedDate string
	ResetRuntime    bool
	DataStatus      string
}
