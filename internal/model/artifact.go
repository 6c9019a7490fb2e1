package model

// ArtifactKind is the kind of file a run produces.
type ArtifactKind string

const (
	ArtifactKindVideo      ArtifactKind = "video"
	ArtifactKindScreenshot ArtifactKind = "screenshot"
)

// Ext returns the file extension (without dot) of the artifact kind.
func (k ArtifactKind) Ext() string {
	switch k {
	case ArtifactKindScreenshot:
		return "png"
	default:
		return "webm"
	}
}

// Artifact is a file produced inside the sandbox and retrieved to local storage.
type Artifact struct {
	Kind       ArtifactKind
	RemotePath string
	LocalPath  string
	Bytes      int
	MIME       string
}
