package index

// Stage is a phase of an index build.
type Stage string

const (
	StageScanning   Stage = "scanning"
	StageExtracting Stage = "extracting"
	StageWriting    Stage = "writing"
)

// Progress reports how far a build has come. Current and Total count files
// during StageExtracting and documents during StageWriting.
type Progress struct {
	Base    string
	Stage   Stage
	Current int
	Total   int
	Path    string
}

// ProgressFunc receives progress updates. It is called from a single
// goroutine per build.
type ProgressFunc func(Progress)
