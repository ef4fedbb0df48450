// Package v1 is the wire contract spoken with the render gateway.
//
// The gateway fronts the serverless renderer: /render starts a render of a
// composition and returns its handle, /progress reports on that handle.
package v1

import "encoding/json"

const (
	PathRender   = "/render"
	PathProgress = "/progress"
)

// DownloadBehavior tells the renderer how the output should be served.
type DownloadBehavior struct {
	Type     string `json:"type"`
	FileName string `json:"fileName,omitempty"`
}

// StartRequest asks the gateway to render a composition.
type StartRequest struct {
	FunctionName          string           `json:"functionName"`
	Region                string           `json:"region"`
	ServeURL              string           `json:"serveUrl"`
	Composition           string           `json:"composition"`
	InputProps            json.RawMessage  `json:"inputProps"`
	Codec                 string           `json:"codec"`
	Concurrency           int              `json:"concurrency"`
	TimeoutInMilliseconds int              `json:"timeoutInMilliseconds"`
	DownloadBehavior      DownloadBehavior `json:"downloadBehavior"`
}

// StartResponse identifies a started render.
type StartResponse struct {
	RenderID   string `json:"renderId"`
	BucketName string `json:"bucketName"`
}

type ProgressRequest struct {
	RenderID     string `json:"renderId"`
	BucketName   string `json:"bucketName"`
	FunctionName string `json:"functionName"`
	Region       string `json:"region"`
}

type RenderError struct {
	Message string `json:"message"`
	Name    string `json:"name,omitempty"`
}

// ProgressResponse is the renderer's raw progress report. OutputFile and
// OutputSizeInBytes are only set once Done is true.
type ProgressResponse struct {
	Done                  bool          `json:"done"`
	OverallProgress       float64       `json:"overallProgress"`
	OutputFile            string        `json:"outputFile,omitempty"`
	OutputSizeInBytes     int64         `json:"outputSizeInBytes,omitempty"`
	FatalErrorEncountered bool          `json:"fatalErrorEncountered"`
	Errors                []RenderError `json:"errors,omitempty"`
}

// ErrorResponse is returned by the gateway with a non-2xx status.
type ErrorResponse struct {
	Message string `json:"message"`
}
