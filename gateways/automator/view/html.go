package view

import (
	"embed"
	"html/template"
	"io"
	"strings"

	"github.com/xilidan/automator/services/automator/entity"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var stageTitles = map[entity.Stage]string{
	entity.StageTranscribe:  "Transcription",
	entity.StageSummarize:   "Summary",
	entity.StageActionItems: "Action items",
}

type StageView struct {
	Stage entity.Stage
	Title string
	State entity.StageState
}

type UploadPage struct {
	Accept string
	Busy   bool
	Stages []StageView
}

// NewUploadPage builds the upload form for the given formats. run is the
// in-flight run or nil when idle.
func NewUploadPage(formats []string, run *entity.Run) UploadPage {
	accept := make([]string, 0, len(formats))
	for _, f := range formats {
		accept = append(accept, "."+strings.TrimPrefix(strings.ToLower(f), "."))
	}

	page := UploadPage{
		Accept: strings.Join(accept, ","),
		Busy:   run != nil,
	}
	for _, stage := range entity.Stages {
		state := entity.StateIdle
		if run != nil {
			state = run.Stages[stage]
		}
		page.Stages = append(page.Stages, StageView{Stage: stage, Title: stageTitles[stage], State: state})
	}
	return page
}

func RenderUpload(w io.Writer, page UploadPage) error {
	return pages.ExecuteTemplate(w, "upload.html", page)
}

func RenderResult(w io.Writer, d Display) error {
	return pages.ExecuteTemplate(w, "result.html", struct{ Display Display }{d})
}
