package page

import (
	_ "embed"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
	"github.com/veedubyou/vocal-isolator/src/isolator/pipeline"
)

//go:embed index.html.tmpl
var indexTemplate string

const IndexName = "index"

type IndexData struct {
	Title          string
	IsolatePath    string
	OutputKinds    []string
	DefaultOutput  string
	Qualities      []string
	DefaultQuality string
}

func NewIndexData(isolatePath string) IndexData {
	return IndexData{
		Title:          "Vocal Isolator",
		IsolatePath:    isolatePath,
		OutputKinds:    pipeline.OutputKinds,
		DefaultOutput:  pipeline.OutputKinds[0],
		Qualities:      pipeline.Qualities,
		DefaultQuality: pipeline.Qualities[0],
	}
}

var _ echo.Renderer = Renderer{}

// Renderer plugs the embedded templates into echo's c.Render.
type Renderer struct {
	templates *template.Template
}

func NewRenderer() Renderer {
	return Renderer{
		templates: template.Must(template.New(IndexName).Parse(indexTemplate)),
	}
}

func (r Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}
