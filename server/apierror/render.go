package apierror

import (
	"html/template"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/nnnkkk7/oraquery/pkg/dberror"
)

// Diagnosable is a statement that can be shown in an error or debug view.
type Diagnosable interface {
	SQL() string
	Schema() string
	BindDiagnostics() string
	LastError() *dberror.NativeError
}

var (
	errorTemplate = template.Must(template.New("error").Parse(
		`<div class="oraquery-error" id="{{.ID}}">` +
			`<p class="message">{{range $i, $line := .Lines}}{{if $i}}<br/>{{end}}{{$line}}{{end}}</p>` +
			`</div>` + "\n"))

	adminErrorTemplate = template.Must(template.New("admin_error").Parse(
		`<div class="oraquery-error" id="{{.ID}}">` +
			`<p class="message">{{range $i, $line := .Lines}}{{if $i}}<br/>{{end}}{{$line}}{{end}}</p>` +
			`<pre class="sql">{{.SQL}}</pre>` +
			`{{if .Binds}}<pre class="binds">{{.Binds}}</pre>{{end}}` +
			`</div>` + "\n"))

	debugTemplate = template.Must(template.New("debug").Parse(
		`<div class="oraquery-debug" id="{{.ID}}">` +
			`<p class="schema">{{.Schema}}</p>` +
			`<pre class="sql">{{.SQL}}</pre>` +
			`{{if .Binds}}<pre class="binds">{{.Binds}}</pre>{{end}}` +
			`</div>` + "\n"))
)

type view struct {
	ID     string
	Lines  []string
	SQL    string
	Binds  string
	Schema string
}

// Renderer renders statement errors and debug views as HTML. Only an admin
// renderer shows native error messages, SQL text and bind values.
type Renderer struct {
	Admin bool

	newID func() string
}

// NewRenderer creates a renderer.
func NewRenderer(admin bool) *Renderer {
	return &Renderer{Admin: admin, newID: newElementID}
}

func newElementID() string {
	return "sql" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// ErrorMessage returns the message shown for a failed statement.
func (r *Renderer) ErrorMessage(custom string, native *dberror.NativeError) string {
	return dberror.Message(custom, native, r.Admin)
}

// RenderError writes the error view for stmt.
func (r *Renderer) RenderError(w io.Writer, stmt Diagnosable, custom string) error {
	v := view{
		ID:    r.id(),
		Lines: strings.Split(r.ErrorMessage(custom, stmt.LastError()), "\n"),
	}
	if !r.Admin {
		return errorTemplate.Execute(w, v)
	}
	v.SQL = stmt.SQL()
	v.Binds = stmt.BindDiagnostics()
	return adminErrorTemplate.Execute(w, v)
}

// RenderDebug writes the SQL, bind values and schema of stmt.
func (r *Renderer) RenderDebug(w io.Writer, stmt Diagnosable) error {
	return debugTemplate.Execute(w, view{
		ID:     r.id(),
		SQL:    stmt.SQL(),
		Binds:  stmt.BindDiagnostics(),
		Schema: stmt.Schema(),
	})
}

func (r *Renderer) id() string {
	if r.newID == nil {
		return newElementID()
	}
	return r.newID()
}
