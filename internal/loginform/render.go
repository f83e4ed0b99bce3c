package loginform

import (
	"html/template"
	"io"
)

// Element identifiers of the rendered markup
const (
	UsernameFieldID = "username"
	PasswordFieldID = "password"
	ErrorRegionID   = "error-message"
)

// FormTemplate is the markup of the form fragment. It is executed with a
// View and defines the "login-form" template so layouts can embed it.
const FormTemplate = `{{define "login-form"}}<div class="row">
  <div class="col-md-6 col-md-offset-3 login-form">
    <div class="login">
      <form method="post"{{if .Action}} action="{{.Action}}"{{end}}>
        {{.CSRFField}}
        {{if .Next}}<input type="hidden" name="next" value="{{.Next}}">{{end}}
        <div class="form-group">
          <label for="{{.UsernameID}}">Username or Email</label>
          <input type="text" class="form-control" id="{{.UsernameID}}" name="{{.UsernameID}}" placeholder="Username" value="{{.Username}}">
        </div>
        <div class="form-group">
          <label for="{{.PasswordID}}">Password</label>
          <input type="password" class="form-control" id="{{.PasswordID}}" name="{{.PasswordID}}">
        </div>
        <div class="submit">
          <input type="submit" value="Login" class="button btn btn-primary"{{if .Submitting}} disabled{{end}}>
        </div>
        <div class="bg-danger error-message" id="{{.ErrorID}}" role="alert">{{.Error}}</div>
      </form>
    </div>
  </div>
</div>{{end}}`

var fragment = template.Must(template.New("").Parse(FormTemplate))

// View is the data the form fragment is rendered from
type View struct {
	UsernameID string
	PasswordID string
	ErrorID    string

	Action     string
	Next       string
	Username   string
	Error      string
	Submitting bool

	// CSRFField is a hidden input supplied by the embedding page
	CSRFField template.HTML
}

// View returns the current render state. The password is never echoed.
func (f *Form) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()

	return View{
		UsernameID: UsernameFieldID,
		PasswordID: PasswordFieldID,
		ErrorID:    ErrorRegionID,
		Next:       f.next,
		Username:   f.username,
		Error:      f.errText,
		Submitting: f.inFlight != nil,
	}
}

// Render writes the form fragment for the current state
func (f *Form) Render(w io.Writer) error {
	return RenderView(w, f.View())
}

// RenderView writes the form fragment for v
func RenderView(w io.Writer, v View) error {
	return fragment.ExecuteTemplate(w, "login-form", v)
}
