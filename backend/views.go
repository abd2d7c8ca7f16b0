package backend

import (
	"embed"
	"html/template"
	"io"
	"net/http"

	"github.com/jackc/signup/backend/signup"
)

//go:embed templates/*.html
var templateFS embed.FS

type fieldView struct {
	Name   signup.Field
	Label  string
	Type   string
	Value  string
	Errors []errorView
}

type errorView struct {
	Kind    signup.ErrorKind
	Message string
}

type signupPage struct {
	Submitted bool
	Fields    []fieldView
}

var fieldLabels = map[signup.Field]string{
	signup.Email:           "Email",
	signup.Password:        "Password",
	signup.ConfirmPassword: "Confirm Password",
}

var fieldTypes = map[signup.Field]string{
	signup.Email:           "email",
	signup.Password:        "password",
	signup.ConfirmPassword: "password",
}

type views struct {
	signup *template.Template
}

func newViews() (*views, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/signup.html")
	if err != nil {
		return nil, err
	}
	return &views{signup: tmpl}, nil
}

func newSignupPage(state *signup.FormState) signupPage {
	errs := state.Errors()
	page := signupPage{Submitted: state.Submitted()}
	for _, f := range signup.Fields {
		fv := fieldView{
			Name:  f,
			Label: fieldLabels[f],
			Type:  fieldTypes[f],
			Value: state.Value(f),
		}
		for _, k := range errs.Kinds() {
			if k.Field() == f {
				fv.Errors = append(fv.Errors, errorView{Kind: k, Message: errs[k]})
			}
		}
		page.Fields = append(page.Fields, fv)
	}
	return page
}

// RenderSignup writes the signup page for state.
func (v *views) RenderSignup(w io.Writer, state *signup.FormState) error {
	return v.signup.Execute(w, newSignupPage(state))
}

func (v *views) render(w http.ResponseWriter, env *environment, state *signup.FormState) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := v.RenderSignup(w, state); err != nil {
		env.logger.Error("failed to render signup page", "error", err)
	}
}

func (v *views) SignupFormHandler(w http.ResponseWriter, req *http.Request, env *environment) {
	v.render(w, env, signup.NewFormState())
}

func (v *views) SignupHandler(w http.ResponseWriter, req *http.Request, env *environment) {
	if err := req.ParseForm(); err != nil {
		w.WriteHeader(422)
		io.WriteString(w, "Error decoding form")
		return
	}

	state := stateFromValues(signup.Values{
		Email:           req.PostForm.Get(string(signup.Email)),
		Password:        req.PostForm.Get(string(signup.Password)),
		ConfirmPassword: req.PostForm.Get(string(signup.ConfirmPassword)),
	})
	env.logger.Debug("submitted signup", "errors", state.Errors().Kinds())

	v.render(w, env, state)
}
