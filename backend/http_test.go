package backend_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jackc/signup/backend"
	"github.com/jackc/signup/backend/signup"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	log "gopkg.in/inconshreveable/log15.v2"
)

func newTestServer(t *testing.T) *httptest.Server {
	logger := log.New()
	logger.SetHandler(log.DiscardHandler())

	handler, err := backend.NewAppServer(backend.HTTPConfig{}, logger)
	require.NoError(t, err)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

type renderedPage struct {
	submitted string
	inputs    map[string]string
	errors    map[string]string
	labels    []string
}

func parsePage(t *testing.T, resp *http.Response) renderedPage {
	t.Helper()

	doc, err := html.Parse(resp.Body)
	require.NoError(t, err)

	page := renderedPage{inputs: map[string]string{}, errors: map[string]string{}}

	attr := func(n *html.Node, key string) (string, bool) {
		for _, a := range n.Attr {
			if a.Key == key {
				return a.Val, true
			}
		}
		return "", false
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "form":
				page.submitted, _ = attr(n, "data-submitted")
			case "input":
				name, _ := attr(n, "name")
				value, _ := attr(n, "value")
				page.inputs[name] = value
			case "label":
				if n.FirstChild != nil {
					page.labels = append(page.labels, n.FirstChild.Data)
				}
			case "p":
				if kind, ok := attr(n, "data-error"); ok && n.FirstChild != nil {
					page.errors[kind] = n.FirstChild.Data
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return page
}

func postSignup(t *testing.T, server *httptest.Server, email, password, confirmPassword string) renderedPage {
	t.Helper()

	resp, err := http.PostForm(server.URL+"/", url.Values{
		"email":           {email},
		"password":        {password},
		"confirmPassword": {confirmPassword},
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	return parsePage(t, resp)
}

func TestGetSignupFormIsEmpty(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	page := parsePage(t, resp)
	require.Equal(t, "false", page.submitted)
	require.Equal(t, map[string]string{"email": "", "password": "", "confirmPassword": ""}, page.inputs)
	require.Equal(t, []string{"Email", "Password", "Confirm Password"}, page.labels)
	require.Empty(t, page.errors)
}

func TestPostSignupAllValid(t *testing.T) {
	server := newTestServer(t)

	page := postSignup(t, server, "selena@gmail.com", "passing", "passing")
	require.Equal(t, "true", page.submitted)
	require.Empty(t, page.errors)
	require.Equal(t, "selena@gmail.com", page.inputs["email"])
	require.Equal(t, "passing", page.inputs["password"])
	require.Equal(t, "passing", page.inputs["confirmPassword"])
}

func TestPostSignupInvalidEmail(t *testing.T) {
	server := newTestServer(t)

	page := postSignup(t, server, "selenagmail.com", "passing", "passing")
	require.Equal(t, map[string]string{
		"InvalidEmail": "The email you input is invalid.",
	}, page.errors)
}

func TestPostSignupShortPassword(t *testing.T) {
	server := newTestServer(t)

	page := postSignup(t, server, "selena@gmail.com", "fail", "fail")
	require.Equal(t, map[string]string{
		"PasswordTooShort": "The password you entered should contain 5 or more characters.",
	}, page.errors)
}

func TestPostSignupMismatch(t *testing.T) {
	server := newTestServer(t)

	page := postSignup(t, server, "selena@gmail.com", "passing", "failing")
	require.Equal(t, map[string]string{
		"PasswordMismatch": "Confirm password does not match password.",
	}, page.errors)
	require.Equal(t, "failing", page.inputs["confirmPassword"])
}

func TestPostSignupOnlyEmail(t *testing.T) {
	server := newTestServer(t)

	page := postSignup(t, server, "selenagmail.com", "", "")
	require.Equal(t, map[string]string{
		"InvalidEmail":     "The email you input is invalid.",
		"PasswordTooShort": "The password you entered should contain 5 or more characters.",
	}, page.errors)
}

func TestPostSignupEscapesValues(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.PostForm(server.URL+"/", url.Values{"email": {`"><script>alert(1)</script>`}})
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	require.NotContains(t, buf.String(), "<script>alert(1)</script>")
}

func TestValidateAPI(t *testing.T) {
	server := newTestServer(t)

	body := `{"email":"selena@gmail.com","password":"passing","confirmPassword":"failing"}`
	resp, err := http.Post(server.URL+"/api/validate", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var response struct {
		Valid  bool            `json:"valid"`
		Errors signup.ErrorSet `json:"errors"`
	}
	err = json.NewDecoder(resp.Body).Decode(&response)
	require.NoError(t, err)
	require.False(t, response.Valid)
	require.Equal(t, signup.ErrorSet{signup.PasswordMismatch: "Confirm password does not match password."}, response.Errors)
}

func TestValidateAPIValid(t *testing.T) {
	server := newTestServer(t)

	body := `{"email":"selena@gmail.com","password":"passing","confirmPassword":"passing"}`
	resp, err := http.Post(server.URL+"/api/validate", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var response map[string]any
	err = json.NewDecoder(resp.Body).Decode(&response)
	require.NoError(t, err)
	require.Equal(t, true, response["valid"])
	require.Equal(t, map[string]any{}, response["errors"])
}

func TestValidateAPIBadJSON(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/validate", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 422, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewAppServerRequiresLogger(t *testing.T) {
	_, err := backend.NewAppServer(backend.HTTPConfig{}, nil)
	require.Error(t, err)
}
