package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/signup/backend/signup"
	log "gopkg.in/inconshreveable/log15.v2"
)

type HTTPConfig struct {
	ListenAddress string
	ListenPort    string
}

type EnvHandlerFunc func(w http.ResponseWriter, req *http.Request, env *environment)

func EnvHandler(logger log.Logger, f EnvHandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		env := &environment{
			logger: logger.New("request_id", middleware.GetReqID(req.Context())),
		}
		f(w, req, env)
	})
}

type environment struct {
	logger log.Logger
}

// NewAppServer returns the handler serving the signup page and the validation API.
func NewAppServer(config HTTPConfig, logger log.Logger) (http.Handler, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	views, err := newViews()
	if err != nil {
		return nil, fmt.Errorf("failed to load views: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Method(http.MethodGet, "/", EnvHandler(logger, views.SignupFormHandler))
	r.Method(http.MethodPost, "/", EnvHandler(logger, views.SignupHandler))
	r.Method(http.MethodPost, "/api/validate", EnvHandler(logger, ValidateHandler))
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, "ok")
	})

	return r, nil
}

func requestLogger(logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, req)

			logger.Info("request",
				"request_id", middleware.GetReqID(req.Context()),
				"method", req.Method,
				"path", req.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
			)
		})
	}
}

// stateFromValues plays a submission through a fresh form: each value is set
// and then the form is submitted.
func stateFromValues(values signup.Values) *signup.FormState {
	state := signup.NewFormState()
	for _, f := range signup.Fields {
		// Fields only holds known fields so SetField cannot fail.
		state.SetField(f, values.Get(f))
	}
	state.Submit()
	return state
}

func ValidateHandler(w http.ResponseWriter, req *http.Request, env *environment) {
	var values signup.Values

	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(&values); err != nil {
		w.WriteHeader(422)
		fmt.Fprintf(w, "Error decoding request: %v", err)
		return
	}

	errs := stateFromValues(values).Errors()
	env.logger.Debug("validated signup", "errors", errs.Kinds())

	var response struct {
		Valid  bool            `json:"valid"`
		Errors signup.ErrorSet `json:"errors"`
	}
	response.Valid = errs.Empty()
	response.Errors = errs

	w.Header().Set("Content-Type", "application/json")
	encoder := json.NewEncoder(w)
	if err := encoder.Encode(response); err != nil {
		env.logger.Error("failed to encode response", "error", err)
	}
}
