package scoring

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"

	"github.com/go-logr/logr"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"mlregistry.io/assetx/pkg/detect"
	"mlregistry.io/assetx/pkg/errors"
)

// Server exposes a detection Wrapper over HTTP.
type Server struct {
	wrapper *detect.Wrapper
}

func NewServer(wrapper *detect.Wrapper) *Server {
	return &Server{wrapper: wrapper}
}

func Run(ctx context.Context, opts *Options) error {
	log := logr.FromContextOrDiscard(ctx)

	task, err := detect.ParseTaskType(opts.Task)
	if err != nil {
		return errors.NewUserInputError(err.Error())
	}
	detector, err := detect.NewContourDetector()
	if err != nil {
		return errors.NewLoadError(err)
	}
	wrapper, err := detect.NewWrapper(task, detector)
	if err != nil {
		return err
	}

	loggedRouter := handlers.CombinedLoggingHandler(os.Stdout, NewServer(wrapper).route(opts.MaxBodyBytes))

	server := http.Server{
		Addr:    opts.Listen,
		Handler: loggedRouter,
		BaseContext: func(l net.Listener) context.Context {
			return ctx
		},
	}
	go func() {
		<-ctx.Done()
		server.Shutdown(ctx)
	}()
	if opts.TLS.CertFile != "" && opts.TLS.KeyFile != "" {
		log.Info("scoring listening", "https", opts.Listen, "task", task)
		return server.ListenAndServeTLS(opts.TLS.CertFile, opts.TLS.KeyFile)
	} else {
		log.Info("scoring listening", "http", opts.Listen, "task", task)
		return server.ListenAndServe()
	}
}

func (s *Server) route(maxBody int64) http.Handler {
	mux := mux.NewRouter()
	mux = mux.StrictSlash(true)
	// healthy
	mux.Methods("GET").Path("/healthz").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
		w.WriteHeader(http.StatusOK)
	})
	mux.Methods("POST").Path("/score").HandlerFunc(MaxBytesReadHandler(s.Score, maxBody))
	return mux
}

// ScoreRequest is a batch of images to run inference on.
type ScoreRequest struct {
	Inputs []detect.Input `json:"inputs"`
}

type ScoreResponse struct {
	Predictions []detect.ImagePrediction `json:"predictions"`
}

func (s *Server) Score(w http.ResponseWriter, r *http.Request) {
	req := ScoreRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ResponseError(w, errors.NewUserInputError("decode request body: "+err.Error()))
		return
	}
	predictions, err := s.wrapper.Predict(r.Context(), req.Inputs)
	if err != nil {
		ResponseError(w, err)
		return
	}
	ResponseOK(w, ScoreResponse{Predictions: predictions})
}
