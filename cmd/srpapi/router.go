package main

import (
	"killsrp/httperror"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type HTTPHandlerWithErr func(http.ResponseWriter, *http.Request) *httperror.HTTPError

type Router struct {
	*chi.Mux
}

func NewRouter() *Router {
	return &Router{
		Mux: chi.NewMux(),
	}
}

// handler attaches a request scoped logger to the context and renders any
// returned error.
func (rt *Router) handler(handlerFn HTTPHandlerWithErr) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With().Str("request-id", middleware.GetReqID(r.Context())).Logger()
		r = r.WithContext(logger.WithContext(r.Context()))

		if err := handlerFn(w, r); err != nil {
			render.Render(w, r, err)

			var event *zerolog.Event
			if err.Code >= http.StatusInternalServerError {
				event = logger.Error()
			} else {
				event = logger.Warn()
			}
			event.Err(err).Int("status", err.Code).Str("kind", err.Kind).Msg("request failed")
		}
	}
}

func (rt *Router) Get(pattern string, handlerFn HTTPHandlerWithErr) {
	rt.Mux.Get(pattern, rt.handler(handlerFn))
}

func (rt *Router) Post(pattern string, handlerFn HTTPHandlerWithErr) {
	rt.Mux.Post(pattern, rt.handler(handlerFn))
}
