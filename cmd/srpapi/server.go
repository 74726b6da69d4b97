package main

import (
	"context"
	"fmt"
	"killsrp"
	"killsrp/feed"
	"killsrp/httperror"
	"killsrp/killmail"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/olahol/melody"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type normalizer interface {
	Normalize(ctx context.Context, source killmail.Source, rawURL string) (killmail.Record, error)
}

type server struct {
	pipeline normalizer
	rdb      redis.Cmdable
	melody   *melody.Melody
	validate *validator.Validate
}

type killmailRequest struct {
	URL    string `json:"url" validate:"required,max=2048"`
	Source string `json:"source" validate:"required,oneof=zkillboard crest"`
}

type submissionResponse struct {
	ID string `json:"id"`
}

func newServer(pipeline normalizer, rdb redis.Cmdable, m *melody.Melody) *server {
	return &server{
		pipeline: pipeline,
		rdb:      rdb,
		melody:   m,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *server) routes() *Router {
	r := NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)

	r.Get("/_healthz", func(w http.ResponseWriter, r *http.Request) *httperror.HTTPError {
		w.WriteHeader(http.StatusOK)
		return nil
	})

	r.Get("/version", func(w http.ResponseWriter, r *http.Request) *httperror.HTTPError {
		render.PlainText(w, r, killsrp.Version)
		return nil
	})

	r.Post("/killmails", s.createKillmail)
	r.Post("/submissions", s.createSubmission)
	r.Get("/poll/{queueID}", s.poll)

	if s.melody != nil {
		r.Get("/websocket/{queueID}", func(w http.ResponseWriter, r *http.Request) *httperror.HTTPError {
			queueID, herr := queueIDParam(r)
			if herr != nil {
				return herr
			}

			if err := s.melody.HandleRequestWithKeys(w, r, map[string]any{"queueID": queueID}); err != nil {
				return httperror.InternalServerError("failed to upgrade websocket", err)
			}
			return nil
		})
	}

	return r
}

func (s *server) decodeKillmailRequest(r *http.Request) (killmail.Source, string, *httperror.HTTPError) {
	var req killmailRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		return "", "", httperror.BadRequestWithError("invalid request body", err)
	}

	if err := s.validate.Struct(req); err != nil {
		return "", "", httperror.BadRequestWithError("invalid request", err)
	}

	source, err := killmail.ParseSource(req.Source)
	if err != nil {
		return "", "", httperror.FromKillmail(err)
	}

	return source, req.URL, nil
}

// createKillmail normalizes the submitted URL synchronously and publishes the
// record to the killmail stream.
func (s *server) createKillmail(w http.ResponseWriter, r *http.Request) *httperror.HTTPError {
	ctx := r.Context()

	source, rawURL, herr := s.decodeKillmailRequest(r)
	if herr != nil {
		return herr
	}

	record, err := s.pipeline.Normalize(ctx, source, rawURL)
	if err != nil {
		return httperror.FromKillmail(err)
	}

	if s.rdb != nil {
		submissionID := middleware.GetReqID(ctx)
		if err := feed.PublishRecord(ctx, s.rdb, submissionID, record); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Int64("killmail-id", record.KillID()).Msg("failed to publish killmail")
		}
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, record)
	return nil
}

// createSubmission queues the URL for the ingester.
func (s *server) createSubmission(w http.ResponseWriter, r *http.Request) *httperror.HTTPError {
	ctx := r.Context()

	source, rawURL, herr := s.decodeKillmailRequest(r)
	if herr != nil {
		return herr
	}

	if s.rdb == nil {
		return httperror.ServiceUnavailable("submissions are disabled")
	}

	submission := feed.NewSubmission(source, rawURL)
	if err := feed.EnqueueSubmission(ctx, s.rdb, submission); err != nil {
		return httperror.InternalServerError("failed to queue submission", err)
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, submissionResponse{ID: submission.ID})
	return nil
}

func (s *server) poll(w http.ResponseWriter, r *http.Request) *httperror.HTTPError {
	queueID, herr := queueIDParam(r)
	if herr != nil {
		return herr
	}

	if s.rdb == nil {
		return httperror.ServiceUnavailable("polling is disabled")
	}

	cursorKey, err := feed.CursorKey("poll", queueID)
	if err != nil {
		return httperror.BadRequestWithError("invalid queue ID", err)
	}

	entries, err := feed.ReadEntries(r.Context(), s.rdb, cursorKey, 100, 60*time.Second)
	if err != nil {
		return httperror.InternalServerError("failed to read killmails", err)
	}

	records := make([]killmail.Record, 0, len(entries))
	for _, entry := range entries {
		records = append(records, entry.Record)
	}

	render.JSON(w, r, records)
	return nil
}

func queueIDParam(r *http.Request) (string, *httperror.HTTPError) {
	queueID := chi.URLParam(r, "queueID")
	if len(queueID) > 128 {
		return "", httperror.BadRequest(fmt.Sprintf("queue ID must be 128 characters or less, got %d", len(queueID)))
	}
	return queueID, nil
}
