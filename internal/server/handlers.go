package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/matzehuels/wnft/pkg/card"
	apperr "github.com/matzehuels/wnft/pkg/errors"
	"github.com/matzehuels/wnft/pkg/theme"
)

const maxBodyBytes = 64 << 10

// cardBody is the POST /v1/cards payload.
type cardBody struct {
	Title            string `json:"title"`
	Accent           string `json:"accent"`
	Theme            string `json:"theme"`
	Address          string `json:"address"`
	DisplayName      string `json:"display_name"`
	FeaturedImageURL string `json:"featured_image_url"`
	AvatarURL        string `json:"avatar_url"`
	Size             int    `json:"size"`
}

// errorBody is every non-2xx response.
type errorBody struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

func (s *Server) statsSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

func (s *Server) cardFromQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	body := cardBody{
		Title:            q.Get("title"),
		Accent:           q.Get("accent"),
		Theme:            q.Get("theme"),
		Address:          q.Get("address"),
		DisplayName:      q.Get("name"),
		FeaturedImageURL: q.Get("featured"),
		AvatarURL:        q.Get("avatar"),
	}
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.fail(w, r, apperr.New(apperr.ErrCodeInvalidInput, "invalid size: %q", v))
			return
		}
		body.Size = n
	}
	s.render(w, r, body)
}

func (s *Server) cardFromJSON(w http.ResponseWriter, r *http.Request) {
	var body cardBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		s.fail(w, r, apperr.Wrap(apperr.ErrCodeInvalidInput, err, "invalid JSON body"))
		return
	}
	s.render(w, r, body)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, body cardBody) {
	req, opts, err := body.request()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	png, err := s.gen.Generate(ctx, req, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// request converts the payload. Theme and accent names are matched
// case-insensitively.
func (b cardBody) request() (card.Request, card.RenderOptions, error) {
	t, err := theme.ParseTheme(b.Theme)
	if err != nil {
		return card.Request{}, card.RenderOptions{}, err
	}
	a, err := theme.ParseAccent(b.Accent)
	if err != nil {
		return card.Request{}, card.RenderOptions{}, err
	}
	req := card.Request{
		Title:            b.Title,
		Accent:           a,
		Theme:            t,
		Address:          b.Address,
		DisplayName:      b.DisplayName,
		FeaturedImageURL: b.FeaturedImageURL,
		AvatarURL:        b.AvatarURL,
	}
	return req, card.RenderOptions{Size: b.Size}, nil
}

// statusClientClosed is nginx's code for a client that hung up before the
// response was ready.
const statusClientClosed = 499

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, apperr.GetCode(err)
	switch {
	case code == apperr.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		s.logger.Debug("client went away", "id", RequestIDFromContext(r.Context()), "path", r.URL.Path)
		writeJSON(w, statusClientClosed, errorBody{Code: apperr.ErrCodeCanceled, Message: "request cancelled"})
		return
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, apperr.ErrCodeTimeout
	case code == "":
		code = apperr.ErrCodeInternal
	}
	if status >= 500 {
		s.logger.Error("card failed", "id", RequestIDFromContext(r.Context()), "error", err)
	}
	writeJSON(w, status, errorBody{Code: code, Message: apperr.UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
