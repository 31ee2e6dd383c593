package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ProductCatalog/internal/catalog/openapi"
	"ProductCatalog/pkg/kit"
)

const (
	maxBodyBytes = 1 << 20
	readyTimeout = 1 * time.Second

	msgNotFound     = "Produto não encontrado"
	msgRequired     = "Descrição e preço são obrigatórios"
	msgInvalidPrice = "Preço inválido"
	msgBadJSON      = "JSON inválido"
	msgServerError  = "server error"
)

var errBadJSON = errors.New("bad json")

type Server struct {
	Store Store
	Log   *zap.Logger

	// RateLimit guards the mutating routes when set.
	RateLimit *kit.RateLimiter
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) { kit.WriteText(w, http.StatusOK, "ok") })
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.ready)
	r.Get("/hello", func(w http.ResponseWriter, _ *http.Request) {
		kit.WriteJSON(w, http.StatusOK, map[string]string{"msg": "hello world"})
	})

	r.Get("/api-docs.json", openapi.DocumentHandler)
	r.Get("/api-docs", openapi.UIHandler("/api-docs.json"))

	r.Route("/produtos", func(r chi.Router) {
		r.Get("/", s.list)
		r.Get("/{id}", s.get)

		r.Group(func(mr chi.Router) {
			if s.RateLimit != nil {
				mr.Use(s.RateLimit.Middleware)
			}
			mr.Post("/", s.create)
			mr.Put("/{id}", s.update)
			mr.Delete("/{id}", s.delete)
		})
	})

	return r
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.Store.Ping(ctx); err != nil {
		s.logError("readyz failed", err)
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	products, err := s.Store.List(r.Context())
	if err != nil {
		s.logError("list products failed", err)
		kit.WriteError(w, r, http.StatusInternalServerError, msgServerError, nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, products)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, msgNotFound, nil)
		return
	}

	p, found, err := s.Store.Get(r.Context(), id)
	if err != nil {
		s.logError("get product failed", err, zap.Int64("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, msgServerError, nil)
		return
	}
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, msgNotFound, nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	in, err := decodeProductInput(w, r)
	if err != nil {
		writeInputError(w, r, err)
		return
	}

	p, err := s.Store.Create(r.Context(), in)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	if s.Log != nil {
		s.Log.Info("product created", zap.Int64("id", p.ID))
	}
	kit.WriteJSON(w, http.StatusCreated, p)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, msgNotFound, nil)
		return
	}

	// an unknown id wins over a bad body
	if _, found, err := s.Store.Get(r.Context(), id); err != nil {
		s.logError("get product failed", err, zap.Int64("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, msgServerError, nil)
		return
	} else if !found {
		kit.WriteError(w, r, http.StatusNotFound, msgNotFound, nil)
		return
	}

	in, err := decodeProductInput(w, r)
	if err != nil {
		writeInputError(w, r, err)
		return
	}

	p, found, err := s.Store.Update(r.Context(), id, in)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, msgNotFound, nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, msgNotFound, nil)
		return
	}

	removed, err := s.Store.Delete(r.Context(), id)
	if err != nil {
		s.logError("delete product failed", err, zap.Int64("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, msgServerError, nil)
		return
	}
	if !removed {
		kit.WriteError(w, r, http.StatusNotFound, msgNotFound, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// productID reports false for ids that are not integers. Callers answer those
// with 404 since no product can carry such an id.
func productID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

type productRequest struct {
	Description *string         `json:"descricao"`
	Price       json.RawMessage `json:"preco"`
}

func decodeProductInput(w http.ResponseWriter, r *http.Request) (ProductInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() { _ = r.Body.Close() }()

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return ProductInput{}, fmt.Errorf("%w: %v", errBadJSON, err)
	}

	var in ProductInput
	if req.Description != nil {
		in.Description = *req.Description
	}

	price, err := parsePrice(req.Price)
	if err != nil {
		return ProductInput{}, err
	}
	in.Price = price
	return in, nil
}

// parsePrice accepts a JSON number or a numeric string. Absent and null
// yield a nil price so that validation reports the field as missing.
func parsePrice(raw json.RawMessage) (*float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, ErrInvalidPrice
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, ErrInvalidPrice
	}
	return &f, nil
}

func writeInputError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errBadJSON):
		kit.WriteError(w, r, http.StatusBadRequest, msgBadJSON, nil)
	case errors.Is(err, ErrInvalidPrice):
		kit.WriteError(w, r, http.StatusBadRequest, msgInvalidPrice, nil)
	case errors.Is(err, ErrMissingFields):
		kit.WriteError(w, r, http.StatusBadRequest, msgRequired, nil)
	default:
		kit.WriteError(w, r, http.StatusBadRequest, msgBadJSON, nil)
	}
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrMissingFields) || errors.Is(err, ErrInvalidPrice) {
		writeInputError(w, r, err)
		return
	}
	s.logError("store write failed", err)
	kit.WriteError(w, r, http.StatusInternalServerError, msgServerError, nil)
}

func (s *Server) logError(msg string, err error, fields ...zap.Field) {
	if s.Log == nil {
		return
	}
	s.Log.Error(msg, append(fields, zap.Error(err))...)
}
