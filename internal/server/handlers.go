package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dusk-indust/enigma/internal/agent"
)

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, WelcomeResponse{Message: WelcomeMessage})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Agents:  s.registry.Len(),
		Version: s.version,
	})
}

func (s *Server) handleListAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Infos())
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	a, err := s.registry.Lookup(r.PathValue("name"))
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.Info())
}

// processBody mirrors MessageRequest with a pointer so a missing field can be
// told apart from an empty message.
type processBody struct {
	Message *string `json:"message"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var body processBody
	if err := decodeBody(r.Body, &body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return
	}
	if body.Message == nil {
		writeError(w, http.StatusUnprocessableEntity, "field 'message' is required")
		return
	}
	message := *body.Message

	a, err := s.registry.Lookup(name)
	if err != nil {
		s.writeLookupError(w, err)
		return
	}

	ctx, span := s.tracer.Start(r.Context(), "agent.process", trace.WithAttributes(
		attribute.String("agent.name", name),
		attribute.Int("message.length", len(message)),
	))
	defer span.End()

	response, err := a.Process(ctx, message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("agent process failed", "agent", name, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{
		AgentName: a.Info().Name,
		Response:  response,
	})
}

// decodeBody decodes exactly one JSON value from r into v.
func decodeBody(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

func (s *Server) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, agent.ErrAgentNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// writeJSON writes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}
