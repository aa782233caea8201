package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/medintel/medrag/internal/models"
	"github.com/medintel/medrag/internal/storage"
	"github.com/medintel/medrag/internal/vector"
)

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	s.logger.Debug("query request", zap.String("question", req.Question), zap.Int("top_k", req.TopK))

	resp, err := s.pipeline.Query(r.Context(), &req)
	if err != nil {
		if errors.Is(err, vector.ErrModelMismatch) {
			s.logger.Error("index incompatible with configured embedding model", zap.Error(err))
			s.respondError(w, http.StatusConflict, err.Error())
			return
		}
		s.logger.Error("query failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if s.evaluator == nil {
		s.respondError(w, http.StatusNotImplemented, "evaluation not configured")
		return
	}
	var req models.EvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Questions) == 0 {
		s.respondError(w, http.StatusBadRequest, "questions are required")
		return
	}
	s.logger.Debug("evaluate request", zap.Int("questions", len(req.Questions)))

	report, err := s.evaluator.Run(r.Context(), &req)
	if err != nil {
		s.logger.Error("evaluation failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chunkCount, err := s.storage.CountChunks(ctx)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"documents":         docCount,
		"chunks":            chunkCount,
		"vector_index_size": s.index.Size(),
	}
	if diskBytes, err := storage.DiskUsageBytes(
		s.config.Storage.DatabasePath,
		s.config.Storage.VectorIndexPath,
	); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = map[string]interface{}{
		"embedding_provider":   s.config.Embedding.Provider,
		"embedding_model":      s.config.Embedding.Model,
		"embedding_dimensions": s.config.Embedding.Dimensions,
		"generation_model":     s.config.Generation.Model,
		"chunk_size":           s.config.Ingestion.ChunkSize,
		"chunk_overlap":        s.config.Ingestion.ChunkOverlap,
		"top_k":                s.config.Retrieval.TopK,
		"similarity_floor":     s.config.Retrieval.SimilarityFloor,
		"confidence_floor":     s.config.Retrieval.ConfidenceFloor,
		"database_path":        s.config.Storage.DatabasePath,
		"vector_index_path":    s.config.Storage.VectorIndexPath,
		"vector_index_type":    s.config.Vector.IndexType,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
