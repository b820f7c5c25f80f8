package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"sabio/internal/domain/knowledge"
	applog "sabio/internal/platform/log"
)

// KnowledgeHandler 知识库 API：相似度检索、文档上传、手动预热
type KnowledgeHandler struct {
	retriever *knowledge.Retriever
	ranker    *knowledge.Ranker
	uploader  *knowledge.Uploader
	refresher *knowledge.Refresher
	maxFileMB int
}

// NewKnowledgeHandler 创建知识库处理器
func NewKnowledgeHandler(
	retriever *knowledge.Retriever,
	ranker *knowledge.Ranker,
	uploader *knowledge.Uploader,
	refresher *knowledge.Refresher,
	maxFileMB int,
) *KnowledgeHandler {
	if maxFileMB <= 0 {
		maxFileMB = 10
	}
	return &KnowledgeHandler{
		retriever: retriever,
		ranker:    ranker,
		uploader:  uploader,
		refresher: refresher,
		maxFileMB: maxFileMB,
	}
}

// RegisterRoutes 注册知识库路由
func (h *KnowledgeHandler) RegisterRoutes(r chi.Router) {
	r.Route("/knowledge", func(r chi.Router) {
		r.Post("/search", h.Search)
		r.Post("/documents/upload", h.Upload)
		r.Post("/refresh", h.Refresh)
	})
}

// --- 相似度检索 ---

type searchRequest struct {
	Question string `json:"question"`
	Limit    int    `json:"limit,omitempty"`
}

func (h *KnowledgeHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	results, err := h.ranker.Rank(r.Context(), req.Question, req.Limit)
	if err != nil {
		applog.Error("[Knowledge] Search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if results == nil {
		results = []knowledge.SimilarityResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// --- 文档上传 ---

func (h *KnowledgeHandler) Upload(w http.ResponseWriter, r *http.Request) {
	limitBytes := int64(h.maxFileMB) << 20

	if err := r.ParseMultipartForm(limitBytes); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if header.Size > limitBytes {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file size exceeds limit (%dMB)", h.maxFileMB))
		return
	}

	doc, err := h.uploader.Ingest(r.Context(), file, header.Filename)
	if err != nil {
		applog.Error("[Knowledge] Upload failed", "filename", header.Filename, "error", err)
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("failed to ingest %s: unsupported or unreadable file", filepath.Base(header.Filename)))
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

// --- 手动预热 ---

func (h *KnowledgeHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	go h.refresher.RefreshNow()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh started"})
}
