package api

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	"sabio/internal/domain/agents"
	"sabio/internal/domain/chat"
	redisdb "sabio/internal/db/redis"
	applog "sabio/internal/platform/log"
)

var (
	reUserID = regexp.MustCompile(`^client\d+$`)
	reConvID = regexp.MustCompile(`^conv-\d+$`)
)

// ChatHandler 对话 API：消息入口、用户与会话管理
type ChatHandler struct {
	router      *agents.Router
	guard       *chat.PromptGuard
	store       chat.Store
	decisionLog *redisdb.DecisionLog // 可为 nil
}

// NewChatHandler 创建对话处理器
func NewChatHandler(router *agents.Router, guard *chat.PromptGuard, store chat.Store, decisionLog *redisdb.DecisionLog) *ChatHandler {
	return &ChatHandler{
		router:      router,
		guard:       guard,
		store:       store,
		decisionLog: decisionLog,
	}
}

// RegisterRoutes 注册对话路由
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Route("/chat", func(r chi.Router) {
		r.Post("/", h.HandleChat)
		r.Get("/", h.GetConversation)
		r.Post("/user", h.CreateUser)
		r.Post("/chats/new", h.CreateChat)
		r.Get("/chats", h.ListChats)
	})
}

// --- 消息入口 ---

type chatRequest struct {
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

type chatResponse struct {
	Response            string                `json:"response"`
	SourceAgentResponse any                   `json:"source_agent_response,omitempty"`
	AgentWorkflow       []agents.WorkflowStep `json:"agent_workflow"`
}

func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !reUserID.MatchString(req.UserID) {
		writeError(w, http.StatusBadRequest, "Invalid user_id format. Must be: client{number}")
		return
	}
	if !reConvID.MatchString(req.ConversationID) {
		writeError(w, http.StatusBadRequest, "Invalid conversation_id format. Must be: conv-{number}")
		return
	}

	message := strings.TrimSpace(chat.Sanitize(req.Message))
	if message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if h.guard.IsBlocked(message) {
		writeError(w, http.StatusForbidden, h.guard.BlockReason(message))
		return
	}

	// 校验会话归属
	conv, err := h.store.GetConversation(r.Context(), req.ConversationID)
	if err != nil {
		applog.Error("[Chat] Failed to load conversation", "conversation_id", req.ConversationID, "error", err)
		writeError(w, http.StatusInternalServerError, "Unable to process your request. Please try again later.")
		return
	}
	if conv == nil || conv.UserID != req.UserID {
		writeError(w, http.StatusNotFound, "Conversation not found or access denied")
		return
	}

	chosen, result, workflow, err := h.router.RouteAndHandle(r.Context(), message)
	if err != nil {
		applog.Error("[Chat] Request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Unable to process your request. Please try again later.")
		return
	}

	if h.decisionLog != nil {
		h.decisionLog.Log(r.Context(), agents.AgentRouter, map[string]any{
			"decision":        chosen,
			"user_id":         req.UserID,
			"conversation_id": req.ConversationID,
		})
	}

	h.appendHistory(r, req.ConversationID, "user", "", message)
	h.appendHistory(r, req.ConversationID, "assistant", chosen, result.ResponseMsg)

	writeJSON(w, http.StatusOK, chatResponse{
		Response:            result.ResponseMsg,
		SourceAgentResponse: result.Data,
		AgentWorkflow:       workflow,
	})
}

// appendHistory 历史写入失败只告警，不影响响应
func (h *ChatHandler) appendHistory(r *http.Request, conversationID, role, agent, content string) {
	err := h.store.AppendMessage(r.Context(), &chat.HistoryEntry{
		ConversationID: conversationID,
		Role:           role,
		Agent:          agent,
		Content:        content,
	})
	if err != nil {
		applog.Warn("[Chat] Failed to append history", "conversation_id", conversationID, "error", err)
	}
}

// --- 用户与会话管理 ---

type createUserRequest struct {
	UserName string `json:"user_name"`
}

func (h *ChatHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userName := strings.TrimSpace(chat.Sanitize(req.UserName))
	if userName == "" {
		writeError(w, http.StatusBadRequest, "user_name is required")
		return
	}

	user, err := h.store.CreateUser(r.Context(), userName)
	if err != nil {
		applog.Error("[Chat] Failed to create user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"user_id": user.UserID})
}

type createChatRequest struct {
	UserID string `json:"user_id"`
}

func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req createChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !reUserID.MatchString(req.UserID) {
		writeError(w, http.StatusBadRequest, "Invalid user_id format. Must be: client{number}")
		return
	}

	user, err := h.store.GetUser(r.Context(), req.UserID)
	if err != nil {
		applog.Error("[Chat] Failed to load user", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create chat")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	conv, err := h.store.CreateConversation(r.Context(), req.UserID)
	if err != nil {
		applog.Error("[Chat] Failed to create conversation", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create chat")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"conversation_id": conv.ConversationID})
}

func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if !reUserID.MatchString(userID) {
		writeError(w, http.StatusBadRequest, "Invalid user_id format. Must be: client{number}")
		return
	}

	user, err := h.store.GetUser(r.Context(), userID)
	if err != nil {
		applog.Error("[Chat] Failed to load user", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list chats")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	convs, err := h.store.ListConversations(r.Context(), userID)
	if err != nil {
		applog.Error("[Chat] Failed to list conversations", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list chats")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": convs})
}

func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	conversationID := r.URL.Query().Get("conversation_id")
	if !reUserID.MatchString(userID) {
		writeError(w, http.StatusBadRequest, "Invalid user_id format. Must be: client{number}")
		return
	}
	if !reConvID.MatchString(conversationID) {
		writeError(w, http.StatusBadRequest, "Invalid conversation_id format. Must be: conv-{number}")
		return
	}

	conv, err := h.store.GetConversation(r.Context(), conversationID)
	if err != nil {
		applog.Error("[Chat] Failed to load conversation", "conversation_id", conversationID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}
	if conv == nil || conv.UserID != userID {
		writeError(w, http.StatusNotFound, "Conversation not found or access denied")
		return
	}

	history, err := h.store.History(r.Context(), conversationID)
	if err != nil {
		applog.Error("[Chat] Failed to load history", "conversation_id", conversationID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversation": conv,
		"history":      history,
	})
}
