package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/jalaleddinemaoukil/interventions-m1/internal/api/middleware"
	"github.com/jalaleddinemaoukil/interventions-m1/internal/model"
	"github.com/jalaleddinemaoukil/interventions-m1/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
)

type addTaskRequest struct {
	Title         string   `json:"title"`
	CompanyName   string   `json:"companyName"`
	CompanyNumber string   `json:"companyNumber"`
	Content       string   `json:"content"`
	Tags          []string `json:"tags"`
}

// editTaskRequest distinguishes "field omitted" from "field present" with
// pointers, so an explicit false still reaches the pin flag.
type editTaskRequest struct {
	Title         *string   `json:"title"`
	CompanyName   *string   `json:"companyName"`
	CompanyNumber *string   `json:"companyNumber"`
	Content       *string   `json:"content"`
	Tags          *[]string `json:"tags"`
	IsPinned      *bool     `json:"isPinned"`
}

type updatePinnedRequest struct {
	IsPinned *bool `json:"isPinned"`
}

func getUserID(c *gin.Context) uint {
	return c.GetUint(middleware.CtxUserID)
}

func taskIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("taskId"), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// handleAddTask creates an intervention owned by the caller.
//
// POST /add-task
func (s *Server) handleAddTask(c *gin.Context) {
	var req addTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": err.Error()})
		return
	}

	title := strings.TrimSpace(req.Title)
	content := strings.TrimSpace(req.Content)
	companyName := strings.TrimSpace(req.CompanyName)
	companyNumber := strings.TrimSpace(req.CompanyNumber)
	if title == "" || content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "Title and content are required"})
		return
	}
	if companyName == "" || companyNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "Company name and number are required"})
		return
	}

	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	task := &model.Intervention{
		Title:         title,
		CompanyName:   companyName,
		CompanyNumber: companyNumber,
		Content:       content,
		Tags:          tags,
		UserID:        getUserID(c),
	}
	if err := s.tasks.Create(c.Request.Context(), task); err != nil {
		s.logger.Error("create intervention failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": true, "message": "Internal Server Error"})
		return
	}

	metrics.InterventionOpsTotal.WithLabelValues("create").Inc()
	c.JSON(http.StatusOK, gin.H{"error": false, "task": task, "message": "Intervention added successfully"})
}

// handleEditTask applies a partial update to an owned intervention.
//
// PUT /edit-task/:taskId
func (s *Server) handleEditTask(c *gin.Context) {
	userID := getUserID(c)
	taskID, ok := taskIDParam(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": true, "message": "Intervention not found"})
		return
	}

	var req editTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "Title cannot be empty"})
			return
		}
		updates["title"] = title
	}
	if req.CompanyName != nil {
		name := strings.TrimSpace(*req.CompanyName)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "Company name cannot be empty"})
			return
		}
		updates["company_name"] = name
	}
	if req.CompanyNumber != nil {
		number := strings.TrimSpace(*req.CompanyNumber)
		if number == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "Company number cannot be empty"})
			return
		}
		updates["company_number"] = number
	}
	if req.Content != nil {
		content := strings.TrimSpace(*req.Content)
		if content == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "Content cannot be empty"})
			return
		}
		updates["content"] = content
	}
	if req.Tags != nil {
		updates["tags"] = *req.Tags
	}
	if req.IsPinned != nil {
		updates["is_pinned"] = *req.IsPinned
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "At least one field is required"})
		return
	}

	task, err := s.tasks.Update(c.Request.Context(), userID, taskID, updates)
	if err != nil {
		if errors.Is(err, ErrInterventionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": true, "message": "Intervention not found"})
			return
		}
		s.logger.Error("update intervention failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": true, "message": "Internal Server Error"})
		return
	}

	metrics.InterventionOpsTotal.WithLabelValues("update").Inc()
	c.JSON(http.StatusOK, gin.H{"error": false, "task": task, "message": "Intervention updated successfully"})
}

// handleListTasks returns the caller's interventions, pinned first.
//
// GET /get-all-tasks
func (s *Server) handleListTasks(c *gin.Context) {
	tasks, err := s.tasks.List(c.Request.Context(), getUserID(c))
	if err != nil {
		s.logger.Error("list interventions failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": true, "message": "Internal Server Error"})
		return
	}

	metrics.InterventionOpsTotal.WithLabelValues("list").Inc()
	c.JSON(http.StatusOK, gin.H{"error": false, "tasks": tasks, "message": "All Interventions retrieved successfully"})
}

// handleDeleteTask removes an owned intervention permanently.
//
// DELETE /delete-task/:taskId
func (s *Server) handleDeleteTask(c *gin.Context) {
	userID := getUserID(c)
	taskID, ok := taskIDParam(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": true, "message": "Task not found"})
		return
	}

	if err := s.tasks.Delete(c.Request.Context(), userID, taskID); err != nil {
		if errors.Is(err, ErrInterventionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": true, "message": "Task not found"})
			return
		}
		s.logger.Error("delete intervention failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": true, "message": "Internal Server Error"})
		return
	}

	metrics.InterventionOpsTotal.WithLabelValues("delete").Inc()
	c.JSON(http.StatusOK, gin.H{"error": false, "message": "Intervention deleted successfully"})
}

// handleUpdatePinned sets the pin flag verbatim, including explicit false.
//
// PUT /update-task-pinned/:taskId
func (s *Server) handleUpdatePinned(c *gin.Context) {
	userID := getUserID(c)
	taskID, ok := taskIDParam(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": true, "message": "Task not found"})
		return
	}

	var req updatePinnedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": err.Error()})
		return
	}
	if req.IsPinned == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "isPinned is required"})
		return
	}

	task, err := s.tasks.Update(c.Request.Context(), userID, taskID, map[string]interface{}{"is_pinned": *req.IsPinned})
	if err != nil {
		if errors.Is(err, ErrInterventionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": true, "message": "Task not found"})
			return
		}
		s.logger.Error("update pin failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": true, "message": "Internal Server Error"})
		return
	}

	metrics.InterventionOpsTotal.WithLabelValues("pin").Inc()
	c.JSON(http.StatusOK, gin.H{"error": false, "task": task, "message": "Intervention updated successfully"})
}

// handleSearchTasks matches the query as a case-insensitive substring of
// title or content, within the caller's records only.
//
// GET /search-tasks?query=
func (s *Server) handleSearchTasks(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "Search Query is required"})
		return
	}

	tasks, err := s.tasks.Search(c.Request.Context(), getUserID(c), query)
	if err != nil {
		s.logger.Error("search interventions failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": true, "message": "Internal Server Error"})
		return
	}

	metrics.InterventionOpsTotal.WithLabelValues("search").Inc()
	c.JSON(http.StatusOK, gin.H{"error": false, "tasks": tasks, "message": "Intervention matching the search query retrieved successfully"})
}
