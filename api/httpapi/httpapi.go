// Package httpapi is the thin HTTP adapter over internal/coordinator
// (§6.1). It decodes requests, calls the coordinator's exported methods,
// and encodes the result; it owns no state and performs no locking of its
// own — §5's "direct access forbidden" rule applies one layer further out
// here too.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/endomorphosis/ipfs-kit-py-sub032/internal/coordinator"
	"github.com/endomorphosis/ipfs-kit-py-sub032/internal/workflow"
	pkgerrors "github.com/endomorphosis/ipfs-kit-py-sub032/pkg/errors"
)

// Server wraps a gin.Engine wired to a single Coordinator.
type Server struct {
	coord  *coordinator.Coordinator
	engine *gin.Engine
}

// NewServer builds the route table described in SPEC_FULL.md §6.1.
func NewServer(coord *coordinator.Coordinator) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{coord: coord, engine: r}

	r.POST("/workflows", s.submitWorkflow)
	r.POST("/workflows/assign", s.assignWorkflows)
	r.GET("/workflows/:id", s.getWorkflowStatus)
	r.GET("/workflows", s.listWorkflows)
	r.PATCH("/workflows/:id/status", s.updateWorkflowStatus)
	r.POST("/peers/:id", s.addPeer)
	r.DELETE("/peers/:id", s.removePeer)
	r.GET("/my-workflows", s.getMyWorkflows)
	r.GET("/stats", s.getStats)
	r.POST("/workflow-tags", s.parseWorkflowTags)

	return s
}

// Handler returns the underlying http.Handler for use with an http.Server
// or httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run starts listening on addr, blocking until the listener fails.
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

type submitWorkflowRequest struct {
	SourceRef string                 `json:"source_ref" binding:"required"`
	Name      string                 `json:"name"`
	Inputs    map[string]interface{} `json:"inputs"`
	Priority  *float64               `json:"priority"`
}

func (s *Server) submitWorkflow(c *gin.Context) {
	var req submitWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := s.coord.SubmitWorkflow(c.Request.Context(), req.SourceRef, req.Name, req.Inputs, req.Priority)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"workflow_id": id})
}

func (s *Server) assignWorkflows(c *gin.Context) {
	assigned, err := s.coord.AssignWorkflows(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assigned": assigned})
}

func (s *Server) getWorkflowStatus(c *gin.Context) {
	rec, err := s.coord.GetWorkflowStatus(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) listWorkflows(c *gin.Context) {
	var status *workflow.Status
	if q := c.Query("status"); q != "" {
		st := workflow.Status(q)
		status = &st
	}
	var peer *string
	if q := c.Query("peer"); q != "" {
		peer = &q
	}
	c.JSON(http.StatusOK, s.coord.ListWorkflows(status, peer))
}

type updateStatusRequest struct {
	Status Status                 `json:"status" binding:"required"`
	Result map[string]interface{} `json:"result"`
	Error  string                 `json:"error"`
}

// Status is an alias of workflow.Status, used as the type of
// updateStatusRequest.Status.
type Status = workflow.Status

func (s *Server) updateWorkflowStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	changed, err := s.coord.UpdateWorkflowStatus(c.Request.Context(), c.Param("id"), req.Status, req.Result, req.Error)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

func (s *Server) addPeer(c *gin.Context) {
	if err := s.coord.AddPeer(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) removePeer(c *gin.Context) {
	if err := s.coord.RemovePeer(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getMyWorkflows(c *gin.Context) {
	c.JSON(http.StatusOK, s.coord.GetMyWorkflows())
}

func (s *Server) getStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.coord.GetStats())
}

type parseWorkflowTagsRequest struct {
	SourceRef string `json:"source_ref" binding:"required"`
}

func (s *Server) parseWorkflowTags(c *gin.Context) {
	var req parseWorkflowTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	parsed, err := s.coord.ParseWorkflowTags(req.SourceRef)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"name": "", "tags": []string{}, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, parsed)
}

// writeError maps a *pkgerrors.Error's code onto an HTTP status, falling
// back to 500 for anything unrecognised.
func writeError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	if pe, ok := err.(*pkgerrors.Error); ok {
		switch pe.Code {
		case pkgerrors.CodeNotFound:
			code = http.StatusNotFound
		case pkgerrors.CodeConflict:
			code = http.StatusConflict
		case pkgerrors.CodeIllegalTransition, pkgerrors.CodeInvalidStatus, pkgerrors.InvalidArgument:
			code = http.StatusBadRequest
		}
	}
	c.JSON(code, gin.H{"error": err.Error()})
}
