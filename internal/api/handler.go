// Package api is the HTTP boundary between the aggregation pipeline and the
// dashboard UI. It exposes one read (the current state) and one write
// (trigger a pass), plus activity content and its start actions.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"course-dashboard/internal/content"
	"course-dashboard/internal/domain"
	"course-dashboard/internal/logger"
	"course-dashboard/internal/viewmodel"
)

// Dashboard is the pipeline as the UI sees it.
type Dashboard interface {
	Current() domain.State
	Trigger() uint64
}

// Content resolves activity views and runs their start actions.
type Content interface {
	Open(ctx context.Context, a domain.ActivityNode) (content.View, error)
	Start(ctx context.Context, actionID string) (content.StartResult, error)
}

type Handler struct {
	Dashboard Dashboard
	Content   Content
	Views     *viewmodel.Memo
	Logger    *zap.Logger
}

// DashboardPayload is the body of GET /api/dashboard.
type DashboardPayload struct {
	State domain.State   `json:"state"`
	View  viewmodel.View `json:"view"`
}

func (h *Handler) GetDashboard(c *gin.Context) {
	st := h.Dashboard.Current()
	success(c, DashboardPayload{State: st, View: h.Views.Get(st.Snapshot)})
}

func (h *Handler) Refresh(c *gin.Context) {
	gen := h.Dashboard.Trigger()
	accepted(c, gin.H{"generation": gen})
}

func (h *Handler) GetContent(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "invalid activity id")
		return
	}
	st := h.Dashboard.Current()
	if st.Snapshot == nil {
		fail(c, http.StatusServiceUnavailable, "dashboard not loaded yet")
		return
	}
	a, ok := findActivity(st.Snapshot, id)
	if !ok {
		fail(c, http.StatusNotFound, "activity not found")
		return
	}

	v, err := h.Content.Open(c.Request.Context(), a)
	if err != nil {
		logger.OrNop(h.Logger).Warn("content load aborted", zap.Int("activity_id", id), zap.Error(err))
		fail(c, http.StatusServiceUnavailable, "content load aborted")
		return
	}
	success(c, v)
}

func (h *Handler) StartAction(c *gin.Context) {
	res, err := h.Content.Start(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, content.ErrUnknownAction):
		fail(c, http.StatusNotFound, "unknown action")
		return
	case err != nil:
		logger.OrNop(h.Logger).Warn("start action aborted", zap.String("action_id", c.Param("id")), zap.Error(err))
		fail(c, http.StatusServiceUnavailable, "start action aborted")
		return
	}
	success(c, res)
}

func (h *Handler) Health(c *gin.Context) {
	st := h.Dashboard.Current()
	body := gin.H{"status": "ok", "dashboard": st.Status}
	if st.Snapshot != nil {
		body["generation"] = st.Snapshot.Generation
		body["builtAt"] = st.Snapshot.BuiltAt
	}
	success(c, body)
}

// findActivity looks the id up in the tree, then in the flat resource list
// (the tree may be a fallback while resources loaded live).
func findActivity(s *domain.Snapshot, id int) (domain.ActivityNode, bool) {
	for _, course := range s.Tree {
		for _, sec := range course.Sections {
			for _, a := range sec.Activities {
				if a.ID == id {
					return a, true
				}
			}
		}
	}
	for _, r := range s.Resources {
		if r.Activity.ID == id {
			return r.Activity, true
		}
	}
	return domain.ActivityNode{}, false
}
