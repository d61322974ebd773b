package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
)

// JobLister reports the scheduled reminder jobs and their next run.
type JobLister interface {
	Jobs() map[string]time.Time
}

type RemindersHandler struct {
	jobs JobLister
}

type ReminderJob struct {
	Key     string    `json:"key"`
	NextRun time.Time `json:"next_run"`
}

type ReminderJobsResponse struct {
	Items []ReminderJob `json:"items"`
}

func NewRemindersHandler(jobs JobLister) *RemindersHandler {
	return &RemindersHandler{jobs: jobs}
}

func (h *RemindersHandler) Register(e *echo.Echo) {
	e.GET("/reminders/jobs", h.ListJobs)
}

// ListJobs godoc
// @Summary List reminder jobs
// @Description Registered cron jobs ordered by next run
// @Tags reminders
// @Success 200 {object} ReminderJobsResponse
// @Router /reminders/jobs [get]
func (h *RemindersHandler) ListJobs(c echo.Context) error {
	items := []ReminderJob{}
	if h.jobs != nil {
		for key, next := range h.jobs.Jobs() {
			items = append(items, ReminderJob{Key: key, NextRun: next})
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].NextRun.Equal(items[j].NextRun) {
			return items[i].Key < items[j].Key
		}
		return items[i].NextRun.Before(items[j].NextRun)
	})
	return c.JSON(http.StatusOK, ReminderJobsResponse{Items: items})
}
