package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"jordanella.com/gamebot-go/internal/actions"
	"jordanella.com/gamebot-go/internal/database"
)

func (s *Server) createJob(c *gin.Context) {
	doc, err := decodeRequest(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := jobSchema.Validate(doc); err != nil {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("The request is invalid: %v", err))
		return
	}

	req, _ := doc.(map[string]any)
	actionName, _ := req["action"].(string)
	rawArgs, _ := req["args"].([]any)
	args := make([]actions.Arg, 0, len(rawArgs))
	for _, ra := range rawArgs {
		a, _ := ra.(map[string]any)
		name, _ := a["name"].(string)
		args = append(args, actions.Arg{Name: name, Value: a["value"]})
	}

	id, err := s.bot.CreateJob(actionName, args)
	if err != nil {
		s.fail(c, err)
		return
	}
	job, _ := s.bot.Job(id)
	respond(c, http.StatusCreated, job.Info())
}

func (s *Server) listJobs(c *gin.Context) {
	jobs := s.bot.Jobs()
	items := make([]actions.Info, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, job.Info())
	}
	respond(c, http.StatusOK, gin.H{"items": items})
}

func (s *Server) lookupJob(c *gin.Context) (*actions.Instance, bool) {
	id := c.Param("id")
	job, ok := s.bot.Job(id)
	if !ok {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("Job ID '%s' not found", id))
		return nil, false
	}
	return job, true
}

func (s *Server) getJob(c *gin.Context) {
	job, ok := s.lookupJob(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, job.Info())
}

func (s *Server) jobEvents(c *gin.Context) {
	job, ok := s.lookupJob(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, gin.H{"items": job.Events()})
}

func (s *Server) operateJob(c *gin.Context) {
	var op func(context.Context, string) error
	switch c.Param("operation") {
	case "start":
		op = s.bot.StartJob
	case "pause":
		op = s.bot.PauseJob
	case "resume":
		op = s.bot.ResumeJob
	case "cancel":
		op = s.bot.CancelJob
	default:
		respondError(c, http.StatusBadRequest, fmt.Sprintf("Unknown operation '%s'", c.Param("operation")))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.OperationTimeout)
	defer cancel()
	if err := op(ctx, c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{})
}

func (s *Server) history(c *gin.Context) {
	if s.opts.Journal == nil {
		respondError(c, http.StatusNotFound, "job journal is disabled")
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(c, http.StatusBadRequest, fmt.Sprintf("limit '%s' must be a positive integer", raw))
			return
		}
		limit = n
	}

	var (
		records []*database.JobEventRecord
		err     error
	)
	if jobID := c.Query("job"); jobID != "" {
		records, err = s.opts.Journal.JobHistory(jobID, limit)
	} else {
		records, err = s.opts.Journal.RecentJobEvents(limit)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	if records == nil {
		records = []*database.JobEventRecord{}
	}
	respond(c, http.StatusOK, gin.H{"items": records})
}
