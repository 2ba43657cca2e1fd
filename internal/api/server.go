// Package api exposes a bot over HTTP. Every response uses the
// {"apiVersion","data"} or {"apiVersion","error"} envelope.
package api

import (
	"bytes"
	_ "embed"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"jordanella.com/gamebot-go/internal/bot"
	"jordanella.com/gamebot-go/internal/database"
	"jordanella.com/gamebot-go/internal/events"
	"jordanella.com/gamebot-go/internal/logging"
)

//go:embed schema/job.schema.json
var jobSchemaJSON []byte

var jobSchema = func() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("file:///job.schema.json", bytes.NewReader(jobSchemaJSON)); err != nil {
		panic(fmt.Sprintf("api: failed to add job schema: %v", err))
	}
	return compiler.MustCompile("file:///job.schema.json")
}()

// Journal is the read side of the job journal
type Journal interface {
	JobHistory(jobID string, limit int) ([]*database.JobEventRecord, error)
	RecentJobEvents(limit int) ([]*database.JobEventRecord, error)
}

// Options configures a Server. Zero values disable the optional parts.
type Options struct {
	OperationTimeout time.Duration
	RateLimit        float64
	RateBurst        int
	CORSOrigins      []string
	Bus              events.EventBus // enables /api/events/stream
	Journal          Journal         // enables /api/history
	Logger           *logging.Logger
}

// Server holds the handlers for one bot
type Server struct {
	bot     *bot.Bot
	opts    Options
	logger  *logging.Logger
	engine  *gin.Engine
	limiter *RateLimiter
}

// New builds the gin engine for b
func New(b *bot.Bot, opts Options) *Server {
	if opts.OperationTimeout <= 0 {
		opts.OperationTimeout = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger("API")
	}

	s := &Server{bot: b, opts: opts, logger: logger}
	if opts.RateLimit > 0 {
		s.limiter = NewRateLimiter(opts.RateLimit, opts.RateBurst)
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), accessLog(s.logger))

	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	r.Use(cors.New(corsConfig))

	if s.limiter != nil {
		r.Use(s.limiter.Middleware())
	}

	r.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, fmt.Sprintf("%s %s not found", c.Request.Method, c.Request.URL.Path))
	})

	api := r.Group("/api")
	{
		api.GET("/status", s.status)

		api.POST("/jobs", s.createJob)
		api.GET("/jobs", s.listJobs)
		api.GET("/jobs/:id", s.getJob)
		api.GET("/jobs/:id/events", s.jobEvents)
		api.POST("/jobs/:id/:operation", s.operateJob)

		api.POST("/actions", s.createAction)
		api.GET("/actions", s.listActions)

		api.GET("/history", s.history)
		api.GET("/events", s.gameEvents)
		if s.opts.Bus != nil {
			api.GET("/events/stream", s.stream)
		}
	}
	return r
}

func (s *Server) status(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{})
}
