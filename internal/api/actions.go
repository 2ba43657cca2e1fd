package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"jordanella.com/gamebot-go/internal/actions"
	"jordanella.com/gamebot-go/internal/programs"
)

type actionView struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Parameters  []actions.Parameter `json:"parameters"`
}

func viewOf(a actions.Action) actionView {
	params := a.Parameters()
	if params == nil {
		params = []actions.Parameter{}
	}
	return actionView{Name: a.Name(), Description: a.Description(), Parameters: params}
}

func (s *Server) createAction(c *gin.Context) {
	doc, err := decodeRequest(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	def, err := programs.DefinitionFromDocument(doc)
	if err != nil {
		s.fail(c, err)
		return
	}
	action, err := def.Build()
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.bot.RegisterAction(action); err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, viewOf(action))
}

func (s *Server) listActions(c *gin.Context) {
	all := s.bot.Actions()
	items := make([]actionView, 0, len(all))
	for _, a := range all {
		items = append(items, viewOf(a))
	}
	respond(c, http.StatusOK, gin.H{
		"updated": s.bot.ActionsUpdated().UTC().Format(time.RFC3339Nano),
		"items":   items,
	})
}
