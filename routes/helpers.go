package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/mbolis/surveydesk/admin"
	"github.com/mbolis/surveydesk/httpx"
	"github.com/mbolis/surveydesk/log"
	"github.com/mbolis/surveydesk/store"
)

const idPattern = `{id:^\d+$}`

func urlID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
		return 0, false
	}
	return id, true
}

// queryID reads an optional numeric filter from the query string.
func queryID(w http.ResponseWriter, r *http.Request, name string) (*int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.get_query_param."+name, "%s must be a number", name)
		return nil, false
	}
	return &id, true
}

// fail maps store and validation errors to their status codes and logs the rest
// as internal errors under code.
func fail(w http.ResponseWriter, r *http.Request, code string, err error, id any) {
	var verr *admin.ValidationError
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpx.LogNotFound(w, code, id)
	case errors.As(err, &verr):
		httpx.LogJSON(w, r, http.StatusUnprocessableEntity, code, httpx.ErrorBody{
			Error:    "invalid data",
			Problems: verr.Problems(),
		})
	case errors.Is(err, store.ErrConflict):
		httpx.LogJSON(w, r, http.StatusConflict, code, httpx.ErrorBody{Error: err.Error()})
	case errors.Is(err, store.ErrReference):
		httpx.LogJSON(w, r, http.StatusUnprocessableEntity, code, httpx.ErrorBody{Error: err.Error()})
	default:
		httpx.LogInternalError(w, code, err)
	}
}
