package rest

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
	"github.com/go-chi/chi/v5"
)

// writeContactError reports a missing contact as {"detail":{"ID:<id>":"Not Found"}}.
func (s *HTTPServer) writeContactError(w http.ResponseWriter, r *http.Request, id string, err error) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		writeDetail(w, http.StatusNotFound, map[string]string{"ID:" + id: "Not Found"})
	case errors.Is(err, common.ErrorConflict):
		writeDetail(w, http.StatusConflict, "Contact with this email already exists")
	default:
		s.writeError(w, r, err)
	}
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", common.ErrorValidation, name)
	}
	return n, nil
}

func (s *HTTPServer) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	var in models.ContactInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	c, err := s.contacts.Create(r.Context(), currentUser(r.Context()).ID, &in)
	if err != nil {
		s.writeContactError(w, r, "", err)
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

func (s *HTTPServer) handleListContacts(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	list, err := s.contacts.List(r.Context(), currentUser(r.Context()).ID, skip, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, nonNil(list))
}

func (s *HTTPServer) handleGetContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := s.contacts.Get(r.Context(), currentUser(r.Context()).ID, id)
	if err != nil {
		s.writeContactError(w, r, id, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (s *HTTPServer) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var in models.ContactInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	c, err := s.contacts.Update(r.Context(), currentUser(r.Context()).ID, id, &in)
	if err != nil {
		s.writeContactError(w, r, id, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (s *HTTPServer) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := s.contacts.Delete(r.Context(), currentUser(r.Context()).ID, id)
	if err != nil {
		s.writeContactError(w, r, id, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (s *HTTPServer) handleSearchContacts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	list, err := s.contacts.Search(r.Context(), currentUser(r.Context()).ID, q.Get("name"), q.Get("email"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, nonNil(list))
}

func (s *HTTPServer) handleBirthdays(w http.ResponseWriter, r *http.Request) {
	list, err := s.contacts.UpcomingBirthdays(r.Context(), currentUser(r.Context()).ID, s.opts.BirthdayWindowDays)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, nonNil(list))
}

// nonNil keeps empty results encoded as [] rather than null.
func nonNil(list []*models.Contact) []*models.Contact {
	if list == nil {
		return []*models.Contact{}
	}
	return list
}
