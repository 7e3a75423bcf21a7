package http

import (
	"net/http"

	"github.com/gorilla/mux"

	applog "bilancio/internal/log"
	"bilancio/internal/services"
)

// view applies the query string to the session and returns the resulting
// view. On failure the error response has been written and ok is false.
func (s *Server) view(w http.ResponseWriter, r *http.Request, sess *services.Session) (v services.View, ok bool) {
	next, err := applyViewQuery(sess.Params(), r.URL.Query())
	if err != nil {
		BadRequestError(services.Message(services.ValidationError("query", err))).Write(w)
		return services.View{}, false
	}

	v, err = sess.Apply(r.Context(), next)
	if err != nil {
		if services.KindOf(err) == services.KindValidation {
			BadRequestError(services.Message(err)).Write(w)
		} else {
			ServiceError(err).Write(w)
		}
		return services.View{}, false
	}
	return v, true
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	v, ok := s.view(w, r, sess)
	if !ok {
		return
	}
	NewJSONResponse().Body(toPageJSON(v, s.svc.PageSize())).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := s.session(w, r)

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Unreadable transaction body",
			applog.FieldOperation, applog.OpParse,
			applog.FieldError, err.Error())
		sess.Fail(&services.OperationError{
			Kind:    services.KindValidation,
			Op:      "create transaction",
			Message: "Invalid request body",
			Err:     err,
		})
		BadRequestError("Invalid request body").Write(w)
		return
	}

	in, err := p.ParseTransactionInput()
	if err != nil {
		verr := services.ValidationError("create transaction", err)
		sess.Fail(verr)
		ServiceError(verr).Write(w)
		return
	}

	tx, err := sess.Create(ctx, in)
	if err != nil {
		ServiceError(err).Write(w)
		return
	}

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+tx.ID).
		Body(map[string]any{"transaction": toTransactionJSON(tx)}).
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess := s.session(w, r)
	if !isConfirmed(r.URL.Query().Get("confirm")) {
		const msg = "Deletion must be confirmed with confirm=true"
		sess.Fail(&services.OperationError{Kind: services.KindValidation, Op: "delete transaction", Message: msg})
		BadRequestError(msg).Write(w)
		return
	}

	if err := sess.Delete(r.Context(), id); err != nil {
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{"deleted": id}).Write(w)
}
