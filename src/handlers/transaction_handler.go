package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"pocketbook-server/src/db"
	"pocketbook-server/src/middleware"
	"pocketbook-server/src/models"
	"pocketbook-server/src/util"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Printf("ERROR: Failed to read request body: %v", err)
		writeDetail(w, http.StatusBadRequest, "could not read request body")
		return nil, false
	}
	return body, true
}

// transactionFilter reads description, type and order_by from the query
// string. A type parameter that is present but empty matches nothing.
func transactionFilter(r *http.Request) models.TransactionFilter {
	q := r.URL.Query()
	filter := models.TransactionFilter{
		Description: q.Get("description"),
		OrderBy:     models.ParseOrdering(q.Get("order_by")),
	}
	if _, ok := q["type"]; ok {
		typ := q.Get("type")
		filter.Type = &typ
	}
	return filter
}

func transactionID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func CreateTransaction(store db.TransactionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := middleware.OwnerFromContext(r.Context())

		body, ok := readBody(w, r)
		if !ok {
			return
		}
		patch, err := util.ParseTransactionPayload(body, false)
		if writePayloadError(w, err) {
			log.Printf("ERROR: Invalid transaction payload - User: %d: %v", owner, err)
			return
		}
		fields, _ := patch.Complete()

		t, err := store.CreateTransaction(r.Context(), owner, fields)
		if err != nil {
			log.Printf("ERROR: Failed to create transaction - User: %d: %v", owner, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		log.Printf("INFO: Transaction created - User: %d, ID: %d", owner, t.ID)
		writeJSON(w, http.StatusCreated, t)
	}
}

// ListTransactions answers the filtered, ordered listing. With a positive
// pageSize it is wrapped in a page envelope; otherwise it is a bare array.
func ListTransactions(store db.TransactionStore, pageSize int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := middleware.OwnerFromContext(r.Context())
		filter := transactionFilter(r)

		if pageSize <= 0 {
			page, err := store.ListTransactions(r.Context(), owner, filter, models.PageRequest{})
			if err != nil {
				log.Printf("ERROR: Failed to list transactions - User: %d: %v", owner, err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			items := page.Items
			if items == nil {
				items = []models.Transaction{}
			}
			writeJSON(w, http.StatusOK, items)
			return
		}

		number, err := requestedPage(r.URL.Query().Get("page"))
		if err != nil {
			writeDetail(w, http.StatusNotFound, invalidPageDetail)
			return
		}
		wantLast := number == 0
		if wantLast {
			number = 1
		}

		page, err := store.ListTransactions(r.Context(), owner, filter, pageRequest(number, pageSize))
		if err != nil {
			log.Printf("ERROR: Failed to list transactions - User: %d: %v", owner, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		pages := pageCount(page.Count, pageSize)
		if wantLast && pages > 1 {
			number = pages
			page, err = store.ListTransactions(r.Context(), owner, filter, pageRequest(number, pageSize))
			if err != nil {
				log.Printf("ERROR: Failed to list transactions - User: %d: %v", owner, err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			pages = pageCount(page.Count, pageSize)
		}
		if number > pages {
			writeDetail(w, http.StatusNotFound, invalidPageDetail)
			return
		}

		writeJSON(w, http.StatusOK, newPageEnvelope(r, page, number, pageSize))
	}
}

func GetTransaction(store db.TransactionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := middleware.OwnerFromContext(r.Context())
		id, ok := transactionID(r)
		if !ok {
			notFound(w)
			return
		}

		t, err := store.GetTransaction(r.Context(), owner, id)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				notFound(w)
				return
			}
			log.Printf("ERROR: Failed to get transaction - User: %d, ID: %d: %v", owner, id, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, t)
	}
}

// UpdateTransaction serves PUT when partial is false and PATCH when it is
// true. The transaction is resolved before the payload is validated, so a
// missing one answers 404 even for an invalid body.
func UpdateTransaction(store db.TransactionStore, partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := middleware.OwnerFromContext(r.Context())
		id, ok := transactionID(r)
		if !ok {
			notFound(w)
			return
		}

		if _, err := store.GetTransaction(r.Context(), owner, id); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				notFound(w)
				return
			}
			log.Printf("ERROR: Failed to get transaction - User: %d, ID: %d: %v", owner, id, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		body, ok := readBody(w, r)
		if !ok {
			return
		}
		patch, err := util.ParseTransactionPayload(body, partial)
		if writePayloadError(w, err) {
			log.Printf("ERROR: Invalid transaction payload - User: %d, ID: %d: %v", owner, id, err)
			return
		}

		t, err := store.UpdateTransaction(r.Context(), owner, id, patch)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				notFound(w)
				return
			}
			log.Printf("ERROR: Failed to update transaction - User: %d, ID: %d: %v", owner, id, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		log.Printf("INFO: Transaction updated - User: %d, ID: %d", owner, id)
		writeJSON(w, http.StatusOK, t)
	}
}

func DeleteTransaction(store db.TransactionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := middleware.OwnerFromContext(r.Context())
		id, ok := transactionID(r)
		if !ok {
			notFound(w)
			return
		}

		if err := store.DeleteTransaction(r.Context(), owner, id); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				notFound(w)
				return
			}
			log.Printf("ERROR: Failed to delete transaction - User: %d, ID: %d: %v", owner, id, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		log.Printf("INFO: Transaction deleted - User: %d, ID: %d", owner, id)
		w.WriteHeader(http.StatusNoContent)
	}
}
