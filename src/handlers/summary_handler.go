package handlers

import (
	"bytes"
	"log"
	"net/http"
	"time"

	"pocketbook-server/src/db"
	"pocketbook-server/src/middleware"
	"pocketbook-server/src/models"
	"pocketbook-server/src/reports"
)

// GetSummary answers the income, expense and balance totals. Only the
// description filter applies; order_by is accepted and ignored.
func GetSummary(store db.TransactionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := middleware.OwnerFromContext(r.Context())
		filter := models.TransactionFilter{Description: r.URL.Query().Get("description")}

		summary, err := store.SummarizeTransactions(r.Context(), owner, filter)
		if err != nil {
			log.Printf("ERROR: Failed to summarize transactions - User: %d: %v", owner, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, summary)
	}
}

// GetStatement renders the summary and the matching transactions as a PDF.
func GetStatement(store db.TransactionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := middleware.OwnerFromContext(r.Context())
		filter := transactionFilter(r)

		summary, err := store.SummarizeTransactions(r.Context(), owner, filter)
		if err != nil {
			log.Printf("ERROR: Failed to summarize transactions - User: %d: %v", owner, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		page, err := store.ListTransactions(r.Context(), owner, filter, models.PageRequest{Limit: reports.MaxStatementRows})
		if err != nil {
			log.Printf("ERROR: Failed to list transactions - User: %d: %v", owner, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		statement := reports.Statement{
			Description:  filter.Description,
			Summary:      summary,
			Transactions: page.Items,
			Count:        page.Count,
			GeneratedAt:  time.Now(),
		}
		if user, ok := middleware.UserFromContext(r.Context()); ok {
			statement.Owner = user.Username
		}

		var buf bytes.Buffer
		if err := reports.RenderStatement(&buf, statement); err != nil {
			log.Printf("ERROR: Failed to render statement - User: %d: %v", owner, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		log.Printf("INFO: Statement generated - User: %d, Rows: %d", owner, len(page.Items))
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="pocketbook-statement-`+time.Now().Format(models.DateLayout)+`.pdf"`)
		w.Write(buf.Bytes())
	}
}
