package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"pocketbook-server/src/db"
	"pocketbook-server/src/middleware"
	"pocketbook-server/src/util"

	"golang.org/x/crypto/bcrypt"
)

// Me answers the profile of the authenticated caller.
func Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

func ChangePassword(users db.UserStore, cache *db.UserCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req struct {
			CurrentPassword string `json:"current_password"`
			NewPassword     string `json:"new_password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Printf("ERROR: Failed to decode change password request body: %v", err)
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(req.CurrentPassword)); err != nil {
			log.Printf("ERROR: Invalid current password attempt for user %d", user.ID)
			http.Error(w, "current password is incorrect", http.StatusUnauthorized)
			return
		}

		if !util.ValidatePassword(req.NewPassword) {
			log.Printf("ERROR: Password validation failed during change password - User: %d", user.ID)
			http.Error(w, "password must be at least 8 characters with uppercase, lowercase, digit, and special character", http.StatusBadRequest)
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("ERROR: Failed to hash new password for user %d: %v", user.ID, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		if err := users.UpdateUserPassword(r.Context(), user.ID, hashedPassword); err != nil {
			log.Printf("ERROR: Failed to update user password - user_id: %d: %v", user.ID, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		cache.Del(user.ID)

		log.Printf("INFO: User password changed - User: %d", user.ID)
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "password changed successfully",
		})
	}
}

// DeleteUser removes the caller's account and every transaction they own.
// Tokens issued before stop working once the cache entry is gone.
func DeleteUser(users db.UserStore, cache *db.UserCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		log.Printf("INFO: Deleting user %d and all associated data", user.ID)
		if err := users.DeleteUser(r.Context(), user.ID); err != nil {
			log.Printf("ERROR: Failed to delete user %d: %v", user.ID, err)
			http.Error(w, "failed to delete user", http.StatusInternalServerError)
			return
		}
		cache.Del(user.ID)

		log.Printf("INFO: User %d deleted successfully", user.ID)
		w.WriteHeader(http.StatusNoContent)
	}
}
