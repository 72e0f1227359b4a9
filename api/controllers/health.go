package controllers

import (
	"net/http"

	"github.com/pmartell/storefront-checkout/api/responses"
)

func HealthLive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteJSON(w, http.StatusOK, map[string]string{"status": "live"})
	}
}
