package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"bi-dashboard/internal/errors"
	"bi-dashboard/internal/services"
)

const (
	defaultSubCategoryLimit = 10
	maxSubCategoryLimit     = 100
)

// parseFilter reads the optional year, country and category query parameters.
func parseFilter(r *http.Request) (services.Filter, error) {
	q := r.URL.Query()
	f := services.Filter{
		Country:  strings.TrimSpace(q.Get("country")),
		Category: strings.TrimSpace(q.Get("category")),
	}
	if raw := strings.TrimSpace(q.Get("year")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year < 1 {
			return f, errors.BadRequest("year must be a positive integer")
		}
		f.Year = year
	}
	return f, nil
}

// parseHorizon returns def when the parameter is absent. Range checks are left
// to the forecaster so that they produce the same error everywhere.
func parseHorizon(r *http.Request, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("horizon"))
	if raw == "" {
		return def, nil
	}
	h, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.BadRequest("horizon must be an integer")
	}
	return h, nil
}

func parseLimit(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return defaultSubCategoryLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxSubCategoryLimit {
		return 0, errors.BadRequest("limit must be between 1 and " + strconv.Itoa(maxSubCategoryLimit))
	}
	return limit, nil
}
