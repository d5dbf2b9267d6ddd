package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"yfinance-go/src/helpers"
	"yfinance-go/src/models"
)

// -----------------------------------------------------------------------------

// filterState copies state keeping only the given symbols and datasets.
// An empty filter keeps everything.
func filterState(state *models.MLatestData, symbols, datasets []string) *models.MLatestData {
	out := &models.MLatestData{
		Type:      "INITIAL",
		Snapshots: make(map[string]map[string]models.MSnapshot),
		Timestamp: state.Timestamp,
		Metrics:   state.Metrics,
	}
	if state.Type != "" {
		out.Type = state.Type
	}

	for sym, byDataset := range state.Snapshots {
		if len(symbols) > 0 && !contains(symbols, sym) {
			continue
		}
		kept := make(map[string]models.MSnapshot, len(byDataset))
		for name, snap := range byDataset {
			if len(datasets) > 0 && !contains(datasets, name) {
				continue
			}
			kept[name] = snap
		}
		if len(kept) > 0 {
			out.Snapshots[sym] = kept
		}
	}
	return out
}

// -----------------------------------------------------------------------------

// errorStatus maps a fetch failure to the HTTP status the API answers with.
func errorStatus(err error) int {
	var validErr *helpers.ValidationError
	if errors.As(err, &validErr) {
		return http.StatusBadRequest
	}
	switch helpers.Kind(err) {
	case "unknown":
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

// -----------------------------------------------------------------------------

func writeError(c *gin.Context, err error) {
	kind := helpers.Kind(err)
	c.JSON(errorStatus(err), gin.H{"error": kind, "message": err.Error()})
}

// -----------------------------------------------------------------------------

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
