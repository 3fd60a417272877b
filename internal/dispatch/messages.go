package dispatch

import (
	"fmt"

	"github.com/seantiz/errand/internal/model"
)

// NotFoundText is the retrieval answer for an unknown request ID.
func NotFoundText(requestID string) string {
	return "No search results found for request ID: " + requestID
}

func searchPlaceholder(req SearchRequest) string {
	return fmt.Sprintf("Search for '%s' at '%s' is running. Check back in 2-3 minutes for results.",
		req.FoodCraving, req.Address)
}

func searchStartedInfo(req SearchRequest) string {
	return fmt.Sprintf("Search for '%s' at '%s' started in background", req.FoodCraving, req.Address)
}

func searchAck(requestID string, pid int, detached bool) string {
	if detached {
		return fmt.Sprintf("Search started! Worker process (PID %d) is running the browser automation. Results will be available in 2-3 minutes at %s",
			pid, model.ResultURI(requestID))
	}
	return fmt.Sprintf("Search started! A background task is running the browser automation. Results will be available in 2-3 minutes at %s",
		model.ResultURI(requestID))
}

func orderAck(req OrderRequest) string {
	return fmt.Sprintf("Order for '%s' started. Your order is being processed.", req.ItemName)
}
