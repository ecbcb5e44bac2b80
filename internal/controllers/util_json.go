package controllers

import (
	"github.com/obaidsafi51/GigStream-sub003/pkg/domain"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}

// cycleResponse shapes a terminal cycle result for the synchronous webhook
// response and the replay endpoint.
func cycleResponse(res domain.CycleResult) gin.H {
	if res.Success() {
		return gin.H{
			"success":         true,
			"taskId":          res.ExternalTaskID,
			"transactionId":   res.TransactionID,
			"transactionHash": res.TxHash,
			"amount":          res.Amount,
			"verification":    res.Verification,
			"processingTime":  res.ProcessingTimeMs,
		}
	}
	out := gin.H{
		"success":          false,
		"taskId":           res.ExternalTaskID,
		"processingTime":   res.ProcessingTimeMs,
		"retriesAttempted": res.RetriesAttempted,
		"error":            gin.H{"code": res.ErrorCode, "message": res.ErrorMessage},
	}
	if res.Verification != nil {
		out["verification"] = res.Verification
	}
	return out
}
