package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const missingContentMessage = "No email_content provided in the request"

type predictRequest struct {
	EmailContent *string `json:"email_content"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Message string `json:"message"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status:  "online",
		Version: APIVersion,
		Message: "API is available",
	})
}

// predict decodes the body as JSON whatever the Content-Type says
func (s *Server) predict(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.EmailContent == nil || *req.EmailContent == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Status: "error", Message: missingContentMessage})
		return
	}

	result, err := s.predictor.Predict(c.Request.Context(), *req.EmailContent)
	if err != nil {
		s.logger.Error("Prediction failed",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Status: "error", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
