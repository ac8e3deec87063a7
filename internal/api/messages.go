package api

import (
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	logs "github.com/danmuck/smplog"
	"github.com/danmuck/wadispatch/internal/delivery"
	"github.com/danmuck/wadispatch/internal/observability"
	"github.com/gin-gonic/gin"
)

const (
	msgMissingFields = "must provide target and message"
	msgBadBody       = "request body must be a JSON object"
	msgBadAttachment = "attachmentHex must be hex encoded"
	msgUnregistered  = "target is not registered"
	msgFailed        = "failed to process the request"
)

// sendMessageBody accepts the legacy numero/mensaje/pdfHex names as aliases.
type sendMessageBody struct {
	Target        string `json:"target"`
	Message       string `json:"message"`
	AttachmentHex string `json:"attachmentHex"`

	Numero  string `json:"numero"`
	Mensaje string `json:"mensaje"`
	PDFHex  string `json:"pdfHex"`
}

func (b sendMessageBody) normalized() sendMessageBody {
	if b.Target == "" {
		b.Target = b.Numero
	}
	if b.Message == "" {
		b.Message = b.Mensaje
	}
	if b.AttachmentHex == "" {
		b.AttachmentHex = b.PDFHex
	}
	return b
}

func (s *Server) handleSendMessage(c *gin.Context) {
	var body sendMessageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.String(http.StatusBadRequest, msgBadBody)
		return
	}
	body = body.normalized()
	if strings.TrimSpace(body.Target) == "" || strings.TrimSpace(body.Message) == "" {
		c.String(http.StatusBadRequest, msgMissingFields)
		return
	}

	req := delivery.Request{Target: body.Target, Message: body.Message}
	if raw := strings.TrimSpace(body.AttachmentHex); raw != "" {
		data, err := hex.DecodeString(raw)
		if err != nil {
			c.String(http.StatusBadRequest, msgBadAttachment)
			return
		}
		req.Attachment = &delivery.Attachment{Data: data}
	}

	receipt, err := s.deliverer.Deliver(c.Request.Context(), req)
	if err != nil {
		status, text := statusFor(err)
		logs.Errorf(err, "api.handleSendMessage delivery failed request_id=%s target=%s status=%d", observability.RequestIDFrom(c), req.Target, status)
		c.String(status, text)
		return
	}

	logs.Infof("api.handleSendMessage delivered request_id=%s target=%s message_id=%s", observability.RequestIDFrom(c), req.Target, receipt.ID)
	c.String(http.StatusOK, "message sent to %s", req.Target)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, delivery.ErrInvalidRequest):
		return http.StatusBadRequest, msgMissingFields
	case errors.Is(err, delivery.ErrUnregisteredTarget):
		return http.StatusUnprocessableEntity, msgUnregistered
	default:
		return http.StatusInternalServerError, msgFailed
	}
}
