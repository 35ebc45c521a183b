package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/healthcampaign/project-factory/internal/client"
	"github.com/healthcampaign/project-factory/internal/domain"
)

// ErrorEnvelope is the JSON body of every failed request.
type ErrorEnvelope struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// ResponseInfo echoes the caller's request header on success.
type ResponseInfo struct {
	APIID  string `json:"apiId,omitempty"`
	Ver    string `json:"ver,omitempty"`
	Ts     int64  `json:"ts"`
	MsgID  string `json:"msgId,omitempty"`
	Status string `json:"status"`
}

func newResponseInfo(info client.RequestInfo) ResponseInfo {
	return ResponseInfo{
		APIID:  info.APIID,
		Ver:    info.Ver,
		Ts:     time.Now().UnixMilli(),
		MsgID:  info.MsgID,
		Status: "successful",
	}
}

// WriteJSON encodes payload with status.
func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

// WriteError writes the error envelope.
func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{Code: code, Message: message, Meta: meta})
}

// writeAppError classifies err; anything that is not an AppError is a 500.
func writeAppError(w http.ResponseWriter, err error) {
	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		_ = WriteError(w, http.StatusInternalServerError, domain.CodeInternalServerError, "Internal server error",
			map[string]string{"description": err.Error()})
		return
	}
	status := appErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	var meta map[string]string
	if appErr.Description != "" {
		meta = map[string]string{"description": appErr.Description}
	}
	_ = WriteError(w, status, appErr.Code, appErr.Message, meta)
}
