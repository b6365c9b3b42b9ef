package apiserver

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/trititantech/server/pkg/model"
)

// writeError reports a failure as {success:false, message, error}. message is
// safe to show a user; err carries the detail.
func writeError(w http.ResponseWriter, httpStatus int, message string, err error) {
	o := model.ErrorResponse{
		Success: false,
		Message: message,
	}
	if err != nil {
		logrus.Debugf("got a response error: %v", err)
		o.Error = err.Error()
	}
	writeJSON(w, httpStatus, o)
}

func writeSuccess(w http.ResponseWriter, httpStatus int, data interface{}) {
	writeJSON(w, httpStatus, data)
}

func writeJSON(w http.ResponseWriter, httpStatus int, data interface{}) {
	res, err := json.Marshal(data)
	if err != nil {
		logrus.Errorf("unable to encode response: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"message":"Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_, _ = w.Write(res)
}
